package procedure

import (
	"fmt"

	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/corpus"
	"github.com/lattice-substrate/primcheck/prim"
	"github.com/lattice-substrate/primcheck/primerr"
)

// Length compares Strlen on one string.
func Length(env *Env, c corpus.StringCase) check.Verdict {
	var ref, cand check.Observation
	guard(&ref, func() { ref.Return = env.Reference.Strlen(clone(c.Value)) })
	guard(&cand, func() { cand.Return = env.Candidate.Strlen(clone(c.Value)) })
	return conclude(newVerdict(CategoryLength, c.Label, false), ref, cand, check.Length)
}

// Copy compares Strcpy into two identically pre-filled destinations.
func Copy(env *Env, c corpus.CopyCase) check.Verdict {
	refDst := prim.Filled(c.DstSize, copySentinel)
	candDst := prim.Filled(c.DstSize, copySentinel)

	var ref, cand check.Observation
	copyLeg(&ref, env.Reference, refDst, clone(c.Src))
	copyLeg(&cand, env.Candidate, candDst, clone(c.Src))
	v := conclude(newVerdict(CategoryCopy, c.Label, c.Ambiguous), ref, cand, check.Copy)
	if v.Results[0].Aspect == check.AspectFault {
		v.Results = append(v.Results, check.Residue(ref.Buffer, cand.Buffer))
	}
	return v
}

func copyLeg(o *check.Observation, lib prim.Copier, dst, src []byte) {
	guard(o, func() {
		ret := lib.Strcpy(dst, src)
		o.Pointer = prim.SameBase(ret, dst)
		if o.Pointer {
			o.Return = 1
		}
	})
	o.Buffer = dst
}

// Compare compares Strcmp on a pair in both operand orders.
func Compare(env *Env, c corpus.PairCase) check.Verdict {
	var ref, refSwapped, cand, candSwapped check.Observation
	guard(&ref, func() { ref.Return = env.Reference.Strcmp(clone(c.A), clone(c.B)) })
	guard(&cand, func() { cand.Return = env.Candidate.Strcmp(clone(c.A), clone(c.B)) })
	guard(&refSwapped, func() { refSwapped.Return = env.Reference.Strcmp(clone(c.B), clone(c.A)) })
	guard(&candSwapped, func() { candSwapped.Return = env.Candidate.Strcmp(clone(c.B), clone(c.A)) })

	refAll, candAll := ref, cand
	if refAll.Panic == "" {
		refAll.Panic = refSwapped.Panic
	}
	if candAll.Panic == "" {
		candAll.Panic = candSwapped.Panic
	}
	mode := env.CompareMode
	return conclude(newVerdict(CategoryCompare, c.Label, false), refAll, candAll, func(_, _ check.Observation) []check.Result {
		out := check.Compare(mode, ref, cand)
		return append(out, check.Symmetry(ref, refSwapped, cand, candSwapped))
	})
}

// Duplicate compares Strdup. Both allocations are freed before it returns,
// whatever the outcome.
func Duplicate(env *Env, c corpus.StringCase) (v check.Verdict) {
	v = newVerdict(CategoryDuplicate, c.Label, false)

	var ref, cand check.Observation
	var refAlloc, candAlloc *prim.Allocation
	defer func() {
		for _, a := range []*prim.Allocation{refAlloc, candAlloc} {
			if a == nil {
				continue
			}
			if err := release(a); err != nil && v.Err == nil {
				v.Err = err
			}
		}
	}()

	env.withChannel(func() {
		env.leg(&ref, func(ch *prim.Channel) { refAlloc = env.Reference.Strdup(ch, clone(c.Value)) })
		env.leg(&cand, func(ch *prim.Channel) { candAlloc = env.Candidate.Strdup(ch, clone(c.Value)) })
	})
	observeAlloc(&ref, refAlloc)
	observeAlloc(&cand, candAlloc)
	return conclude(v, ref, cand, check.Allocation)
}

// release frees a, turning a panic inside Free into an error.
func release(a *prim.Allocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = primerr.New(primerr.InternalError, "", fmt.Sprintf("free panicked: %v", r))
		}
	}()
	if err := a.Free(); err != nil {
		return primerr.Wrap(primerr.ResourceError, "", "free duplicate", err)
	}
	return nil
}

func observeAlloc(o *check.Observation, a *prim.Allocation) {
	o.Null = a == nil
	if a != nil {
		o.Buffer = clone(a.Bytes())
	}
}
