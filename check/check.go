package check

import (
	"bytes"
	"fmt"

	"github.com/lattice-substrate/primcheck/primerr"
)

// CompareMode selects how comparison results are matched.
type CompareMode string

const (
	// Strict requires the exact same integer.
	Strict CompareMode = "strict"
	// Lenient requires only the same sign class. Callers of C-style
	// comparison functions may depend on the sign and nothing else.
	Lenient CompareMode = "lenient"
)

// ParseCompareMode validates s. The empty string selects Lenient.
func ParseCompareMode(s string) (CompareMode, error) {
	switch CompareMode(s) {
	case "", Lenient:
		return Lenient, nil
	case Strict:
		return Strict, nil
	default:
		return "", primerr.New(primerr.ConfigInvalid, "", fmt.Sprintf("unknown compare mode %q (want strict or lenient)", s))
	}
}

// Sign returns -1, 0 or 1.
func Sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// SignClass names the sign of n.
func SignClass(n int) string {
	switch Sign(n) {
	case -1:
		return "negative"
	case 1:
		return "positive"
	default:
		return "zero"
	}
}

// Faults checks that either both legs panicked or neither did. The second
// return value is true when at least one leg panicked, in which case no other
// aspect is meaningful.
func Faults(ref, cand Observation) (Result, bool) {
	r := Result{
		Aspect:    AspectFault,
		Reference: faultText(ref),
		Candidate: faultText(cand),
		Pass:      (ref.Panic == "") == (cand.Panic == ""),
	}
	return r, ref.Panic != "" || cand.Panic != ""
}

func faultText(o Observation) string {
	if o.Panic == "" {
		return "none"
	}
	return "panic: " + o.Panic
}

// Length requires identical counts.
func Length(ref, cand Observation) []Result {
	return []Result{returnResult(ref, cand)}
}

// Copy requires each call to return its own destination and both
// destinations to hold the same bytes, terminator included.
func Copy(ref, cand Observation) []Result {
	return []Result{
		{
			Aspect:    AspectPointer,
			Reference: pointerText(ref),
			Candidate: pointerText(cand),
			Pass:      ref.Pointer && cand.Pointer,
		},
		contentResult(ref.Buffer, cand.Buffer),
	}
}

func pointerText(o Observation) string {
	if o.Pointer {
		return "dst"
	}
	return "not dst"
}

// Compare matches comparison results under mode.
func Compare(mode CompareMode, ref, cand Observation) []Result {
	r := Result{Aspect: AspectReturn}
	if mode == Strict {
		r.Reference = itoa(ref.Return)
		r.Candidate = itoa(cand.Return)
		r.Pass = ref.Return == cand.Return
		return []Result{r}
	}
	r.Reference = fmt.Sprintf("%s (%d)", SignClass(ref.Return), ref.Return)
	r.Candidate = fmt.Sprintf("%s (%d)", SignClass(cand.Return), cand.Return)
	r.Pass = Sign(ref.Return) == Sign(cand.Return)
	return []Result{r}
}

// Symmetry requires that swapping the operands inverts the sign class for
// both implementations; equal operands stay at zero.
func Symmetry(ref, refSwapped, cand, candSwapped Observation) Result {
	return Result{
		Aspect:    AspectSymmetry,
		Reference: symmetryText(ref, refSwapped),
		Candidate: symmetryText(cand, candSwapped),
		Pass:      inverted(ref, refSwapped) && inverted(cand, candSwapped),
	}
}

func inverted(fwd, swapped Observation) bool {
	return Sign(swapped.Return) == -Sign(fwd.Return)
}

func symmetryText(fwd, swapped Observation) string {
	return fmt.Sprintf("%s/%s", SignClass(fwd.Return), SignClass(swapped.Return))
}

// Transfer checks a write or read. Counts must match exactly; when a count is
// negative the error channels must match too. For reads that moved data, the
// overlapping prefix of the two buffers must match.
func Transfer(ref, cand Observation, read bool) []Result {
	out := []Result{returnResult(ref, cand)}
	if ref.Return < 0 || cand.Return < 0 {
		out = append(out, Result{
			Aspect:    AspectErrno,
			Reference: ref.Errno.String(),
			Candidate: cand.Errno.String(),
			Pass:      ref.Errno == cand.Errno,
		})
	}
	if read && ref.Return > 0 && cand.Return > 0 {
		n := min(ref.Return, cand.Return, len(ref.Buffer), len(cand.Buffer))
		out = append(out, contentResult(ref.Buffer[:n], cand.Buffer[:n]))
	}
	return out
}

// Allocation requires both legs to agree on success. Successful duplicates
// must hold equal strings; failed ones must report the same errno.
func Allocation(ref, cand Observation) []Result {
	out := []Result{{
		Aspect:    AspectAllocation,
		Reference: allocText(ref),
		Candidate: allocText(cand),
		Pass:      ref.Null == cand.Null,
	}}
	switch {
	case !ref.Null && !cand.Null:
		out = append(out, contentResult(ref.Buffer, cand.Buffer))
	case ref.Null && cand.Null:
		out = append(out, Result{
			Aspect:    AspectErrno,
			Reference: ref.Errno.String(),
			Candidate: cand.Errno.String(),
			Pass:      ref.Errno == cand.Errno,
		})
	}
	return out
}

func allocText(o Observation) string {
	if o.Null {
		return "null"
	}
	return "allocated"
}

// RoundTrip compares bytes read back against the bytes originally written.
func RoundTrip(want []byte, ref, cand Observation) Result {
	return Result{
		Aspect:    AspectRoundTrip,
		Reference: Preview(ref.Buffer),
		Candidate: Preview(cand.Buffer),
		Pass:      bytes.Equal(want, ref.Buffer) && bytes.Equal(want, cand.Buffer),
	}
}

func returnResult(ref, cand Observation) Result {
	return Result{
		Aspect:    AspectReturn,
		Reference: itoa(ref.Return),
		Candidate: itoa(cand.Return),
		Pass:      ref.Return == cand.Return,
	}
}

// Residue reports what two destinations held after both copies faulted. It
// is informative: nothing is expected of a copy that never finished.
func Residue(ref, cand []byte) Result {
	r := contentResult(ref, cand)
	r.Informative = true
	return r
}

// Content requires byte-identical buffers.
func Content(ref, cand []byte) Result {
	return contentResult(ref, cand)
}

func contentResult(ref, cand []byte) Result {
	return Result{
		Aspect:    AspectContent,
		Reference: Preview(ref),
		Candidate: Preview(cand),
		Pass:      bytes.Equal(ref, cand),
	}
}
