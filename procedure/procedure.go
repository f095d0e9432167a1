// Package procedure runs one invocation pair per corpus entry and turns what
// it observed into a verdict.
//
// A procedure never retries and never lets a failure escape: panics, fixture
// problems and disagreements all end up as verdict data.
package procedure

import (
	"bytes"
	"fmt"

	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/fixture"
	"github.com/lattice-substrate/primcheck/prim"
	"github.com/lattice-substrate/primcheck/primerr"
)

// Category names, in the order the suite runs them.
const (
	CategoryLength    = "length"
	CategoryCopy      = "copy"
	CategoryCompare   = "compare"
	CategoryWrite     = "write"
	CategoryRead      = "read"
	CategoryDuplicate = "duplicate"
)

// Categories lists every category in execution order.
var Categories = []string{
	CategoryLength,
	CategoryCopy,
	CategoryCompare,
	CategoryWrite,
	CategoryRead,
	CategoryDuplicate,
}

// copySentinel fills destination buffers before a copy.
const copySentinel = 0xAA

// Env is what every procedure in one suite run shares.
type Env struct {
	Reference prim.Library
	Candidate prim.Library
	// Ambient is the error channel both legs report through. Procedures
	// save it before a pair, reset it before each leg and restore it after.
	Ambient     *prim.Channel
	Fixtures    *fixture.Manager
	CompareMode check.CompareMode
}

// guard runs call and records a panic in o instead of propagating it.
func guard(o *check.Observation, call func()) {
	defer func() {
		if r := recover(); r != nil {
			o.Panic = fmt.Sprint(r)
		}
	}()
	call()
}

// clone gives each leg its own copy of an input.
func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

func newVerdict(category, label string, ambiguous bool) check.Verdict {
	v := check.Verdict{Category: category, Label: label}
	if ambiguous {
		v.Class = primerr.AmbiguousInput
	}
	return v
}

// conclude applies checker unless a leg panicked, in which case only the
// fault aspect is reported.
func conclude(v check.Verdict, ref, cand check.Observation, checker func(ref, cand check.Observation) []check.Result) check.Verdict {
	if fault, faulted := check.Faults(ref, cand); faulted {
		v.Results = []check.Result{fault}
		return v
	}
	v.Results = checker(ref, cand)
	return v
}

func failed(v check.Verdict, err error) check.Verdict {
	v.Err = err
	return v
}

// withChannel saves the ambient channel, neutralizes it for the pair and
// restores the saved value afterwards.
func (e *Env) withChannel(pair func()) {
	saved := e.Ambient.Swap(0)
	defer e.Ambient.Set(saved)
	pair()
}

// leg resets the channel, runs call and captures the errno it left behind.
func (e *Env) leg(o *check.Observation, call func(ch *prim.Channel)) {
	e.Ambient.Reset()
	guard(o, func() { call(e.Ambient) })
	o.Errno = e.Ambient.Errno()
}
