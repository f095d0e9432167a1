// Package check decides whether a reference observation and a candidate
// observation of the same invocation are equivalent.
//
// Each checker returns one Result per aspect it inspects. Aspects fail
// independently: a wrong count and wrong content are two failures, not one.
package check

import (
	"fmt"
	"strconv"

	"github.com/lattice-substrate/primcheck/prim"
	"github.com/lattice-substrate/primcheck/primerr"
)

// Aspect names one observable dimension of an invocation.
type Aspect string

const (
	AspectReturn     Aspect = "return"
	AspectContent    Aspect = "content"
	AspectPointer    Aspect = "pointer"
	AspectErrno      Aspect = "errno"
	AspectAllocation Aspect = "allocation"
	AspectSymmetry   Aspect = "symmetry"
	AspectRoundTrip  Aspect = "round-trip"
	AspectFault      Aspect = "fault"
)

// Observation is everything one invocation produced.
type Observation struct {
	// Return is a count, a comparison value, or 1/0 for pointer identity.
	Return int
	// Pointer is true when the returned slice starts at the caller's own
	// destination.
	Pointer bool
	// Null is true when an allocating primitive returned its failure marker.
	Null   bool
	Buffer []byte
	Errno  prim.Errno
	// Panic holds the recovered panic value, if the call panicked.
	Panic string
}

// Result is the outcome of checking one aspect.
type Result struct {
	Aspect    Aspect
	Reference string
	Candidate string
	Pass      bool
	// Informative results are reported but never decide the verdict.
	Informative bool
}

// Verdict is the immutable outcome of one invocation pair.
type Verdict struct {
	Category string
	Label    string
	// Class is AmbiguousInput for cases whose inputs neither implementation
	// is expected to define, and empty otherwise. It is informative only.
	Class   primerr.FailureClass
	Results []Result
	// Err is set when the case could not run, typically a ResourceError.
	Err error
}

// Passed reports whether the case ran and every aspect passed.
func (v Verdict) Passed() bool {
	if v.Err != nil || len(v.Results) == 0 {
		return false
	}
	for _, r := range v.Results {
		if !r.Pass && !r.Informative {
			return false
		}
	}
	return true
}

// ID is the category-qualified label.
func (v Verdict) ID() string {
	return v.Category + "/" + v.Label
}

// FailedAspects lists the aspects that did not pass, in check order.
func (v Verdict) FailedAspects() []Aspect {
	var out []Aspect
	for _, r := range v.Results {
		if !r.Pass && !r.Informative {
			out = append(out, r.Aspect)
		}
	}
	return out
}

const previewLimit = 48

// Preview renders at most previewLimit bytes of b for a report.
func Preview(b []byte) string {
	if len(b) <= previewLimit {
		return strconv.Quote(string(b))
	}
	return fmt.Sprintf("%s...(%d bytes)", strconv.Quote(string(b[:previewLimit])), len(b))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
