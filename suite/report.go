package suite

import (
	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/prim"
)

// Report is the aggregate outcome of one run.
type Report struct {
	Profile     string
	CompareMode check.CompareMode
	Reference   string
	Candidate   string
	Categories  []string

	Verdicts []check.Verdict
	Total    int
	Passed   int
	Failed   int
	// Failures lists the IDs of failing cases in execution order.
	Failures []string

	// LeakedAllocations counts duplicates nobody freed.
	LeakedAllocations int
	// CleanupErrors are fixture removal failures. They are reported but do
	// not fail the run.
	CleanupErrors []error
}

// OK reports whether every case passed and nothing leaked.
func (r *Report) OK() bool {
	return r.Failed == 0 && r.LeakedAllocations == 0
}

func aggregate(p *Profile, ref, cand prim.Library, verdicts []check.Verdict) *Report {
	rep := &Report{
		Profile:     p.Name,
		CompareMode: check.CompareMode(p.CompareMode),
		Reference:   ref.Name(),
		Candidate:   cand.Name(),
		Categories:  append([]string(nil), p.Categories...),
		Verdicts:    verdicts,
		Total:       len(verdicts),
	}
	for _, v := range verdicts {
		if v.Passed() {
			rep.Passed++
			continue
		}
		rep.Failed++
		rep.Failures = append(rep.Failures, v.ID())
	}
	return rep
}
