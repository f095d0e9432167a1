// Package report renders a suite report for people.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/suite"
)

// Options controls rendering.
type Options struct {
	// Quiet prints only failing cases and the aggregate.
	Quiet bool
}

// Write renders r to w: a block per case followed by the aggregate.
func Write(w io.Writer, r *suite.Report, opts Options) error {
	if err := writef(w, "primcheck profile=%s compare=%s reference=%s candidate=%s\n",
		r.Profile, r.CompareMode, r.Reference, r.Candidate); err != nil {
		return err
	}
	for _, v := range r.Verdicts {
		if opts.Quiet && v.Passed() {
			continue
		}
		if err := writeCase(w, v); err != nil {
			return err
		}
	}
	return writeAggregate(w, r)
}

func writeCase(w io.Writer, v check.Verdict) error {
	header := "== " + v.ID()
	if v.Class != "" {
		header += " [" + string(v.Class) + "]"
	}
	if err := writeLine(w, header+" "+marker(v.Passed())); err != nil {
		return err
	}
	if v.Err != nil {
		if err := writef(w, "  error: %v\n", v.Err); err != nil {
			return err
		}
	}
	width := 0
	for _, res := range v.Results {
		if len(res.Aspect) > width {
			width = len(res.Aspect)
		}
	}
	for _, res := range v.Results {
		if err := writef(w, "  %-*s %s  ref=%s  cand=%s\n", width, res.Aspect, resultMarker(res), res.Reference, res.Candidate); err != nil {
			return err
		}
	}
	return nil
}

func writeAggregate(w io.Writer, r *suite.Report) error {
	if err := writef(w, "total=%d passed=%d failed=%d leaked=%d\n", r.Total, r.Passed, r.Failed, r.LeakedAllocations); err != nil {
		return err
	}
	if len(r.Failures) > 0 {
		if err := writeLine(w, "failing: "+strings.Join(r.Failures, " ")); err != nil {
			return err
		}
	}
	for _, err := range r.CleanupErrors {
		if werr := writef(w, "cleanup: %v\n", err); werr != nil {
			return werr
		}
	}
	if r.OK() {
		return writeLine(w, "RESULT PASS")
	}
	return writeLine(w, "RESULT FAIL")
}

func resultMarker(res check.Result) string {
	if res.Informative {
		return "INFO"
	}
	return marker(res.Pass)
}

func marker(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
