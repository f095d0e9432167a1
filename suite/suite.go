// Package suite sequences the categories, owns fixture lifetime and
// aggregates verdicts into a report.
//
// A run moves through Idle, Running (one category at a time, in fixed
// order), Aggregating and Done. Individual case failures never stop a run;
// only a failure to set the run up does.
package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/corpus"
	"github.com/lattice-substrate/primcheck/fixture"
	"github.com/lattice-substrate/primcheck/prim"
	"github.com/lattice-substrate/primcheck/primerr"
	"github.com/lattice-substrate/primcheck/procedure"
)

// State is the orchestrator's position in a run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateAggregating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Factory builds a fresh library on top of heap. Every run gets new
// libraries so nothing carries over between runs.
type Factory func(heap *prim.Heap) prim.Library

// Suite runs the corpus against a reference and a candidate.
type Suite struct {
	profile   *Profile
	reference Factory
	candidate Factory
	progress  io.Writer

	state    State
	category int
	observer func(State, int)
}

// Option configures a Suite.
type Option func(*Suite)

// WithProgress sends one line per category to w.
func WithProgress(w io.Writer) Option {
	return func(s *Suite) { s.progress = w }
}

// WithObserver calls fn on every state transition with the index of the
// current category.
func WithObserver(fn func(State, int)) Option {
	return func(s *Suite) { s.observer = fn }
}

// New validates its inputs and returns an idle suite.
func New(p *Profile, reference, candidate Factory, opts ...Option) (*Suite, error) {
	if p == nil {
		p = DefaultProfile()
	}
	if err := ValidateProfile(p); err != nil {
		return nil, err
	}
	if reference == nil || candidate == nil {
		return nil, primerr.New(primerr.InternalError, "", "reference and candidate libraries are required")
	}
	s := &Suite{profile: p, reference: reference, candidate: candidate, progress: io.Discard}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the current state and category index.
func (s *Suite) State() (State, int) {
	return s.state, s.category
}

func (s *Suite) enter(st State, category int) {
	s.state, s.category = st, category
	if s.observer != nil {
		s.observer(st, category)
	}
}

// Run executes every configured category once with fresh fixtures and
// libraries. The returned error is non-nil only when the run could not be
// set up or ctx ended it early. Fixture removal failures go to
// Report.CleanupErrors, or are joined into the error when there is no report.
func (s *Suite) Run(ctx context.Context) (rep *Report, err error) {
	if s.state == StateRunning || s.state == StateAggregating {
		return nil, primerr.New(primerr.InternalError, "", "suite is already running")
	}
	s.enter(StateIdle, 0)

	dir, removeDir, err := s.workDir()
	if err != nil {
		return nil, err
	}
	var mgr *fixture.Manager
	defer func() {
		var cleanupErrs []error
		if mgr != nil {
			cleanupErrs = mgr.Cleanup()
		}
		if removeErr := removeDir(); removeErr != nil {
			cleanupErrs = append(cleanupErrs, removeErr)
		}
		switch {
		case rep != nil:
			rep.CleanupErrors = cleanupErrs
		case err != nil && len(cleanupErrs) > 0:
			err = errors.Join(append([]error{err}, cleanupErrs...)...)
		}
		if s.state != StateDone {
			s.enter(StateDone, s.category)
		}
	}()
	mgr, err = fixture.NewManager(dir)
	if err != nil {
		return nil, err
	}

	refLib := s.reference(prim.NewHeap(s.profile.HeapLimit))
	candLib := s.candidate(prim.NewHeap(s.profile.HeapLimit))
	env := &procedure.Env{
		Reference:   refLib,
		Candidate:   candLib,
		Ambient:     &prim.Channel{},
		Fixtures:    mgr,
		CompareMode: check.CompareMode(s.profile.CompareMode),
	}

	var verdicts []check.Verdict
	for i, category := range s.profile.Categories {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("suite interrupted before %s: %w", category, ctxErr)
		}
		s.enter(StateRunning, i)
		cases := s.runCategory(env, category)
		if err := writef(s.progress, "[%d/%d] %s: %d cases\n", i+1, len(s.profile.Categories), category, len(cases)); err != nil {
			return nil, err
		}
		verdicts = append(verdicts, cases...)
	}

	// Fixtures are removed by the deferred cleanup; leaks are counted now,
	// after the duplicate category freed what it owned.
	s.enter(StateAggregating, len(s.profile.Categories))
	rep = aggregate(s.profile, refLib, candLib, verdicts)
	rep.LeakedAllocations = refLib.Heap().Live() + candLib.Heap().Live()
	s.enter(StateDone, len(s.profile.Categories))
	return rep, nil
}

func (s *Suite) workDir() (string, func() error, error) {
	if s.profile.WorkDir != "" {
		return s.profile.WorkDir, func() error { return nil }, nil
	}
	dir, err := os.MkdirTemp("", "primcheck-*")
	if err != nil {
		return "", nil, primerr.Wrap(primerr.ResourceError, "", "create work directory", err)
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}

func (s *Suite) runCategory(env *procedure.Env, category string) []check.Verdict {
	var out []check.Verdict
	switch category {
	case procedure.CategoryLength:
		for _, c := range corpus.Strings() {
			out = append(out, procedure.Length(env, c))
		}
	case procedure.CategoryCopy:
		for _, c := range corpus.Copies() {
			out = append(out, procedure.Copy(env, c))
		}
	case procedure.CategoryCompare:
		for _, c := range corpus.Pairs() {
			out = append(out, procedure.Compare(env, c))
		}
	case procedure.CategoryWrite:
		for _, c := range corpus.Writes(s.profile.IncludeStdout) {
			out = append(out, procedure.Write(env, c))
		}
	case procedure.CategoryRead:
		for _, c := range corpus.Reads(s.profile.Interactive) {
			out = append(out, procedure.Read(env, c))
		}
	case procedure.CategoryDuplicate:
		for _, c := range corpus.Duplicates(s.profile.HeapLimit) {
			out = append(out, procedure.Duplicate(env, c))
		}
	}
	return out
}

// RunRepeated runs the suite n times and requires every run's evidence digest
// to equal the first. It returns the first report.
func (s *Suite) RunRepeated(ctx context.Context, n int) (*Report, error) {
	if n < 1 {
		return nil, primerr.New(primerr.CLIUsage, "", fmt.Sprintf("repeat count must be >= 1, got %d", n))
	}
	var first *Report
	var firstDigest string
	for i := 1; i <= n; i++ {
		rep, err := s.Run(ctx)
		if err != nil {
			return nil, err
		}
		digest, err := rep.Evidence().Digest()
		if err != nil {
			return nil, err
		}
		if first == nil {
			first, firstDigest = rep, digest
			continue
		}
		if digest != firstDigest {
			return first, primerr.New(primerr.IdempotenceDrift, "", fmt.Sprintf("run %d evidence digest %s differs from run 1 digest %s", i, digest, firstDigest))
		}
	}
	return first, nil
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return primerr.Wrap(primerr.InternalIO, "", "write progress", err)
	}
	return nil
}
