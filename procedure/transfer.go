package procedure

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/corpus"
	"github.com/lattice-substrate/primcheck/fixture"
	"github.com/lattice-substrate/primcheck/prim"
	"github.com/lattice-substrate/primcheck/primerr"
)

const (
	stdinFD  = 0
	stdoutFD = 1
)

// Leg names used in fixture file names.
const (
	LegReference = "ref"
	LegCandidate = "cand"
)

// WrittenName is the fixture a write case's leg writes into. Files named this
// way outlive the case so later categories can read them back.
func WrittenName(label, leg string) string {
	return fmt.Sprintf("write-%s.%s", label, leg)
}

// target is the descriptor setup for one transfer pair. Shared targets hand
// both legs the same fd; per-leg targets give each leg a file of its own.
type target struct {
	refFD, candFD int
	// seekable marks fds whose offset is saved and restored around each leg.
	seekable bool
	perLeg   bool
	handles  []*fixture.Handle
}

func (t *target) release() error {
	var first error
	for _, h := range t.handles {
		if err := h.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (e *Env) open(t *target, name string, flags int) (int, error) {
	h, err := e.Fixtures.Open(name, flags)
	if err != nil {
		return -1, err
	}
	t.handles = append(t.handles, h)
	return h.FD(), nil
}

// Write compares write(2) behavior for one case. Fixture targets give each
// leg its own fresh file, whose content is read back and compared.
func Write(env *Env, c corpus.TransferCase) (v check.Verdict) {
	v = newVerdict(CategoryWrite, c.Label, c.Ambiguous)
	t, err := env.writeTarget(c)
	defer func() {
		if relErr := t.release(); relErr != nil && v.Err == nil {
			v.Err = relErr
		}
	}()
	if err != nil {
		return failed(v, err)
	}

	refBuf, candBuf := transferBuffers(c, true)
	var ref, cand check.Observation
	env.withChannel(func() {
		env.leg(&ref, func(ch *prim.Channel) { ref.Return = env.Reference.Write(ch, t.refFD, refBuf, c.Count) })
		env.leg(&cand, func(ch *prim.Channel) { cand.Return = env.Candidate.Write(ch, t.candFD, candBuf, c.Count) })
	})

	v = conclude(v, ref, cand, func(ref, cand check.Observation) []check.Result {
		return check.Transfer(ref, cand, false)
	})
	if !t.perLeg || len(v.Results) == 0 || v.Results[0].Aspect == check.AspectFault {
		return v
	}
	refData, err := env.Fixtures.VerifyContent(WrittenName(c.Label, LegReference))
	if err != nil {
		return failed(v, err)
	}
	candData, err := env.Fixtures.VerifyContent(WrittenName(c.Label, LegCandidate))
	if err != nil {
		return failed(v, err)
	}
	v.Results = append(v.Results, check.Content(refData, candData))
	return v
}

func (e *Env) writeTarget(c corpus.TransferCase) (*target, error) {
	t := &target{}
	switch c.Target {
	case corpus.TargetFixture:
		t.perLeg = true
		fd, err := e.open(t, WrittenName(c.Label, LegReference), unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC)
		if err != nil {
			return t, err
		}
		t.refFD = fd
		fd, err = e.open(t, WrittenName(c.Label, LegCandidate), unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC)
		if err != nil {
			return t, err
		}
		t.candFD = fd
	case corpus.TargetWrongMode:
		name := fmt.Sprintf("write-%s.ro", c.Label)
		if _, err := e.Fixtures.Create(name, c.Data); err != nil {
			return t, err
		}
		fd, err := e.open(t, name, unix.O_RDONLY)
		if err != nil {
			return t, err
		}
		t.refFD, t.candFD = fd, fd
	case corpus.TargetStdio:
		t.refFD, t.candFD = stdoutFD, stdoutFD
	default:
		return t, e.sharedInvalid(t, c)
	}
	return t, nil
}

// sharedInvalid points both legs at a descriptor that must fail.
func (e *Env) sharedInvalid(t *target, c corpus.TransferCase) error {
	switch c.Target {
	case corpus.TargetInvalid:
		t.refFD, t.candFD = -1, -1
		return nil
	case corpus.TargetClosed:
		fd, err := e.Fixtures.ClosedFD()
		if err != nil {
			return err
		}
		t.refFD, t.candFD = fd, fd
		return nil
	default:
		return primerr.New(primerr.InternalError, c.Label, fmt.Sprintf("unsupported target %s", c.Target))
	}
}

// Read compares read(2) behavior for one case. Both legs read the same
// descriptor; its offset is restored after each leg so both start at the same
// position.
func Read(env *Env, c corpus.TransferCase) (v check.Verdict) {
	v = newVerdict(CategoryRead, c.Label, c.Ambiguous)
	t, err := env.readTarget(c)
	defer func() {
		if relErr := t.release(); relErr != nil && v.Err == nil {
			v.Err = relErr
		}
	}()
	if err != nil {
		return failed(v, err)
	}

	refBuf, candBuf := transferBuffers(c, false)
	var ref, cand check.Observation
	var legErr error
	env.withChannel(func() {
		legErr = env.readLeg(t, &ref, env.Reference, t.refFD, refBuf, c.Count)
		if legErr != nil {
			return
		}
		legErr = env.readLeg(t, &cand, env.Candidate, t.candFD, candBuf, c.Count)
	})
	if legErr != nil {
		return failed(v, legErr)
	}
	ref.Buffer = readBack(refBuf, ref.Return)
	cand.Buffer = readBack(candBuf, cand.Return)

	return conclude(v, ref, cand, func(ref, cand check.Observation) []check.Result {
		// Each leg consumes its own line of interactive input, so only the
		// counts and errno are comparable.
		out := check.Transfer(ref, cand, !c.Interactive)
		if c.Target == corpus.TargetRoundTrip {
			out = append(out, check.RoundTrip(corpus.RoundTripData, ref, cand))
		}
		return out
	})
}

func (e *Env) readLeg(t *target, o *check.Observation, lib prim.Reader, fd int, buf []byte, n int) error {
	run := func() error {
		e.leg(o, func(ch *prim.Channel) { o.Return = lib.Read(ch, fd, buf, n) })
		return nil
	}
	if !t.seekable {
		return run()
	}
	return fixture.WithSavedPosition(fd, run)
}

func (e *Env) readTarget(c corpus.TransferCase) (*target, error) {
	t := &target{}
	switch c.Target {
	case corpus.TargetFixture, corpus.TargetWrongMode:
		name := fmt.Sprintf("read-%s.dat", c.Label)
		if _, err := e.Fixtures.Create(name, c.Data); err != nil {
			return t, err
		}
		flags := unix.O_RDONLY
		if c.Target == corpus.TargetWrongMode {
			flags = unix.O_WRONLY
		}
		fd, err := e.open(t, name, flags)
		if err != nil {
			return t, err
		}
		if _, err := unix.Seek(fd, c.Offset, unix.SEEK_SET); err != nil {
			return t, primerr.Wrap(primerr.ResourceError, c.Label, "position read fixture", err)
		}
		t.refFD, t.candFD, t.seekable = fd, fd, true
	case corpus.TargetRoundTrip:
		fd, err := e.open(t, WrittenName(corpus.RoundTripSource, c.Source), unix.O_RDONLY)
		if err != nil {
			return t, err
		}
		t.refFD, t.candFD, t.seekable = fd, fd, true
	case corpus.TargetStdio:
		t.refFD, t.candFD = stdinFD, stdinFD
	default:
		return t, e.sharedInvalid(t, c)
	}
	return t, nil
}

// transferBuffers builds one buffer per leg. Write buffers carry the case
// data; read buffers start zeroed.
func transferBuffers(c corpus.TransferCase, withData bool) (ref, cand []byte) {
	if c.NilBuffer {
		return nil, nil
	}
	ref = make([]byte, c.BufSize)
	cand = make([]byte, c.BufSize)
	if withData {
		copy(ref, c.Data)
		copy(cand, c.Data)
	}
	return ref, cand
}

func readBack(buf []byte, n int) []byte {
	if n <= 0 || buf == nil {
		return nil
	}
	return buf[:min(n, len(buf))]
}
