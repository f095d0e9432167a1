package procedure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/corpus"
	"github.com/lattice-substrate/primcheck/fixture"
	"github.com/lattice-substrate/primcheck/ftlib"
	"github.com/lattice-substrate/primcheck/oracle"
	"github.com/lattice-substrate/primcheck/prim"
	"github.com/lattice-substrate/primcheck/primerr"
)

func newEnv(t *testing.T, cand prim.Library) *Env {
	t.Helper()
	m, err := fixture.NewManager(filepath.Join(t.TempDir(), "fx"))
	require.NoError(t, err)
	t.Cleanup(func() { require.Empty(t, m.Cleanup()) })
	if cand == nil {
		cand = ftlib.New(prim.NewHeap(corpus.DefaultHeapLimit))
	}
	return &Env{
		Reference:   oracle.New(prim.NewHeap(corpus.DefaultHeapLimit)),
		Candidate:   cand,
		Ambient:     &prim.Channel{},
		Fixtures:    m,
		CompareMode: check.Lenient,
	}
}

// skewed gets a few things subtly wrong.
type skewed struct {
	*ftlib.Library
}

func (s skewed) Strlen(b []byte) int {
	n := s.Library.Strlen(b)
	if n >= 1000 {
		return n - 1
	}
	return n
}

func (s skewed) Strcpy(dst, src []byte) []byte {
	s.Library.Strcpy(dst, src)
	return src
}

func (s skewed) Strcmp(a, b []byte) int {
	return -s.Library.Strcmp(a, b)
}

// Write reports failure without touching the error channel.
func (s skewed) Write(ch *prim.Channel, fd int, buf []byte, n int) int {
	if fd < 0 {
		return -1
	}
	return s.Library.Write(ch, fd, buf, n)
}

// Read drops the last byte of every successful read.
func (s skewed) Read(ch *prim.Channel, fd int, buf []byte, n int) int {
	got := s.Library.Read(ch, fd, buf, n)
	if got > 1 {
		return got - 1
	}
	return got
}

// Strdup leaks: it never hands back the allocation it made.
func (s skewed) Strdup(ch *prim.Channel, b []byte) *prim.Allocation {
	_ = s.Library.Strdup(ch, b)
	return nil
}

// forged hands back an allocation no heap made.
type forged struct {
	*ftlib.Library
}

func (forged) Strdup(*prim.Channel, []byte) *prim.Allocation {
	return new(prim.Allocation)
}

func newSkewed() prim.Library {
	return skewed{Library: ftlib.New(prim.NewHeap(corpus.DefaultHeapLimit))}
}

func TestLengthCorpusPasses(t *testing.T) {
	env := newEnv(t, nil)
	for _, c := range corpus.Strings() {
		v := Length(env, c)
		require.True(t, v.Passed(), "%s: %+v", v.ID(), v.Results)
	}
}

func TestLengthDetectsDisagreement(t *testing.T) {
	env := newEnv(t, newSkewed())
	v := Length(env, corpus.StringCase{Label: "long", Value: prim.CStr(corpus.Alphabet(1000))})
	require.False(t, v.Passed())
	require.Equal(t, []check.Aspect{check.AspectReturn}, v.FailedAspects())
}

func TestCopyCorpusPasses(t *testing.T) {
	env := newEnv(t, nil)
	for _, c := range corpus.Copies() {
		v := Copy(env, c)
		require.True(t, v.Passed(), "%s: %+v", v.ID(), v.Results)
		if c.Ambiguous {
			require.Equal(t, primerr.AmbiguousInput, v.Class)
			require.Equal(t, check.AspectFault, v.Results[0].Aspect)
		}
	}
}

func TestCopyFaultReportsResidue(t *testing.T) {
	env := newEnv(t, nil)
	v := Copy(env, corpus.CopyCase{Label: "tiny", Src: prim.CStr("Spec"), DstSize: 2, Ambiguous: true})
	require.True(t, v.Passed(), "%+v", v.Results)
	require.Len(t, v.Results, 2)
	require.Equal(t, check.AspectFault, v.Results[0].Aspect)
	residue := v.Results[1]
	require.Equal(t, check.AspectContent, residue.Aspect)
	require.True(t, residue.Informative)
	require.False(t, residue.Pass)
	require.Equal(t, `"\xaa\xaa"`, residue.Reference)
	require.Equal(t, `"Sp"`, residue.Candidate)
	require.Empty(t, v.FailedAspects())
}

func TestCopyDetectsWrongPointer(t *testing.T) {
	env := newEnv(t, newSkewed())
	v := Copy(env, corpus.Copies()[0])
	require.Equal(t, []check.Aspect{check.AspectPointer}, v.FailedAspects())
}

func TestCompareCorpusLenient(t *testing.T) {
	env := newEnv(t, nil)
	for _, c := range corpus.Pairs() {
		v := Compare(env, c)
		require.True(t, v.Passed(), "%s: %+v", v.ID(), v.Results)
	}
}

func TestCompareStrictExposesMagnitude(t *testing.T) {
	env := newEnv(t, nil)
	env.CompareMode = check.Strict
	v := Compare(env, corpus.PairCase{Label: "test_vs_testing", A: prim.CStr("test"), B: prim.CStr("testing")})
	require.Equal(t, []check.Aspect{check.AspectReturn}, v.FailedAspects())

	v = Compare(env, corpus.PairCase{Label: "equal", A: prim.CStr("same"), B: prim.CStr("same")})
	require.True(t, v.Passed())
}

func TestCompareDetectsInvertedSign(t *testing.T) {
	env := newEnv(t, newSkewed())
	v := Compare(env, corpus.PairCase{Label: "test_vs_testing", A: prim.CStr("test"), B: prim.CStr("testing")})
	require.Equal(t, []check.Aspect{check.AspectReturn}, v.FailedAspects())
	require.Equal(t, "negative (-1)", v.Results[0].Reference)
}

func TestWriteCorpusPasses(t *testing.T) {
	env := newEnv(t, nil)
	for _, c := range corpus.Writes(false) {
		v := Write(env, c)
		require.True(t, v.Passed(), "%s: %+v err=%v", v.ID(), v.Results, v.Err)
	}
	data, err := env.Fixtures.VerifyContent(WrittenName(corpus.RoundTripSource, LegCandidate))
	require.NoError(t, err)
	require.Equal(t, corpus.RoundTripData, data)
}

func TestWriteResetsChannelBetweenLegs(t *testing.T) {
	env := newEnv(t, newSkewed())
	env.Ambient.Set(prim.Errno(unix.EINTR))

	v := Write(env, corpus.TransferCase{Label: "invalid_fd", Target: corpus.TargetInvalid, Data: []byte("x"), BufSize: 1, Count: 1})
	require.Equal(t, []check.Aspect{check.AspectErrno}, v.FailedAspects())
	require.Equal(t, "0", v.Results[1].Candidate)
	require.Equal(t, prim.Errno(unix.EINTR), env.Ambient.Errno())
}

func TestReadCorpusPasses(t *testing.T) {
	env := newEnv(t, nil)
	for _, c := range corpus.Writes(false) {
		require.True(t, Write(env, c).Passed())
	}
	for _, c := range corpus.Reads(false) {
		v := Read(env, c)
		require.True(t, v.Passed(), "%s: %+v err=%v", v.ID(), v.Results, v.Err)
	}
}

func TestReadLegsStartAtSameOffset(t *testing.T) {
	env := newEnv(t, nil)
	c := corpus.TransferCase{Label: "from_offset", Target: corpus.TargetFixture, Data: []byte("0123456789"), Offset: 4, BufSize: 3, Count: 3}
	v := Read(env, c)
	require.True(t, v.Passed(), "%+v", v.Results)
	require.Equal(t, `"456"`, v.Results[1].Reference)
	require.Equal(t, `"456"`, v.Results[1].Candidate)
}

func TestReadCountAndContentReportedSeparately(t *testing.T) {
	env := newEnv(t, newSkewed())
	v := Read(env, corpus.Reads(false)[0])
	require.Equal(t, []check.Aspect{check.AspectReturn}, v.FailedAspects())
}

func TestReadRoundTripWithoutSourceIsResourceError(t *testing.T) {
	env := newEnv(t, nil)
	v := Read(env, corpus.TransferCase{Label: "round_trip_candidate_written", Target: corpus.TargetRoundTrip, Source: LegCandidate, BufSize: 8, Count: 8})
	require.False(t, v.Passed())
	require.Equal(t, primerr.ResourceError, primerr.ClassOf(v.Err))
}

func TestReadClosedDescriptor(t *testing.T) {
	env := newEnv(t, nil)
	v := Read(env, corpus.TransferCase{Label: "closed_fd", Target: corpus.TargetClosed, BufSize: 4, Count: 4})
	require.True(t, v.Passed())
	require.Equal(t, "-1", v.Results[0].Reference)
	require.Contains(t, v.Results[1].Reference, "EBADF")
	require.Equal(t, v.Results[1].Reference, v.Results[1].Candidate)
}

func TestDuplicateCorpusPassesAndFreesEverything(t *testing.T) {
	env := newEnv(t, nil)
	for _, c := range corpus.Duplicates(corpus.DefaultHeapLimit) {
		v := Duplicate(env, c)
		require.True(t, v.Passed(), "%s: %+v", v.ID(), v.Results)
	}
	require.Zero(t, env.Reference.Heap().Live())
	require.Zero(t, env.Candidate.Heap().Live())
	require.NotZero(t, env.Candidate.Heap().Total())
}

func TestDuplicateEmptyYieldsOwnedBuffers(t *testing.T) {
	env := newEnv(t, nil)
	v := Duplicate(env, corpus.StringCase{Label: "empty", Value: prim.CStr("")})
	require.True(t, v.Passed())
	require.Equal(t, "allocated", v.Results[0].Reference)
	require.Equal(t, "allocated", v.Results[0].Candidate)
}

func TestDuplicateDetectsNullDisagreement(t *testing.T) {
	env := newEnv(t, newSkewed())
	v := Duplicate(env, corpus.StringCase{Label: "greeting", Value: prim.CStr("Hello")})
	require.Equal(t, []check.Aspect{check.AspectAllocation}, v.FailedAspects())
	require.Zero(t, env.Reference.Heap().Live())
	require.Equal(t, 1, env.Candidate.Heap().Live())
}

func TestDuplicateForeignAllocationIsResourceError(t *testing.T) {
	env := newEnv(t, forged{Library: ftlib.New(prim.NewHeap(corpus.DefaultHeapLimit))})
	var v check.Verdict
	require.NotPanics(t, func() {
		v = Duplicate(env, corpus.StringCase{Label: "empty", Value: prim.CStr("")})
	})
	require.False(t, v.Passed())
	require.Equal(t, primerr.ResourceError, primerr.ClassOf(v.Err))
	require.ErrorContains(t, v.Err, "not owned by any heap")
	require.Zero(t, env.Reference.Heap().Live())
}

func TestReleaseRecoversPanickingFree(t *testing.T) {
	var a *prim.Allocation
	err := release(a)
	require.Equal(t, primerr.InternalError, primerr.ClassOf(err))
	require.ErrorContains(t, err, "free panicked")
}
