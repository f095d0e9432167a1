package check

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/lattice-substrate/primcheck/prim"
	"github.com/lattice-substrate/primcheck/primerr"
)

func aspects(rs []Result) map[Aspect]bool {
	out := make(map[Aspect]bool, len(rs))
	for _, r := range rs {
		out[r.Aspect] = r.Pass
	}
	return out
}

func TestLength(t *testing.T) {
	require.True(t, Length(Observation{Return: 13}, Observation{Return: 13})[0].Pass)
	require.False(t, Length(Observation{Return: 0}, Observation{Return: 1})[0].Pass)
}

func TestCopyAspectsAreIndependent(t *testing.T) {
	cases := []struct {
		name string
		ref  Observation
		cand Observation
		want map[Aspect]bool
	}{
		{
			name: "equivalent",
			ref:  Observation{Pointer: true, Buffer: []byte("ab\x00\xaa")},
			cand: Observation{Pointer: true, Buffer: []byte("ab\x00\xaa")},
			want: map[Aspect]bool{AspectPointer: true, AspectContent: true},
		},
		{
			name: "returned source",
			ref:  Observation{Pointer: true, Buffer: []byte("ab\x00")},
			cand: Observation{Pointer: false, Buffer: []byte("ab\x00")},
			want: map[Aspect]bool{AspectPointer: false, AspectContent: true},
		},
		{
			name: "missing terminator",
			ref:  Observation{Pointer: true, Buffer: []byte("ab\x00\xaa")},
			cand: Observation{Pointer: true, Buffer: []byte("ab\xaa\xaa")},
			want: map[Aspect]bool{AspectPointer: true, AspectContent: false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, aspects(Copy(tc.ref, tc.cand))); diff != "" {
				t.Fatalf("aspects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompareModes(t *testing.T) {
	ref := Observation{Return: -1}
	cand := Observation{Return: -105}

	require.True(t, Compare(Lenient, ref, cand)[0].Pass)
	require.False(t, Compare(Strict, ref, cand)[0].Pass)
	require.True(t, Compare(Strict, Observation{Return: 0}, Observation{Return: 0})[0].Pass)
	require.False(t, Compare(Lenient, Observation{Return: 1}, Observation{Return: 0})[0].Pass)
}

func TestParseCompareMode(t *testing.T) {
	m, err := ParseCompareMode("")
	require.NoError(t, err)
	require.Equal(t, Lenient, m)

	m, err = ParseCompareMode("strict")
	require.NoError(t, err)
	require.Equal(t, Strict, m)

	_, err = ParseCompareMode("fuzzy")
	require.Equal(t, primerr.ConfigInvalid, primerr.ClassOf(err))
}

func TestSymmetry(t *testing.T) {
	neg, pos, zero := Observation{Return: -1}, Observation{Return: 105}, Observation{Return: 0}
	require.True(t, Symmetry(neg, pos, neg, pos).Pass)
	require.True(t, Symmetry(zero, zero, zero, zero).Pass)
	require.False(t, Symmetry(neg, pos, neg, neg).Pass)
}

func TestTransfer(t *testing.T) {
	ebadf := prim.Errno(unix.EBADF)
	efault := prim.Errno(unix.EFAULT)
	cases := []struct {
		name string
		ref  Observation
		cand Observation
		read bool
		want map[Aspect]bool
	}{
		{
			name: "write count",
			ref:  Observation{Return: 5},
			cand: Observation{Return: 5},
			want: map[Aspect]bool{AspectReturn: true},
		},
		{
			name: "matching failure",
			ref:  Observation{Return: -1, Errno: ebadf},
			cand: Observation{Return: -1, Errno: ebadf},
			want: map[Aspect]bool{AspectReturn: true, AspectErrno: true},
		},
		{
			name: "errno mismatch",
			ref:  Observation{Return: -1, Errno: ebadf},
			cand: Observation{Return: -1, Errno: efault},
			want: map[Aspect]bool{AspectReturn: true, AspectErrno: false},
		},
		{
			name: "read prefix compared despite count mismatch",
			ref:  Observation{Return: 4, Buffer: []byte("abcd")},
			cand: Observation{Return: 2, Buffer: []byte("abXX")},
			read: true,
			want: map[Aspect]bool{AspectReturn: false, AspectContent: true},
		},
		{
			name: "read content mismatch",
			ref:  Observation{Return: 2, Buffer: []byte("ab")},
			cand: Observation{Return: 2, Buffer: []byte("aX")},
			read: true,
			want: map[Aspect]bool{AspectReturn: true, AspectContent: false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, aspects(Transfer(tc.ref, tc.cand, tc.read))); diff != "" {
				t.Fatalf("aspects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAllocation(t *testing.T) {
	enomem := prim.Errno(unix.ENOMEM)
	got := aspects(Allocation(Observation{Buffer: []byte{0}}, Observation{Buffer: []byte{0}}))
	require.Equal(t, map[Aspect]bool{AspectAllocation: true, AspectContent: true}, got)

	got = aspects(Allocation(Observation{Null: true, Errno: enomem}, Observation{Null: true, Errno: enomem}))
	require.Equal(t, map[Aspect]bool{AspectAllocation: true, AspectErrno: true}, got)

	got = aspects(Allocation(Observation{Buffer: []byte{0}}, Observation{Null: true}))
	require.Equal(t, map[Aspect]bool{AspectAllocation: false}, got)
}

func TestFaults(t *testing.T) {
	r, faulted := Faults(Observation{}, Observation{})
	require.True(t, r.Pass)
	require.False(t, faulted)

	r, faulted = Faults(Observation{Panic: "index out of range"}, Observation{Panic: "slice bounds"})
	require.True(t, r.Pass)
	require.True(t, faulted)

	r, _ = Faults(Observation{}, Observation{Panic: "boom"})
	require.False(t, r.Pass)
}

func TestVerdictPassed(t *testing.T) {
	v := Verdict{Category: "length", Label: "empty", Results: []Result{{Aspect: AspectReturn, Pass: true}}}
	require.True(t, v.Passed())
	require.Equal(t, "length/empty", v.ID())

	v.Results = append(v.Results, Result{Aspect: AspectContent})
	require.False(t, v.Passed())
	require.Equal(t, []Aspect{AspectContent}, v.FailedAspects())

	require.False(t, Verdict{Err: primerr.New(primerr.ResourceError, "x", "y")}.Passed())
	require.False(t, Verdict{}.Passed())
}

func TestResidueNeverDecides(t *testing.T) {
	fault, faulted := Faults(Observation{Panic: "index out of range"}, Observation{Panic: "index out of range"})
	require.True(t, faulted)
	residue := Residue([]byte{0xAA, 0xAA}, []byte("Sp"))
	require.Equal(t, AspectContent, residue.Aspect)
	require.True(t, residue.Informative)
	require.False(t, residue.Pass)

	v := Verdict{Category: "copy", Label: "tiny", Results: []Result{fault, residue}}
	require.True(t, v.Passed())
	require.Empty(t, v.FailedAspects())
}

func TestPreview(t *testing.T) {
	require.Equal(t, `"ab\x00"`, Preview([]byte("ab\x00")))
	long := make([]byte, 100)
	require.Contains(t, Preview(long), "(100 bytes)")
}
