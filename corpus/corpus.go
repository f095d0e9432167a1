// Package corpus holds the literal inputs every category runs against.
//
// Tables are rebuilt on each call so no run can mutate another's inputs.
package corpus

import (
	"strings"

	"github.com/lattice-substrate/primcheck/prim"
)

// DefaultHeapLimit bounds a single duplicate allocation.
const DefaultHeapLimit = 64 << 10

// StringCase is one NUL-terminated string.
type StringCase struct {
	Label string
	Value []byte
}

// CopyCase is a source string and the size of the destination it is copied
// into.
type CopyCase struct {
	Label     string
	Src       []byte
	DstSize   int
	Ambiguous bool
}

// PairCase is two strings compared in both orders.
type PairCase struct {
	Label string
	A, B  []byte
}

// Target says which descriptor a transfer case uses.
type Target int

const (
	// TargetFixture is a fresh fixture file opened for the transfer direction.
	TargetFixture Target = iota
	// TargetInvalid is descriptor -1.
	TargetInvalid
	// TargetClosed is a descriptor number that has just been closed.
	TargetClosed
	// TargetWrongMode is a fixture opened for the opposite direction.
	TargetWrongMode
	// TargetRoundTrip is the file a write case left behind.
	TargetRoundTrip
	// TargetStdio is standard output for writes and standard input for reads.
	TargetStdio
)

var targetNames = map[Target]string{
	TargetFixture:   "fixture",
	TargetInvalid:   "invalid",
	TargetClosed:    "closed",
	TargetWrongMode: "wrong-mode",
	TargetRoundTrip: "round-trip",
	TargetStdio:     "stdio",
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return targetNames[t]
}

// TransferCase drives one write or read invocation pair.
type TransferCase struct {
	Label  string
	Target Target
	// Data is what a write sends, or the fixture content a read starts from.
	Data []byte
	// Offset positions a read fixture before the pair runs.
	Offset int64
	// BufSize is the buffer handed to the primitive. NilBuffer passes nil.
	BufSize   int
	NilBuffer bool
	Count     int
	// Source names the write leg whose file a round-trip read consumes.
	Source    string
	Ambiguous bool
	// Interactive cases block on a human operator.
	Interactive bool
}

// Literals shared by several tables.
const (
	greeting     = "Hello, friend"
	specialChars = "Special chars: !@#$%^&*()"
)

// RoundTripData is written by the write category and read back by the read
// category.
var RoundTripData = []byte("round trip: bear cat shark dinosaur human\n\x00\x01\xfe\xff")

// ReadFixtureData is the content read cases start from.
var ReadFixtureData = []byte("bear\ncat\nshark\ndinosaur\nhuman\n")

// Alphabet returns n bytes cycling through A..Z.
func Alphabet(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('A' + i%26))
	}
	return b.String()
}

// Strings is the length corpus.
func Strings() []StringCase {
	return []StringCase{
		{Label: "greeting", Value: prim.CStr(greeting)},
		{Label: "empty", Value: prim.CStr("")},
		{Label: "special_chars", Value: prim.CStr(specialChars)},
		{Label: "alphabet_1000", Value: prim.CStr(Alphabet(1000))},
		{Label: "control_and_high_bytes", Value: prim.CStr("\t\n\r\x01\x7f\x80\xfe\xff")},
		{Label: "embedded_nul", Value: prim.CStr("abc\x00def")},
		{Label: "single_char", Value: prim.CStr("x")},
	}
}

// copySlack is how many sentinel bytes follow the terminator in a
// destination, so bytes past it are compared too.
const copySlack = 4

// Copies is the copy corpus.
func Copies() []CopyCase {
	strs := Strings()
	out := make([]CopyCase, 0, len(strs)+1)
	for _, s := range strs {
		out = append(out, CopyCase{
			Label:   s.Label,
			Src:     s.Value,
			DstSize: len(s.Value) + copySlack,
		})
	}
	return append(out, CopyCase{
		Label:     "destination_too_small",
		Src:       prim.CStr(specialChars),
		DstSize:   4,
		Ambiguous: true,
	})
}

// Pairs is the compare corpus.
func Pairs() []PairCase {
	return []PairCase{
		{Label: "test_vs_testing", A: prim.CStr("test"), B: prim.CStr("testing")},
		{Label: "equal", A: prim.CStr(greeting), B: prim.CStr(greeting)},
		{Label: "both_empty", A: prim.CStr(""), B: prim.CStr("")},
		{Label: "empty_vs_char", A: prim.CStr(""), B: prim.CStr("a")},
		{Label: "last_byte_differs", A: prim.CStr("abcd"), B: prim.CStr("abce")},
		{Label: "case_differs", A: prim.CStr("a"), B: prim.CStr("A")},
		{Label: "high_byte_unsigned", A: prim.CStr("\xff"), B: prim.CStr("a")},
		{Label: "after_embedded_nul", A: prim.CStr("abc\x00x"), B: prim.CStr("abc\x00y")},
		{Label: "special_vs_alphabet", A: prim.CStr(specialChars), B: prim.CStr(Alphabet(1000))},
	}
}

// Writes is the write corpus. Stdio cases are included only when stdio is set.
func Writes(stdio bool) []TransferCase {
	line := []byte(greeting + "\n")
	out := []TransferCase{
		{Label: "fixture_full", Target: TargetFixture, Data: line, BufSize: len(line), Count: len(line)},
		{Label: "partial_count", Target: TargetFixture, Data: []byte("abcdef"), BufSize: 6, Count: 3},
		{Label: "zero_count", Target: TargetFixture, Data: line, BufSize: len(line), Count: 0},
		{Label: "invalid_fd", Target: TargetInvalid, Data: line, BufSize: len(line), Count: len(line)},
		{Label: "closed_fd", Target: TargetClosed, Data: line, BufSize: len(line), Count: len(line)},
		{Label: "read_only_fd", Target: TargetWrongMode, Data: line, BufSize: len(line), Count: len(line)},
		{Label: "nil_buffer", Target: TargetFixture, NilBuffer: true, Count: 5, Ambiguous: true},
		{Label: "round_trip_source", Target: TargetFixture, Data: RoundTripData, BufSize: len(RoundTripData), Count: len(RoundTripData)},
	}
	if stdio {
		msg := []byte("primcheck: hello from write(1)\n")
		out = append(out, TransferCase{Label: "stdout", Target: TargetStdio, Data: msg, BufSize: len(msg), Count: len(msg)})
	}
	return out
}

// RoundTripSource is the label of the write case whose files read cases
// consume.
const RoundTripSource = "round_trip_source"

// Reads is the read corpus. The interactive stdin case is included only when
// interactive is set.
func Reads(interactive bool) []TransferCase {
	size := len(ReadFixtureData)
	out := []TransferCase{
		{Label: "fixture_start", Target: TargetFixture, Data: ReadFixtureData, BufSize: 64, Count: 64},
		{Label: "partial_count", Target: TargetFixture, Data: ReadFixtureData, BufSize: 64, Count: 5},
		{Label: "from_offset", Target: TargetFixture, Data: ReadFixtureData, Offset: 9, BufSize: 64, Count: 64},
		{Label: "at_eof", Target: TargetFixture, Data: ReadFixtureData, Offset: int64(size), BufSize: 64, Count: 64},
		{Label: "zero_count", Target: TargetFixture, Data: ReadFixtureData, BufSize: 64, Count: 0},
		{Label: "invalid_fd", Target: TargetInvalid, BufSize: 64, Count: 64},
		{Label: "closed_fd", Target: TargetClosed, BufSize: 64, Count: 64},
		{Label: "write_only_fd", Target: TargetWrongMode, Data: ReadFixtureData, BufSize: 64, Count: 64},
		{Label: "nil_buffer", Target: TargetFixture, Data: ReadFixtureData, NilBuffer: true, Count: 8, Ambiguous: true},
		{Label: "round_trip_reference_written", Target: TargetRoundTrip, Source: "ref", BufSize: 128, Count: 128},
		{Label: "round_trip_candidate_written", Target: TargetRoundTrip, Source: "cand", BufSize: 128, Count: 128},
	}
	if interactive {
		out = append(out, TransferCase{Label: "stdin", Target: TargetStdio, BufSize: 256, Count: 256, Interactive: true})
	}
	return out
}

// Duplicates is the duplicate corpus. The last entry exceeds heapLimit so
// both implementations must fail to allocate.
func Duplicates(heapLimit int) []StringCase {
	out := []StringCase{
		{Label: "empty", Value: prim.CStr("")},
		{Label: "greeting", Value: prim.CStr(greeting)},
		{Label: "special_chars", Value: prim.CStr(specialChars)},
		{Label: "alphabet_1000", Value: prim.CStr(Alphabet(1000))},
		{Label: "embedded_nul", Value: prim.CStr("abc\x00def")},
	}
	if heapLimit > 0 {
		out = append(out, StringCase{Label: "exceeds_heap_limit", Value: prim.CStr(Alphabet(heapLimit))})
	}
	return out
}
