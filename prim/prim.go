// Package prim defines the contracts of the primitives primcheck compares.
//
// Each primitive category is a small capability interface so that a reference
// implementation and a candidate can be injected side by side. The signatures
// follow the C contracts they model:
//
//	Strlen  -> count of bytes before the first NUL
//	Strcpy  -> the destination it was given
//	Strcmp  -> a signed integer whose sign carries the ordering
//	Write   -> transfer count, or -1 with the error channel set
//	Read    -> transfer count, or -1 with the error channel set
//	Strdup  -> a newly owned allocation, or nil with the error channel set
//
// The error channel is explicit state handed to each call instead of a
// process-wide errno, so one invocation cannot observe another's leftovers.
package prim

// Lengther measures NUL-terminated strings.
type Lengther interface {
	Strlen(s []byte) int
}

// Copier copies a NUL-terminated string into a destination buffer.
type Copier interface {
	Strcpy(dst, src []byte) []byte
}

// Comparer orders two NUL-terminated strings by unsigned byte value.
type Comparer interface {
	Strcmp(a, b []byte) int
}

// Writer transfers up to n bytes of buf to descriptor fd.
type Writer interface {
	Write(ch *Channel, fd int, buf []byte, n int) int
}

// Reader transfers up to n bytes from descriptor fd into buf.
type Reader interface {
	Read(ch *Channel, fd int, buf []byte, n int) int
}

// Duplicator copies a NUL-terminated string into a new allocation.
type Duplicator interface {
	Strdup(ch *Channel, s []byte) *Allocation
}

// Library is a complete implementation of every primitive category.
type Library interface {
	Name() string
	Heap() *Heap
	Lengther
	Copier
	Comparer
	Writer
	Reader
	Duplicator
}
