// Package oracle is the trusted reference implementation of the primitives.
//
// String primitives are expressed through package bytes; byte-stream
// primitives go through golang.org/x/sys/unix so that failures surface the
// kernel's own errno values.
package oracle

import (
	"bytes"

	"golang.org/x/sys/unix"

	"github.com/lattice-substrate/primcheck/prim"
)

// Library implements prim.Library.
type Library struct {
	heap *prim.Heap
}

var _ prim.Library = (*Library)(nil)

// New returns a reference library allocating from heap.
func New(heap *prim.Heap) *Library {
	return &Library{heap: heap}
}

// Name implements prim.Library.
func (*Library) Name() string { return "oracle" }

// Heap implements prim.Library.
func (l *Library) Heap() *prim.Heap { return l.heap }

// Strlen implements prim.Lengther.
func (*Library) Strlen(s []byte) int {
	if i := bytes.IndexByte(s, 0); i >= 0 {
		return i
	}
	return len(s)
}

// Strcpy implements prim.Copier. A destination too small for src and its
// terminator panics, the way an overflowing copy faults.
func (l *Library) Strcpy(dst, src []byte) []byte {
	n := l.Strlen(src)
	copy(dst[:n], src[:n])
	dst[n] = 0
	return dst
}

// Strcmp implements prim.Comparer. Bytes compare as unsigned values.
func (l *Library) Strcmp(a, b []byte) int {
	return bytes.Compare(a[:l.Strlen(a)], b[:l.Strlen(b)])
}

// Write implements prim.Writer.
func (*Library) Write(ch *prim.Channel, fd int, buf []byte, n int) int {
	if n < 0 {
		ch.Set(prim.Errno(unix.EINVAL))
		return -1
	}
	if n > len(buf) {
		return badAddress(ch, func() error {
			_, err := unix.Write(fd, nil)
			return err
		})
	}
	written, err := unix.Write(fd, buf[:n])
	if err != nil {
		ch.Set(prim.ErrnoOf(err))
		return -1
	}
	return written
}

// Read implements prim.Reader.
func (*Library) Read(ch *prim.Channel, fd int, buf []byte, n int) int {
	if n < 0 {
		ch.Set(prim.Errno(unix.EINVAL))
		return -1
	}
	if n > len(buf) {
		return badAddress(ch, func() error {
			_, err := unix.Read(fd, nil)
			return err
		})
	}
	got, err := unix.Read(fd, buf[:n])
	if err != nil {
		ch.Set(prim.ErrnoOf(err))
		return -1
	}
	return got
}

// badAddress reports a buffer that cannot hold the requested count. The
// descriptor is validated first with a zero-length transfer so that a bad
// descriptor wins over a bad address, matching the kernel's order of checks.
func badAddress(ch *prim.Channel, probe func() error) int {
	if err := probe(); err != nil {
		ch.Set(prim.ErrnoOf(err))
		return -1
	}
	ch.Set(prim.Errno(unix.EFAULT))
	return -1
}

// Strdup implements prim.Duplicator.
func (l *Library) Strdup(ch *prim.Channel, s []byte) *prim.Allocation {
	n := l.Strlen(s)
	a, err := l.heap.Alloc(n + 1)
	if err != nil {
		ch.Set(prim.ErrnoOf(err))
		return nil
	}
	copy(a.Bytes(), s[:n])
	return a
}
