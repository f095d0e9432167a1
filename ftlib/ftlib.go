// Package ftlib is the candidate implementation checked by primcheck.
//
// Everything is written out by hand: string primitives walk bytes one at a
// time and byte-stream primitives issue raw read(2)/write(2) system calls.
package ftlib

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/lattice-substrate/primcheck/prim"
)

// Library implements prim.Library.
type Library struct {
	heap *prim.Heap
}

var _ prim.Library = (*Library)(nil)

// New returns a candidate library allocating from heap.
func New(heap *prim.Heap) *Library {
	return &Library{heap: heap}
}

// Name implements prim.Library.
func (*Library) Name() string { return "ftlib" }

// Heap implements prim.Library.
func (l *Library) Heap() *prim.Heap { return l.heap }

// Strlen implements prim.Lengther.
func (*Library) Strlen(s []byte) int {
	i := 0
	for i < len(s) && s[i] != 0 {
		i++
	}
	return i
}

// Strcpy implements prim.Copier.
func (*Library) Strcpy(dst, src []byte) []byte {
	i := 0
	for i < len(src) && src[i] != 0 {
		dst[i] = src[i]
		i++
	}
	dst[i] = 0
	return dst
}

// Strcmp implements prim.Comparer. It returns the difference of the first
// mismatching bytes.
func (*Library) Strcmp(a, b []byte) int {
	i := 0
	for at(a, i) != 0 && at(a, i) == at(b, i) {
		i++
	}
	return int(at(a, i)) - int(at(b, i))
}

// at treats bytes past the end of s as the terminator.
func at(s []byte, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// Write implements prim.Writer.
func (*Library) Write(ch *prim.Channel, fd int, buf []byte, n int) int {
	return transfer(ch, unix.SYS_WRITE, fd, buf, n)
}

// Read implements prim.Reader.
func (*Library) Read(ch *prim.Channel, fd int, buf []byte, n int) int {
	return transfer(ch, unix.SYS_READ, fd, buf, n)
}

func transfer(ch *prim.Channel, trap uintptr, fd int, buf []byte, n int) int {
	if n < 0 {
		ch.Set(prim.Errno(unix.EINVAL))
		return -1
	}
	var p unsafe.Pointer
	// Never hand the kernel an address range past the end of buf; a NULL
	// pointer makes it report EFAULT itself.
	if n <= len(buf) && len(buf) > 0 {
		p = unsafe.Pointer(&buf[0])
	}
	r, _, errno := unix.Syscall(trap, uintptr(fd), uintptr(p), uintptr(n))
	if errno != 0 {
		ch.Set(prim.Errno(errno))
		return -1
	}
	return int(r)
}

// Strdup implements prim.Duplicator.
func (l *Library) Strdup(ch *prim.Channel, s []byte) *prim.Allocation {
	n := l.Strlen(s)
	a, err := l.heap.Alloc(n + 1)
	if err != nil {
		ch.Set(prim.ErrnoOf(err))
		return nil
	}
	dst := a.Bytes()
	for i := 0; i < n; i++ {
		dst[i] = s[i]
	}
	dst[n] = 0
	return a
}
