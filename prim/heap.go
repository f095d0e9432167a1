package prim

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Heap hands out tracked allocations so that leaks are observable: every
// Allocation must be freed exactly once by whoever received it.
type Heap struct {
	limit int
	live  map[*Allocation]struct{}
	total int
}

// NewHeap returns a heap refusing single allocations larger than limit bytes.
// A limit <= 0 means unbounded.
func NewHeap(limit int) *Heap {
	return &Heap{limit: limit, live: make(map[*Allocation]struct{})}
}

// Alloc returns n zeroed bytes, or ENOMEM when n exceeds the limit.
func (h *Heap) Alloc(n int) (*Allocation, error) {
	if n < 0 || (h.limit > 0 && n > h.limit) {
		return nil, unix.ENOMEM
	}
	a := &Allocation{heap: h, data: make([]byte, n)}
	h.live[a] = struct{}{}
	h.total++
	return a, nil
}

// Live returns the number of allocations not yet freed.
func (h *Heap) Live() int {
	return len(h.live)
}

// Total returns the number of allocations ever made.
func (h *Heap) Total() int {
	return h.total
}

// Allocation is memory owned by the caller of the primitive that returned it.
type Allocation struct {
	heap  *Heap
	data  []byte
	freed bool
}

// Bytes returns the allocated memory. It must not be used after Free.
func (a *Allocation) Bytes() []byte {
	return a.data
}

// Free releases the allocation. Freeing twice, or freeing an allocation no
// heap handed out, is an error.
func (a *Allocation) Free() error {
	if a.heap == nil {
		return errors.New("allocation not owned by any heap")
	}
	if a.freed {
		return fmt.Errorf("double free of %d-byte allocation", len(a.data))
	}
	a.freed = true
	delete(a.heap.live, a)
	a.data = nil
	return nil
}
