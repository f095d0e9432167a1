package prim

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Errno is an errno-style error-channel value. Zero is neutral.
type Errno unix.Errno

// String renders the value with its symbolic name when one is known.
func (e Errno) String() string {
	if e == 0 {
		return "0"
	}
	if name := unix.ErrnoName(unix.Errno(e)); name != "" {
		return fmt.Sprintf("%d (%s)", int(e), name)
	}
	return fmt.Sprintf("%d", int(e))
}

// ErrnoOf extracts the errno carried by err. Errors without one map to EIO.
func ErrnoOf(err error) Errno {
	if err == nil {
		return 0
	}
	var en unix.Errno
	if errors.As(err, &en) {
		return Errno(en)
	}
	return Errno(unix.EIO)
}

// Channel is the out-of-band error indicator of one invocation.
type Channel struct {
	errno Errno
}

// Errno returns the current value.
func (c *Channel) Errno() Errno {
	return c.errno
}

// Set stores e.
func (c *Channel) Set(e Errno) {
	c.errno = e
}

// Reset restores the neutral value.
func (c *Channel) Reset() {
	c.errno = 0
}

// Swap installs e and returns the previous value.
func (c *Channel) Swap(e Errno) Errno {
	prev := c.errno
	c.errno = e
	return prev
}
