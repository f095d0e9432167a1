package prim

import "bytes"

// CStr returns s as a NUL-terminated byte string. Bytes of s after an
// embedded NUL are kept, but every C-contract primitive stops at the first.
func CStr(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// GoString returns the bytes of s before the first NUL. Without a NUL the
// whole slice is returned.
func GoString(s []byte) string {
	if i := bytes.IndexByte(s, 0); i >= 0 {
		return string(s[:i])
	}
	return string(s)
}

// Filled returns a buffer of n bytes set to fill. Destination buffers are
// pre-filled so that bytes a copy leaves untouched are comparable too.
func Filled(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}

// SameBase reports whether a and b start at the same address. Two empty
// slices never share a base.
func SameBase(a, b []byte) bool {
	if cap(a) == 0 || cap(b) == 0 {
		return false
	}
	return &a[:1][0] == &b[:1][0]
}
