//go:build !unix

package mmfile

import "errors"

// Supported reports whether Map can share pages with other processes on this platform.
const Supported = false

// ErrUnsupported is returned by Map on platforms without a shared mapping.
var ErrUnsupported = errors.New("mmfile: shared mappings not supported on this platform")

// Map is unavailable; callers fall back to reading the file into memory.
func Map(fd int, size int) ([]byte, error) {
	return nil, ErrUnsupported
}

// Unmap is a no-op.
func Unmap(data []byte) error {
	return nil
}
