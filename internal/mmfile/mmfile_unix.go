//go:build unix

package mmfile

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Supported reports whether Map can share pages with other processes on this platform.
const Supported = true

// Map maps size bytes of the file behind fd read/write with MAP_SHARED, so
// writes are visible to every process mapping the same file.
func Map(fd int, size int) ([]byte, error) {
	if size <= 0 {
		return []byte{}, nil
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmfile: mmap %d bytes: %w", size, err)
	}
	return data, nil
}

// Unmap releases a mapping returned by Map. Unmapping an empty or already
// released mapping is a no-op.
func Unmap(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
