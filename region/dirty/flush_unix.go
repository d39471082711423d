//go:build unix && !darwin

package dirty

import (
	"context"

	"golang.org/x/sys/unix"
)

// flushRanges flushes individual dirty ranges to disk.
//
// On Linux and the BSDs msync() accepts page-aligned sub-slices of a mapping.
func (t *Tracker) flushRanges(ctx context.Context, data []byte) error {
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}

		// The header page is flushed by FlushHeaderAndMeta.
		if r.Off == 0 {
			if r.Len <= t.pageSize {
				continue
			}
			r.Off += t.pageSize
			r.Len -= t.pageSize
		}

		start := int(r.Off)
		end := int(r.Off + r.Len)
		if start >= len(data) {
			continue
		}
		if end > len(data) {
			end = len(data)
		}

		if err := unix.Msync(data[start:end], unix.MS_SYNC); err != nil {
			return err
		}
	}
	return nil
}

// msync flushes a memory region to disk.
func msync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// fdatasync performs file descriptor sync. fullfsync is ignored off macOS.
func fdatasync(fd int, _ bool) error {
	return unix.Fdatasync(fd)
}
