//go:build !unix

package dirty

import "context"

// flushRanges is a no-op: without shared mappings the region writes itself
// back on Sync.
func (t *Tracker) flushRanges(ctx context.Context, _ []byte) error {
	return ctx.Err()
}

func msync([]byte) error { return nil }

func fdatasync(int, bool) error { return nil }
