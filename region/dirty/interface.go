package dirty

import "context"

// DirtyTracker is the minimal interface for recording modified byte ranges.
// Block storages take one to report every header and payload write.
type DirtyTracker interface {
	// Add marks a byte range as dirty. off is the offset from the start of the region.
	Add(off, length int)
}

// FlushableTracker extends DirtyTracker with methods for flushing dirty regions to disk.
type FlushableTracker interface {
	DirtyTracker

	// FlushDataOnly flushes only the data regions (not the store header page).
	FlushDataOnly(ctx context.Context) error

	// FlushHeaderAndMeta flushes the header page and syncs according to mode.
	FlushHeaderAndMeta(ctx context.Context, mode FlushMode) error
}

// Target is the mapped file a Tracker flushes.
type Target interface {
	Bytes() []byte
	FD() int
}
