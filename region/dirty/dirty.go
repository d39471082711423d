package dirty

import (
	"context"
	"fmt"
	"sort"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// FlushMode controls durability guarantees when the header page is flushed.
type FlushMode int

const (
	// FlushAuto msyncs the header page and fdatasyncs the file.
	FlushAuto FlushMode = iota

	// FlushDataOnly only msyncs; the caller syncs the descriptor later.
	FlushDataOnly

	// FlushFull msyncs and fdatasyncs, using F_FULLFSYNC on macOS.
	FlushFull
)

// ParseFlushMode maps a config string to a FlushMode. Empty means FlushAuto.
func ParseFlushMode(s string) (FlushMode, error) {
	switch s {
	case "", "auto":
		return FlushAuto, nil
	case "data":
		return FlushDataOnly, nil
	case "full":
		return FlushFull, nil
	}
	return FlushAuto, fmt.Errorf("dirty: unknown flush mode %q", s)
}

// String returns the config spelling of m.
func (m FlushMode) String() string {
	switch m {
	case FlushDataOnly:
		return "data"
	case FlushFull:
		return "full"
	default:
		return "auto"
	}
}

// Range represents a dirty byte range (absolute region offsets).
type Range struct {
	Off int64
	Len int64
}

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	t        Target
	ranges   []Range
	pageSize int64
}

// NewTracker creates a dirty tracker for the given mapped target.
func NewTracker(t Target) *Tracker {
	return &Tracker{
		t:        t,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
	}
}

// Add records a dirty range. Empty and negative ranges are ignored.
func (t *Tracker) Add(off, length int) {
	if length <= 0 || off < 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Len returns the number of raw ranges recorded since the last flush.
func (t *Tracker) Len() int { return len(t.ranges) }

// FlushDataOnly flushes all dirty ranges outside the header page and clears them.
//
// The context is checked before flushing starts and between ranges. If it is
// cancelled midway some ranges may have been flushed while others have not;
// the recorded ranges are kept so a later flush retries all of them.
func (t *Tracker) FlushDataOnly(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.t.Bytes()
	if len(data) == 0 {
		return nil
	}

	if err := t.flushRanges(ctx, data); err != nil {
		return err
	}

	t.ranges = t.ranges[:0]
	return nil
}

// FlushHeaderAndMeta flushes the header page and syncs the descriptor per mode.
func (t *Tracker) FlushHeaderAndMeta(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.t.Bytes()
	if len(data) == 0 {
		return nil
	}

	headerLen := int(t.pageSize)
	if headerLen > len(data) {
		headerLen = len(data)
	}
	if err := msync(data[:headerLen]); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if mode == FlushDataOnly {
		return nil
	}
	return fdatasync(t.t.FD(), mode == FlushFull)
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// Ranges returns a copy of the raw, uncoalesced ranges.
func (t *Tracker) Ranges() []Range {
	result := make([]Range, len(t.ranges))
	copy(result, t.ranges)
	return result
}

// Coalesced returns the page-aligned, sorted, merged ranges a flush would write.
func (t *Tracker) Coalesced() []Range {
	return t.coalesce()
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize

		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}

		aligned[i] = Range{
			Off: start,
			Len: end - start,
		}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]

	for i := 1; i < len(aligned); i++ {
		next := aligned[i]

		if next.Off <= current.Off+current.Len {
			end := current.Off + current.Len
			nextEnd := next.Off + next.Len
			if nextEnd > end {
				end = nextEnd
			}
			current.Len = end - current.Off
		} else {
			merged = append(merged, current)
			current = next
		}
	}

	merged = append(merged, current)

	return merged
}

var _ FlushableTracker = (*Tracker)(nil)
