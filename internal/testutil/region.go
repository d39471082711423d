package testutil

import (
	"errors"
	"fmt"

	"github.com/maxxboehme/BlockStorage/region"
)

// ErrRegionFull is returned by LimitedRegion when a Realloc exceeds its limit.
var ErrRegionFull = errors.New("testutil: region limit reached")

// LimitedRegion is a memory region that refuses to grow past Limit bytes.
type LimitedRegion struct {
	*region.Memory
	Limit int
}

// NewLimitedRegion returns an empty region capped at limit bytes.
func NewLimitedRegion(limit int) *LimitedRegion {
	return &LimitedRegion{Memory: region.NewMemory(0), Limit: limit}
}

// Realloc grows the region unless n exceeds Limit.
func (r *LimitedRegion) Realloc(n int) error {
	if n > r.Limit {
		return fmt.Errorf("%w: %d > %d", ErrRegionFull, n, r.Limit)
	}
	return r.Memory.Realloc(n)
}

var _ region.Region = (*LimitedRegion)(nil)
