package region

import (
	"errors"
	"sync"
)

var (
	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("region: closed")

	// ErrInvalidSize indicates a negative size was requested.
	ErrInvalidSize = errors.New("region: invalid size")
)

// Region is a resizable byte buffer with advisory locking.
type Region interface {
	sync.Locker

	// Bytes returns the current backing bytes. The slice is invalidated by Realloc.
	Bytes() []byte

	// Size returns the current size in bytes.
	Size() int

	// Realloc grows the region to at least n bytes. Requests for n <= Size()
	// are no-ops. New bytes are zero.
	Realloc(n int) error
}

// Syncer is implemented by regions that persist their bytes somewhere.
type Syncer interface {
	Sync() error
}
