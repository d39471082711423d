// Package region provides the resizable, lockable byte regions that block
// stores are laid out on.
//
// # Region Interface
//
// A Region is a flat byte buffer with a single advisory lock:
//
//   - Lock / Unlock: mutual exclusion (process-wide, or cross-process for File)
//   - Bytes: the current backing bytes
//   - Size: len(Bytes())
//   - Realloc(n): grow to at least n bytes; never shrinks
//
// Realloc may move the backing storage. A slice returned by Bytes is only
// valid until the next Realloc on the same region, so callers re-derive every
// address from (region, offset) instead of keeping slices across operations.
//
// # Implementations
//
// Memory: an in-process buffer guarded by a sync.Mutex. Every Realloc copies
// into a fresh slice, which makes stale-address bugs show up in tests.
//
// File: a file mapped MAP_SHARED read/write so several processes can attach
// to the same store. Lock combines an in-process mutex with flock(2), and
// refreshes the mapping when another process has grown the file.
//
// # Thread Safety
//
// Only Lock and Unlock synchronize. Bytes, Size and Realloc must be called
// while holding the lock whenever more than one goroutine or process touches
// the region.
package region
