// Package block divides a region into fixed-size blocks and recycles freed
// ones.
//
// # Overview
//
// The region starts with a 40-byte store header followed by a dense array of
// blocks. Every block starts with a 24-byte header {id, block size, payload
// size}; the rest is payload:
//
//	offset 0                 store header {magic, block size, block count, free count, registry head}
//	offset 40                block 0
//	offset 40 + blockSize    block 1
//	...
//
// # Storage
//
// Storage is the allocator:
//
//   - New(r, dt, cfg): attach to a region, formatting it when empty
//   - Create(): recycle a freed block, or Grow() when none is free
//   - Grow(): append exactly one fresh block to the region
//   - At(id): a handle to an existing block
//   - Free(id): return a block to the free registry
//
// # Free Registry
//
// Freed ids are kept in a chain of blocks owned by the storage itself. Each
// registry block carries a chain header {next, prev, flags, size} followed by
// packed uint64 ids; ids are appended to the tail block and popped from it, so
// the most recently freed block is reused first.
//
// The registry is built from blocks, but it must never obtain them through
// Create: Create asks the registry for a free block, and the registry would
// ask Create for a block to grow into. Every registry growth therefore goes
// through Grow, and the registry head pointer (0 = not created yet) is only
// set after Grow returns. When popping finds the tail block already empty,
// the tail block itself is unlinked and handed out, so shrinking the registry
// never needs to push into it.
//
// # Block Handles
//
// Block is a (storage, id) pair. Each accessor resolves the block's bytes from
// the region again, because Grow may move the region. Slices returned by
// Data and Bytes are only valid until the next Create or Grow.
//
// # Counts
//
// BlockCount is the number of physical slots ever created and bounds At.
// FreeBlockCount is the number of ids held by the registry. LiveBlockCount is
// their difference; registry blocks count as live.
//
// # Thread Safety
//
// Only New locks the region (around header initialization and validation).
// Callers that share a region between goroutines or processes bracket their
// own critical sections with Lock/Unlock or the tx package.
package block
