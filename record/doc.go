// Package record stores variable-length byte records as chains of blocks.
//
// Block 0 of the underlying block.Storage is the record header:
//
//	Offset  Size  Field
//	0x00    8     magic ("RECSTOR1")
//	0x08    8     live record count
//	0x10    8     free block count
//	0x18    8     free registry head block id (0 = none)
//
// Every record block starts its payload with a chain header {next, prev,
// flags, size} followed by up to RecordCapacity bytes of record data. A
// record's id is the id of its first block; 0 is never a valid RecordID.
//
// # Free Registry
//
// Erased blocks are not returned to the block allocator. Their ids go onto
// the record layer's own registry, a vector.View[uint64] whose head block id
// is kept in the record header. The registry is created on the first erase
// and grows only through block.Storage.Grow, never through Create, so it
// never hands one of its own blocks back to itself. Add takes blocks from the
// end of the registry first (most recently freed), then creates new ones.
//
// Erase pushes a record's blocks in reverse chain order, so re-adding a record
// of the same size reuses the same blocks in the same order and returns the
// erased id.
//
// # Concurrency
//
// Only New holds the lock. Callers sharing a region bracket multi-step work
// with Lock/Unlock or tx.Run.
package record
