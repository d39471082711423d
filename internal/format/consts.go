// Package format holds the on-region binary schema shared by the block,
// vector and record layers. Every multi-byte field is a little-endian
// uint64; offsets and sizes are declared once here and all reads and writes
// go through the Put/Read helpers in encoding.go.
package format

const (
	// StoreMagic identifies a region formatted as a block store ("BLKSTOR1").
	StoreMagic uint64 = 0x31524f54534b4c42

	// RecordMagic identifies block 0 of a region formatted for records ("RECSTOR1").
	RecordMagic uint64 = 0x31524f5453434552

	// FieldSize is the width of every header field.
	FieldSize = 8

	// InvalidID marks an unset block reference. Block 0 always holds metadata,
	// so a chain pointer of 0 never names a real link.
	InvalidID uint64 = 0
)

// Store header, at offset 0 of the region.
//
//	Offset  Size  Field
//	0x00    8     magic
//	0x08    8     block size
//	0x10    8     block count (physical slots ever created)
//	0x18    8     free count (ids held by the allocator registry)
//	0x20    8     registry head block id (0 = none)
const (
	StoreMagicOffset        = 0x00
	StoreBlockSizeOffset    = 0x08
	StoreBlockCountOffset   = 0x10
	StoreFreeCountOffset    = 0x18
	StoreRegistryHeadOffset = 0x20

	// StoreHeaderSize is the byte length of the store header; block 0 starts here.
	StoreHeaderSize = 0x28
)

// Block header, at the start of every block.
//
//	Offset  Size  Field
//	0x00    8     id
//	0x08    8     block size
//	0x10    8     payload size
const (
	BlockIDOffset          = 0x00
	BlockSizeOffset        = 0x08
	BlockPayloadSizeOffset = 0x10

	// BlockHeaderSize is the byte length of the block header; the payload follows.
	BlockHeaderSize = 0x18
)

// Chain header, at the start of the payload of every record block and of every
// block in the allocator's free registry.
//
//	Offset  Size  Field
//	0x00    8     next block id (0 = none)
//	0x08    8     previous block id (0 = none)
//	0x10    8     flags
//	0x18    8     used data bytes after the header
const (
	ChainNextOffset  = 0x00
	ChainPrevOffset  = 0x08
	ChainFlagsOffset = 0x10
	ChainSizeOffset  = 0x18

	// ChainHeaderSize is the byte length of the chain header.
	ChainHeaderSize = 0x20
)

// Chain flags. Only the first block of a live record carries ChainFlagHead.
const (
	ChainFlagFree uint64 = 1 << 0
	ChainFlagHead uint64 = 1 << 1
)

// Vector header, at the start of the payload of every block owned by a
// growable array view.
//
//	Offset  Size  Field
//	0x00    8     flags (bit 0 has-next, bit 1 has-prev)
//	0x08    8     next block id
//	0x10    8     previous block id
//	0x18    8     element bytes stored in this block
const (
	VectorFlagsOffset = 0x00
	VectorNextOffset  = 0x08
	VectorPrevOffset  = 0x10
	VectorSizeOffset  = 0x18

	// VectorHeaderSize is the byte length of the vector header.
	VectorHeaderSize = 0x20
)

// Vector flags.
const (
	VectorHasNext uint64 = 1 << 0
	VectorHasPrev uint64 = 1 << 1
)

// Record layer header, in the payload of block 0.
//
//	Offset  Size  Field
//	0x00    8     magic
//	0x08    8     live record count
//	0x10    8     free block count
//	0x18    8     free registry head block id (0 = none)
const (
	RecordMagicOffset        = 0x00
	RecordCountOffset        = 0x08
	RecordFreeCountOffset    = 0x10
	RecordRegistryHeadOffset = 0x18

	// RecordHeaderSize is the byte length of the record layer header.
	RecordHeaderSize = 0x20
)

// MinBlockSize is the smallest block able to hold a block header, a chain
// header and one registry entry.
const MinBlockSize = BlockHeaderSize + ChainHeaderSize + FieldSize
