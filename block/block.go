package block

import (
	"fmt"

	"github.com/maxxboehme/BlockStorage/internal/format"
)

// Block is a non-owning handle to one block of a Storage.
//
// A Block holds no address. Every accessor recomputes the block's bytes from
// the storage's region, so a handle stays usable after the region grows, but
// slices returned by Data and Bytes do not.
type Block struct {
	s  *Storage
	id uint64
}

// raw returns the whole block, header included.
func (b Block) raw() []byte {
	off := format.BlockOffset(b.id, b.s.blockSize)
	return b.s.r.Bytes()[off : off+b.s.blockSize : off+b.s.blockSize]
}

// ID returns the id stored in the block header.
func (b Block) ID() uint64 {
	return format.ReadU64(b.raw(), format.BlockIDOffset)
}

// BlockSize returns the block size stored in the block header.
func (b Block) BlockSize() int {
	return int(format.ReadU64(b.raw(), format.BlockSizeOffset))
}

// PayloadSize returns the number of live payload bytes.
func (b Block) PayloadSize() int {
	n := int(format.ReadU64(b.raw(), format.BlockPayloadSizeOffset))
	if n < 0 || n > b.Capacity() {
		return b.Capacity()
	}
	return n
}

// Capacity returns the number of payload bytes the block can hold.
func (b Block) Capacity() int {
	return b.s.blockSize - format.BlockHeaderSize
}

// Data returns the full payload window (Capacity bytes). Writes through it
// are not reported to the dirty tracker; call MarkDirty or SetPayloadSize
// afterwards.
func (b Block) Data() []byte {
	return b.raw()[format.BlockHeaderSize:]
}

// Bytes returns the live payload, Data()[:PayloadSize()].
func (b Block) Bytes() []byte {
	return b.Data()[:b.PayloadSize()]
}

// Set replaces the payload with p.
func (b Block) Set(p []byte) error {
	if len(p) > b.Capacity() {
		return fmt.Errorf("%w: %d bytes into block %d of capacity %d",
			ErrPayloadTooLarge, len(p), b.id, b.Capacity())
	}
	copy(b.Data(), p)
	return b.SetPayloadSize(len(p))
}

// SetPayloadSize records n live payload bytes and marks the block dirty.
func (b Block) SetPayloadSize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative payload size %d", ErrInvalidArgument, n)
	}
	if n > b.Capacity() {
		return fmt.Errorf("%w: %d bytes into block %d of capacity %d",
			ErrPayloadTooLarge, n, b.id, b.Capacity())
	}
	format.PutU64(b.raw(), format.BlockPayloadSizeOffset, uint64(n))
	b.MarkDirty()
	return nil
}

// Zero clears the payload and sets its size to 0.
func (b Block) Zero() {
	clear(b.Data())
	format.PutU64(b.raw(), format.BlockPayloadSizeOffset, 0)
	b.MarkDirty()
}

// MarkDirty reports the whole block to the storage's dirty tracker.
func (b Block) MarkDirty() {
	b.s.markDirty(format.BlockOffset(b.id, b.s.blockSize), b.s.blockSize)
}

// String formats the handle for logs and test failures.
func (b Block) String() string {
	if b.s == nil {
		return "block(nil)"
	}
	return fmt.Sprintf("block(%d, %d/%d)", b.id, b.PayloadSize(), b.Capacity())
}
