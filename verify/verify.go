package verify

import (
	"fmt"

	"github.com/maxxboehme/BlockStorage/internal/buf"
	"github.com/maxxboehme/BlockStorage/internal/format"
)

// ValidationError describes the first broken invariant a check found.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func fail(typ string, off int, msg string, args ...any) *ValidationError {
	return &ValidationError{Type: typ, Message: fmt.Sprintf(msg, args...), Offset: off}
}

// AllInvariants runs every check and returns the first failure.
func AllInvariants(data []byte) error {
	if err := StoreHeader(data); err != nil {
		return err
	}
	if err := BlockHeaders(data); err != nil {
		return err
	}
	if err := FreeRegistry(data); err != nil {
		return err
	}
	if HasRecordHeader(data) {
		return Records(data)
	}
	return nil
}

// StoreHeader validates the store header against the region length.
func StoreHeader(data []byte) error {
	h, err := format.ParseStoreHeader(data)
	if err != nil {
		return fail("StoreHeader", 0, "%v", err)
	}
	if h.BlockSize < format.MinBlockSize {
		return fail("StoreHeader", format.StoreBlockSizeOffset,
			"block size %d below minimum %d", h.BlockSize, format.MinBlockSize)
	}
	if h.FreeCount > h.BlockCount {
		return fail("StoreHeader", format.StoreFreeCountOffset,
			"free count %d exceeds block count %d", h.FreeCount, h.BlockCount)
	}
	need, ok := buf.MulOverflowSafe(int(h.BlockCount), int(h.BlockSize))
	if !ok || len(data)-format.StoreHeaderSize < need {
		return &ValidationError{
			Type:    "StoreHeader",
			Message: fmt.Sprintf("region of %d bytes cannot hold %d blocks", len(data), h.BlockCount),
			Offset:  format.StoreBlockCountOffset,
			Details: map[string]any{"blocks": h.BlockCount, "block_size": h.BlockSize},
		}
	}
	return nil
}

// layout is the store header in the form the walkers need.
type layout struct {
	data      []byte
	blockSize int
	count     uint64
}

func newLayout(data []byte) (layout, error) {
	if err := StoreHeader(data); err != nil {
		return layout{}, err
	}
	return layout{
		data:      data,
		blockSize: int(format.ReadU64(data, format.StoreBlockSizeOffset)),
		count:     format.ReadU64(data, format.StoreBlockCountOffset),
	}, nil
}

// payload returns the payload window of block id.
func (l layout) payload(id uint64) []byte {
	off := format.BlockOffset(id, l.blockSize) + format.BlockHeaderSize
	return l.data[off : off+l.blockSize-format.BlockHeaderSize]
}

func (l layout) capacity() int { return l.blockSize - format.BlockHeaderSize }

// BlockHeaders checks that every block header names its own id and size and
// a payload size that fits.
func BlockHeaders(data []byte) error {
	l, err := newLayout(data)
	if err != nil {
		return err
	}
	for id := range l.count {
		off := format.BlockOffset(id, l.blockSize)
		if got := format.ReadU64(data, off+format.BlockIDOffset); got != id {
			return fail("BlockHeaders", off, "block %d stamped with id %d", id, got)
		}
		if got := format.ReadU64(data, off+format.BlockSizeOffset); got != uint64(l.blockSize) {
			return fail("BlockHeaders", off+format.BlockSizeOffset,
				"block %d stamped with size %d, store uses %d", id, got, l.blockSize)
		}
		if got := format.ReadU64(data, off+format.BlockPayloadSizeOffset); got > uint64(l.capacity()) {
			return fail("BlockHeaders", off+format.BlockPayloadSizeOffset,
				"block %d payload size %d exceeds capacity %d", id, got, l.capacity())
		}
	}
	return nil
}

// registryChain walks the allocator registry and returns its blocks and the
// ids they hold.
func (l layout) registryChain() (blocks, ids []uint64, err error) {
	prev := format.InvalidID
	for id := format.ReadU64(l.data, format.StoreRegistryHeadOffset); id != format.InvalidID; {
		if id >= l.count {
			return nil, nil, fail("FreeRegistry", -1, "registry link %d beyond block count %d", id, l.count)
		}
		if uint64(len(blocks)) >= l.count {
			return nil, nil, fail("FreeRegistry", -1, "registry chain loops")
		}
		p := l.payload(id)
		h := format.ReadChainHeader(p)
		if h.Prev != prev {
			return nil, nil, fail("FreeRegistry", format.BlockOffset(id, l.blockSize),
				"registry block %d links back to %d, expected %d", id, h.Prev, prev)
		}
		if h.Size%format.FieldSize != 0 {
			return nil, nil, fail("FreeRegistry", format.BlockOffset(id, l.blockSize),
				"registry block %d claims %d bytes", id, h.Size)
		}
		if _, err := buf.CheckListBounds(len(p), format.ChainHeaderSize,
			int(h.Size/format.FieldSize), format.FieldSize); err != nil {
			return nil, nil, fail("FreeRegistry", format.BlockOffset(id, l.blockSize),
				"registry block %d: %v", id, err)
		}
		blocks = append(blocks, id)
		for off := 0; off < int(h.Size); off += format.FieldSize {
			ids = append(ids, format.ReadU64(p, format.ChainHeaderSize+off))
		}
		prev, id = id, h.Next
	}
	return blocks, ids, nil
}

// FreeRegistry validates the allocator's free registry.
func FreeRegistry(data []byte) error {
	l, err := newLayout(data)
	if err != nil {
		return err
	}
	blocks, ids, err := l.registryChain()
	if err != nil {
		return err
	}
	if want := format.ReadU64(data, format.StoreFreeCountOffset); uint64(len(ids)) != want {
		return &ValidationError{
			Type:    "FreeRegistry",
			Message: fmt.Sprintf("registry holds %d ids, header counts %d", len(ids), want),
			Offset:  format.StoreFreeCountOffset,
			Details: map[string]any{"ids": ids},
		}
	}
	own := make(map[uint64]bool, len(blocks))
	for _, b := range blocks {
		own[b] = true
	}
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		switch {
		case id >= l.count:
			return fail("FreeRegistry", -1, "free id %d beyond block count %d", id, l.count)
		case own[id]:
			return fail("FreeRegistry", -1, "free id %d is a registry block", id)
		case seen[id]:
			return fail("FreeRegistry", -1, "free id %d registered twice", id)
		}
		seen[id] = true
	}
	return nil
}
