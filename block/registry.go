package block

import (
	"fmt"

	"github.com/maxxboehme/BlockStorage/internal/format"
	"github.com/maxxboehme/BlockStorage/internal/logger"
)

// registry is the allocator's free list: a doubly linked chain of blocks,
// rooted at the store header's registry head, each holding a chain header
// followed by packed block ids. The newest id sits at the end of the tail
// block.
//
// Registry blocks come from Storage.Grow only, so pushing never recurses into
// the registry itself.
type registry struct {
	s *Storage
}

func (s *Storage) registry() registry { return registry{s: s} }

// perBlock is the number of ids one registry block holds.
func (g registry) perBlock() int {
	return (g.s.blockSize - format.BlockHeaderSize - format.ChainHeaderSize) / format.FieldSize
}

func (g registry) head() uint64 {
	return format.ReadU64(g.s.r.Bytes(), format.StoreRegistryHeadOffset)
}

// link loads the chain header of registry block id after checking that id
// can name one.
func (g registry) link(id uint64) (format.ChainHeader, error) {
	if id == format.InvalidID || id >= g.s.BlockCount() {
		return format.ChainHeader{}, fmt.Errorf("%w: registry link to block %d", ErrInvalidArgument, id)
	}
	h := format.ReadChainHeader(Block{s: g.s, id: id}.Data())
	if h.Size%format.FieldSize != 0 || h.Size > uint64(g.perBlock()*format.FieldSize) {
		return h, fmt.Errorf("%w: registry block %d claims %d bytes", ErrInvalidArgument, id, h.Size)
	}
	return h, nil
}

// walk calls fn for every registry block from head to tail. A chain longer
// than the block count is a cycle.
func (g registry) walk(fn func(id uint64, h format.ChainHeader) error) error {
	limit := g.s.BlockCount()
	var seen uint64
	for id := g.head(); id != format.InvalidID; {
		if seen++; seen > limit {
			return fmt.Errorf("%w: registry chain loops", ErrInvalidArgument)
		}
		h, err := g.link(id)
		if err != nil {
			return err
		}
		if err := fn(id, h); err != nil {
			return err
		}
		id = h.Next
	}
	return nil
}

// tail returns the last registry block, or InvalidID when there is none.
func (g registry) tail() (uint64, format.ChainHeader, error) {
	var (
		last uint64
		lh   format.ChainHeader
	)
	err := g.walk(func(id uint64, h format.ChainHeader) error {
		last, lh = id, h
		return nil
	})
	return last, lh, err
}

// extend grows a fresh registry block and links it after prev (or makes it
// the head when prev is InvalidID).
func (g registry) extend(prev uint64) (uint64, error) {
	nb, err := g.s.Grow()
	if err != nil {
		return 0, err
	}
	format.PutChainHeader(nb.Data(), format.ChainHeader{Prev: prev})
	if err := nb.SetPayloadSize(format.ChainHeaderSize); err != nil {
		return 0, err
	}
	if prev == format.InvalidID {
		g.s.putHeader(format.StoreRegistryHeadOffset, nb.id)
	} else {
		pb := Block{s: g.s, id: prev}
		format.PutU64(pb.Data(), format.ChainNextOffset, nb.id)
		pb.MarkDirty()
	}
	if logAlloc {
		logger.Debug("block: registry extended", "id", nb.id, "prev", prev)
	}
	return nb.id, nil
}

// push appends id to the tail block, extending the chain when it is full.
func (g registry) push(id uint64) error {
	tail, h, err := g.tail()
	if err != nil {
		return err
	}
	if tail == format.InvalidID || h.Size == uint64(g.perBlock()*format.FieldSize) {
		if tail, err = g.extend(tail); err != nil {
			return err
		}
		h = format.ChainHeader{}
	}

	tb := Block{s: g.s, id: tail}
	data := tb.Data()
	format.PutU64(data, format.ChainHeaderSize+int(h.Size), id)
	format.PutU64(data, format.ChainSizeOffset, h.Size+format.FieldSize)
	if err := tb.SetPayloadSize(format.ChainHeaderSize + int(h.Size) + format.FieldSize); err != nil {
		return err
	}
	g.s.putHeader(format.StoreFreeCountOffset, g.s.FreeBlockCount()+1)
	return nil
}

// pop removes the newest id. When the tail block is already empty it is
// unlinked and handed out itself, which leaves the free count unchanged, so
// the caller of Create receives a block that used to belong to the registry.
// ok is false when the registry has nothing to give.
func (g registry) pop() (uint64, bool, error) {
	tail, h, err := g.tail()
	if err != nil || tail == format.InvalidID {
		return 0, false, err
	}

	if h.Size == 0 {
		if h.Prev == format.InvalidID {
			g.s.putHeader(format.StoreRegistryHeadOffset, format.InvalidID)
		} else {
			pb := Block{s: g.s, id: h.Prev}
			format.PutU64(pb.Data(), format.ChainNextOffset, format.InvalidID)
			pb.MarkDirty()
		}
		return tail, true, nil
	}

	tb := Block{s: g.s, id: tail}
	data := tb.Data()
	size := h.Size - format.FieldSize
	id := format.ReadU64(data, format.ChainHeaderSize+int(size))
	if id >= g.s.BlockCount() {
		return 0, false, fmt.Errorf("%w: registry holds block %d, count %d",
			ErrInvalidArgument, id, g.s.BlockCount())
	}
	format.PutU64(data, format.ChainSizeOffset, size)
	if err := tb.SetPayloadSize(format.ChainHeaderSize + int(size)); err != nil {
		return 0, false, err
	}
	g.s.putHeader(format.StoreFreeCountOffset, g.s.FreeBlockCount()-1)
	return id, true, nil
}

// owns reports whether id is one of the registry's own blocks.
func (g registry) owns(id uint64) (bool, error) {
	var found bool
	err := g.walk(func(bid uint64, _ format.ChainHeader) error {
		if bid == id {
			found = true
		}
		return nil
	})
	return found, err
}

// ids returns every registered id, oldest first.
func (g registry) ids() ([]uint64, error) {
	out := make([]uint64, 0, g.s.FreeBlockCount())
	err := g.walk(func(bid uint64, h format.ChainHeader) error {
		data := Block{s: g.s, id: bid}.Data()
		for off := uint64(0); off < h.Size; off += format.FieldSize {
			out = append(out, format.ReadU64(data, format.ChainHeaderSize+int(off)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
