package verify

import (
	"fmt"

	"github.com/maxxboehme/BlockStorage/internal/buf"
	"github.com/maxxboehme/BlockStorage/internal/format"
)

// Block owners recorded by Records.
const (
	ownerRecordHeader = "record header"
	ownerAllocReg     = "allocator registry"
	ownerAllocFree    = "allocator free list"
	ownerRecordReg    = "record registry"
	ownerRecordFree   = "record free list"
	ownerRecord       = "record"
)

// HasRecordHeader reports whether block 0 carries the record layer magic.
func HasRecordHeader(data []byte) bool {
	l, err := newLayout(data)
	if err != nil || l.count == 0 {
		return false
	}
	return format.ReadU64(l.payload(0), format.RecordMagicOffset) == format.RecordMagic
}

// owners assigns every block to exactly one structure.
type owners struct {
	of []string
}

func (o owners) claim(id uint64, who string) error {
	if prev := o.of[id]; prev != "" {
		return &ValidationError{
			Type:    "Records",
			Message: fmt.Sprintf("block %d claimed by %s and %s", id, prev, who),
			Offset:  -1,
			Details: map[string]any{"block": id},
		}
	}
	o.of[id] = who
	return nil
}

// Records validates the record layer and checks that every block of the
// store is reachable from exactly one structure.
func Records(data []byte) error {
	l, err := newLayout(data)
	if err != nil {
		return err
	}
	if !HasRecordHeader(data) {
		return fail("Records", -1, "block 0 has no record header")
	}
	o := owners{of: make([]string, l.count)}
	if err := o.claim(0, ownerRecordHeader); err != nil {
		return err
	}

	regBlocks, regIDs, err := l.registryChain()
	if err != nil {
		return err
	}
	for _, id := range regBlocks {
		if err := o.claim(id, ownerAllocReg); err != nil {
			return err
		}
	}
	for _, id := range regIDs {
		if err := o.claim(id, ownerAllocFree); err != nil {
			return err
		}
	}

	hdr := l.payload(0)
	freeIDs, err := l.recordRegistry(o, format.ReadU64(hdr, format.RecordRegistryHeadOffset))
	if err != nil {
		return err
	}
	if want := format.ReadU64(hdr, format.RecordFreeCountOffset); uint64(len(freeIDs)) != want {
		return fail("Records", -1, "record registry holds %d ids, header counts %d", len(freeIDs), want)
	}
	for _, id := range freeIDs {
		if id == format.InvalidID || id >= l.count {
			return fail("Records", -1, "record free id %d out of range", id)
		}
		if err := o.claim(id, ownerRecordFree); err != nil {
			return err
		}
		if !format.ReadChainHeader(l.payload(id)).Free() {
			return fail("Records", format.BlockOffset(id, l.blockSize),
				"registered block %d is not flagged free", id)
		}
	}

	heads, err := l.recordChains(o)
	if err != nil {
		return err
	}
	if want := format.ReadU64(hdr, format.RecordCountOffset); heads != want {
		return fail("Records", -1, "found %d records, header counts %d", heads, want)
	}

	for id, who := range o.of {
		if who == "" {
			return &ValidationError{
				Type:    "Records",
				Message: fmt.Sprintf("block %d is not reachable from any record or registry", id),
				Offset:  format.BlockOffset(uint64(id), l.blockSize),
				Details: map[string]any{"block": id},
			}
		}
	}
	return nil
}

// recordRegistry walks the record registry vector, claiming its blocks, and
// returns the ids it holds.
func (l layout) recordRegistry(o owners, head uint64) ([]uint64, error) {
	var ids []uint64
	prev := format.InvalidID
	for id := head; id != format.InvalidID; {
		if id >= l.count {
			return nil, fail("Records", -1, "record registry link %d beyond block count %d", id, l.count)
		}
		// Claiming twice also catches cycles.
		if err := o.claim(id, ownerRecordReg); err != nil {
			return nil, err
		}
		p := l.payload(id)
		h := format.ReadVectorHeader(p)
		if h.HasPrev() != (prev != format.InvalidID) || h.Prev != prev {
			return nil, fail("Records", format.BlockOffset(id, l.blockSize),
				"record registry block %d links back to %d, expected %d", id, h.Prev, prev)
		}
		if h.Size%format.FieldSize != 0 {
			return nil, fail("Records", format.BlockOffset(id, l.blockSize),
				"record registry block %d claims %d bytes", id, h.Size)
		}
		if _, err := buf.CheckListBounds(len(p), format.VectorHeaderSize,
			int(h.Size/format.FieldSize), format.FieldSize); err != nil {
			return nil, fail("Records", format.BlockOffset(id, l.blockSize),
				"record registry block %d: %v", id, err)
		}
		for off := 0; off < int(h.Size); off += format.FieldSize {
			ids = append(ids, format.ReadU64(p, format.VectorHeaderSize+off))
		}
		if !h.HasNext() {
			break
		}
		if h.Next == format.InvalidID {
			return nil, fail("Records", format.BlockOffset(id, l.blockSize),
				"record registry block %d links forward to block 0", id)
		}
		prev, id = id, h.Next
	}
	return ids, nil
}

// recordChains claims the blocks of every live record and returns the number
// of records found.
func (l layout) recordChains(o owners) (uint64, error) {
	var heads uint64
	per := uint64(l.capacity() - format.ChainHeaderSize)
	for start := uint64(1); start < l.count; start++ {
		if o.of[start] != "" {
			continue
		}
		h := format.ReadChainHeader(l.payload(start))
		if !h.Head() || h.Free() {
			continue
		}
		if h.Prev != format.InvalidID {
			return 0, fail("Records", format.BlockOffset(start, l.blockSize),
				"record head %d links back to %d", start, h.Prev)
		}
		heads++
		for id, prev := start, format.InvalidID; ; {
			if h.Size > per {
				return 0, fail("Records", format.BlockOffset(id, l.blockSize),
					"record block %d claims %d bytes", id, h.Size)
			}
			if err := o.claim(id, ownerRecord); err != nil {
				return 0, err
			}
			if h.Next == format.InvalidID {
				break
			}
			if h.Next >= l.count {
				return 0, fail("Records", format.BlockOffset(id, l.blockSize),
					"record block %d links to %d beyond block count", id, h.Next)
			}
			prev, id = id, h.Next
			h = format.ReadChainHeader(l.payload(id))
			if h.Free() || h.Head() || h.Prev != prev {
				return 0, fail("Records", format.BlockOffset(id, l.blockSize),
					"record block %d does not link back to %d", id, prev)
			}
		}
	}
	return heads, nil
}
