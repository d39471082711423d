package record

import (
	"errors"
	"fmt"

	"github.com/maxxboehme/BlockStorage/block"
	"github.com/maxxboehme/BlockStorage/internal/buf"
	"github.com/maxxboehme/BlockStorage/internal/format"
	"github.com/maxxboehme/BlockStorage/internal/logger"
)

// RecordID names a record by the id of its first block.
type RecordID uint64

// InvalidRecordID is never returned by Add. Block 0 holds the record header.
const InvalidRecordID RecordID = 0

const headerBlock = 0

// Storage is the record layer over a block.Storage.
type Storage struct {
	s   *block.Storage
	per int
}

// New attaches the record layer to s, formatting block 0 when s holds no
// blocks yet.
func New(s *block.Storage) (*Storage, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil block storage", block.ErrInvalidArgument)
	}
	r := &Storage{
		s:   s,
		per: s.BlockSize() - format.BlockHeaderSize - format.ChainHeaderSize,
	}

	s.Lock()
	defer s.Unlock()

	if s.BlockCount() == 0 {
		b, err := s.Create()
		if err != nil {
			return nil, fmt.Errorf("record: create header block: %w", err)
		}
		if b.ID() != headerBlock {
			return nil, fmt.Errorf("%w: header landed in block %d", block.ErrCorruptStore, b.ID())
		}
		format.PutU64(b.Data(), format.RecordMagicOffset, format.RecordMagic)
		if err := b.SetPayloadSize(format.RecordHeaderSize); err != nil {
			return nil, err
		}
		logger.Debug("record: formatted header", "per_block", r.per)
		return r, nil
	}

	hb, err := s.At(headerBlock)
	if err != nil {
		return nil, err
	}
	if magic := format.ReadU64(hb.Data(), format.RecordMagicOffset); magic != format.RecordMagic {
		logger.Warn("record: refusing to attach", "magic", magic)
		return nil, fmt.Errorf("%w: magic %#x", ErrNotFormatted, magic)
	}
	logger.Debug("record: attached", "records", r.Size(), "free", r.FreeBlockCount())
	return r, nil
}

// Blocks returns the underlying block storage.
func (r *Storage) Blocks() *block.Storage { return r.s }

// Lock acquires the region lock.
func (r *Storage) Lock() { r.s.Lock() }

// Unlock releases the region lock.
func (r *Storage) Unlock() { r.s.Unlock() }

// RecordCapacity returns the number of record bytes one block carries.
func (r *Storage) RecordCapacity() int { return r.per }

func (r *Storage) header() block.Block {
	b, err := r.s.At(headerBlock)
	if err != nil {
		// New guarantees block 0 exists and blocks are never removed.
		panic(err)
	}
	return b
}

func (r *Storage) field(off int) uint64 {
	return format.ReadU64(r.header().Data(), off)
}

func (r *Storage) setField(off int, v uint64) {
	hb := r.header()
	format.PutU64(hb.Data(), off, v)
	hb.MarkDirty()
}

// Size returns the number of live records.
func (r *Storage) Size() uint64 { return r.field(format.RecordCountOffset) }

// FreeBlockCount returns the number of block ids held by the free registry.
func (r *Storage) FreeBlockCount() uint64 { return r.field(format.RecordFreeCountOffset) }

// blocksFor returns how many blocks a record of n bytes occupies.
func (r *Storage) blocksFor(n int) int {
	return max(1, buf.CeilDiv(n, r.per))
}

// Add stores p and returns its id.
//
// Blocks come from the free registry first, then from the block allocator.
// If any block cannot be obtained, the blocks already taken go back to the
// free registry and the record count is left unchanged.
func (r *Storage) Add(p []byte) (RecordID, error) {
	n := r.blocksFor(len(p))
	ids := make([]uint64, 0, n)
	for range n {
		id, err := r.take()
		if err != nil {
			if rerr := r.release(ids); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return InvalidRecordID, fmt.Errorf("record: add %d bytes: %w", len(p), err)
		}
		ids = append(ids, id)
	}

	rest := p
	for i, id := range ids {
		h := format.ChainHeader{}
		if i == 0 {
			h.Flags = format.ChainFlagHead
		} else {
			h.Prev = ids[i-1]
		}
		if i < len(ids)-1 {
			h.Next = ids[i+1]
		}
		chunk := rest[:min(len(rest), r.per)]
		rest = rest[len(chunk):]
		h.Size = uint64(len(chunk))

		if err := r.writeLink(id, h, chunk); err != nil {
			return InvalidRecordID, err
		}
	}

	r.setField(format.RecordCountOffset, r.Size()+1)
	return RecordID(ids[0]), nil
}

// take returns a block id for a new record link.
func (r *Storage) take() (uint64, error) {
	id, ok, err := r.pop()
	if err != nil {
		return 0, err
	}
	if ok {
		return id, nil
	}
	b, err := r.s.Create()
	if err != nil {
		return 0, err
	}
	return b.ID(), nil
}

func (r *Storage) writeLink(id uint64, h format.ChainHeader, chunk []byte) error {
	b, err := r.s.At(id)
	if err != nil {
		return err
	}
	data := b.Data()
	format.PutChainHeader(data, h)
	copy(data[format.ChainHeaderSize:], chunk)
	return b.SetPayloadSize(format.ChainHeaderSize + len(chunk))
}

// Get returns a copy of record id.
func (r *Storage) Get(id RecordID) ([]byte, error) {
	links, err := r.chain(id)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, l := range links {
		total += int(l.h.Size)
	}
	out := make([]byte, 0, total)
	for _, l := range links {
		b, err := r.s.At(l.id)
		if err != nil {
			return nil, err
		}
		out = append(out, b.Data()[format.ChainHeaderSize:format.ChainHeaderSize+int(l.h.Size)]...)
	}
	return out, nil
}

// Erase frees every block of record id. The chain is validated before
// anything is modified.
func (r *Storage) Erase(id RecordID) error {
	links, err := r.chain(id)
	if err != nil {
		return err
	}
	for _, l := range links {
		b, err := r.s.At(l.id)
		if err != nil {
			return err
		}
		format.PutU64(b.Data(), format.ChainFlagsOffset, format.ChainFlagFree)
		b.MarkDirty()
	}
	for i := len(links) - 1; i >= 0; i-- {
		if err := r.push(links[i].id); err != nil {
			return fmt.Errorf("record: erase %d: %w", id, err)
		}
	}
	r.setField(format.RecordCountOffset, r.Size()-1)
	return nil
}

type chainLink struct {
	id uint64
	h  format.ChainHeader
}

// chain loads and validates every link of record id. Only a block flagged
// as a record head that neither registry owns names a record.
func (r *Storage) chain(id RecordID) ([]chainLink, error) {
	if r.Size() == 0 {
		return nil, fmt.Errorf("%w: %d, store holds no records", ErrNotRecord, id)
	}
	count := r.s.BlockCount()
	if id == InvalidRecordID || uint64(id) >= count {
		return nil, fmt.Errorf("%w: %d", ErrNotRecord, id)
	}
	if err := r.checkNotRegistry(uint64(id)); err != nil {
		return nil, err
	}
	first, err := r.link(uint64(id))
	if err != nil {
		return nil, err
	}
	if !first.h.Head() || first.h.Free() || first.h.Prev != format.InvalidID {
		return nil, fmt.Errorf("%w: %d", ErrNotRecord, id)
	}

	links := []chainLink{first}
	for cur := first; cur.h.Next != format.InvalidID; {
		if uint64(len(links)) >= count {
			return nil, fmt.Errorf("%w: record %d loops", ErrBrokenChain, id)
		}
		if cur.h.Next >= count {
			return nil, fmt.Errorf("%w: block %d links to %d beyond count %d",
				ErrBrokenChain, cur.id, cur.h.Next, count)
		}
		next, err := r.link(cur.h.Next)
		if err != nil {
			return nil, err
		}
		if next.h.Free() || next.h.Head() || next.h.Prev != cur.id {
			return nil, fmt.Errorf("%w: block %d does not link back to %d",
				ErrBrokenChain, next.id, cur.id)
		}
		links = append(links, next)
		cur = next
	}
	return links, nil
}

func (r *Storage) link(id uint64) (chainLink, error) {
	b, err := r.s.At(id)
	if err != nil {
		return chainLink{}, err
	}
	h := format.ReadChainHeader(b.Data())
	if h.Size > uint64(r.per) {
		return chainLink{}, fmt.Errorf("%w: block %d claims %d bytes", ErrBrokenChain, id, h.Size)
	}
	return chainLink{id: id, h: h}, nil
}
