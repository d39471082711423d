package record

import (
	"errors"
	"fmt"
	"slices"

	"github.com/maxxboehme/BlockStorage/block"
	"github.com/maxxboehme/BlockStorage/internal/format"
	"github.com/maxxboehme/BlockStorage/internal/logger"
	"github.com/maxxboehme/BlockStorage/vector"
)

// freshAllocator grows the registry chain with blocks that never come out
// of a free list.
type freshAllocator struct {
	s *block.Storage
}

func (a freshAllocator) At(id uint64) (block.Block, error) { return a.s.At(id) }
func (a freshAllocator) Create() (block.Block, error) { return a.s.Grow() }
func (a freshAllocator) Free(id uint64) error { return a.s.Free(id) }

// registry opens the free registry, or returns nil when none exists yet.
func (r *Storage) registry() (*vector.View[uint64], error) {
	head := r.field(format.RecordRegistryHeadOffset)
	if head == format.InvalidID {
		return nil, nil
	}
	return vector.Open[uint64](freshAllocator{s: r.s}, head, vector.Uint64{})
}

// createRegistry formats b as the registry head and records it in the header.
func (r *Storage) createRegistry(b block.Block) (*vector.View[uint64], error) {
	v, err := vector.Create[uint64](freshAllocator{s: r.s}, b, vector.Uint64{})
	if err != nil {
		return nil, err
	}
	r.setField(format.RecordRegistryHeadOffset, v.ID())
	logger.Debug("record: free registry created", "head", v.ID())
	return v, nil
}

// push registers id as free, creating the registry from a fresh block when
// needed.
func (r *Storage) push(id uint64) error {
	v, err := r.registry()
	if err != nil {
		return err
	}
	if v == nil {
		b, err := r.s.Grow()
		if err != nil {
			return err
		}
		if v, err = r.createRegistry(b); err != nil {
			return err
		}
	}
	if err := v.PushBack(id); err != nil {
		return err
	}
	r.setField(format.RecordFreeCountOffset, r.FreeBlockCount()+1)
	return nil
}

// pop removes the most recently freed id. ok is false when the registry is
// empty.
func (r *Storage) pop() (uint64, bool, error) {
	if r.FreeBlockCount() == 0 {
		return 0, false, nil
	}
	v, err := r.registry()
	if err != nil {
		return 0, false, err
	}
	if v == nil {
		return 0, false, fmt.Errorf("%w: %d free blocks but no registry",
			ErrBrokenChain, r.FreeBlockCount())
	}
	id, err := v.PopBack()
	if err != nil {
		return 0, false, err
	}
	r.setField(format.RecordFreeCountOffset, r.FreeBlockCount()-1)
	return id, true, nil
}

// release hands blocks taken by a failed Add back. When no registry exists,
// the first block becomes its head so that releasing never needs to grow the
// region. Ids the registry cannot take go to the block allocator.
func (r *Storage) release(ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	v, err := r.registry()
	if err != nil {
		return err
	}
	if v == nil {
		b, err := r.s.At(ids[0])
		if err != nil {
			return err
		}
		if _, err := r.createRegistry(b); err != nil {
			return err
		}
		ids = ids[1:]
	}

	var errs []error
	for _, id := range ids {
		if err := r.writeLink(id, format.ChainHeader{Flags: format.ChainFlagFree}, nil); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(ids) - 1; i >= 0; i-- {
		if err := r.push(ids[i]); err != nil {
			if ferr := r.s.Free(ids[i]); ferr != nil {
				errs = append(errs, err, ferr)
			}
		}
	}
	return errors.Join(errs...)
}

// checkNotRegistry fails with ErrNotRecord when id is a block of either free
// registry.
func (r *Storage) checkNotRegistry(id uint64) error {
	owned, err := r.s.IsRegistryBlock(id)
	if err != nil {
		return err
	}
	if owned {
		return fmt.Errorf("%w: %d belongs to the block registry", ErrNotRecord, id)
	}
	v, err := r.registry()
	if err != nil || v == nil {
		return err
	}
	links, err := v.BlockIDs()
	if err != nil {
		return err
	}
	if slices.Contains(links, id) {
		return fmt.Errorf("%w: %d belongs to the record registry", ErrNotRecord, id)
	}
	return nil
}

// FreeBlockIDs returns the ids in the free registry, oldest first.
func (r *Storage) FreeBlockIDs() ([]uint64, error) {
	v, err := r.registry()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return []uint64{}, nil
	}
	ids, err := v.All()
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}
