package block

import (
	"fmt"
	"os"

	"github.com/maxxboehme/BlockStorage/internal/buf"
	"github.com/maxxboehme/BlockStorage/internal/format"
	"github.com/maxxboehme/BlockStorage/internal/logger"
	"github.com/maxxboehme/BlockStorage/region"
	"github.com/maxxboehme/BlockStorage/region/dirty"
)

// Runtime debug flag for per-block logging - controlled by BLOCKSTORE_LOG_ALLOC env var.
var logAlloc = os.Getenv("BLOCKSTORE_LOG_ALLOC") != ""

// DirtyTracker receives every byte range the storage writes.
type DirtyTracker = dirty.DirtyTracker

// Storage allocates fixed-size blocks out of a region.
//
// Storage keeps no copy of the header: counts are read from and written to
// the region on every call, so several Storage values (in one or several
// processes) attached to the same region agree as long as they serialize
// through Lock.
type Storage struct {
	r         region.Region
	dt        DirtyTracker
	blockSize int
}

// New attaches to r, formatting it when it is smaller than a store header.
//
// Parameters:
//   - r: The region to lay blocks out on
//   - dt: Dirty tracker for file-backed regions (can be nil)
//   - cfg: Layout configuration (use nil for DefaultConfig)
//
// The region lock is held while the header is initialized or validated.
// An existing header with a different magic or block size fails with
// ErrCorruptStore.
func New(r region.Region, dt DirtyTracker, cfg *Config) (*Storage, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil region", ErrInvalidArgument)
	}
	if cfg == nil {
		cfg = &DefaultConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Storage{r: r, dt: dt, blockSize: cfg.BlockSize}

	r.Lock()
	defer r.Unlock()

	if r.Size() < format.StoreHeaderSize {
		if err := r.Realloc(format.StoreHeaderSize); err != nil {
			return nil, fmt.Errorf("block: init header: %w", err)
		}
		data := r.Bytes()
		clear(data[:format.StoreHeaderSize])
		format.PutStoreHeader(data, format.StoreHeader{
			Magic:     format.StoreMagic,
			BlockSize: uint64(cfg.BlockSize),
		})
		s.markDirty(0, format.StoreHeaderSize)
		logger.Debug("block: formatted region", "block_size", cfg.BlockSize)
		return s, nil
	}

	if err := s.validate(); err != nil {
		logger.Warn("block: refusing to attach", "error", err)
		return nil, err
	}
	logger.Debug("block: attached",
		"block_size", cfg.BlockSize,
		"blocks", s.BlockCount(),
		"free", s.FreeBlockCount())
	return s, nil
}

// validate checks an existing header against this storage's configuration.
func (s *Storage) validate() error {
	h, err := format.ParseStoreHeader(s.r.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptStore, err)
	}
	if h.BlockSize != uint64(s.blockSize) {
		return fmt.Errorf("%w: block size %d, configured %d",
			ErrCorruptStore, h.BlockSize, s.blockSize)
	}
	if h.FreeCount > h.BlockCount {
		return fmt.Errorf("%w: free count %d exceeds block count %d",
			ErrCorruptStore, h.FreeCount, h.BlockCount)
	}
	if h.RegistryHead != format.InvalidID && h.RegistryHead >= h.BlockCount {
		return fmt.Errorf("%w: registry head %d beyond block count %d",
			ErrCorruptStore, h.RegistryHead, h.BlockCount)
	}
	need, ok := buf.MulOverflowSafe(int(h.BlockCount), s.blockSize)
	if !ok || s.r.Size()-format.StoreHeaderSize < need {
		return fmt.Errorf("%w: region of %d bytes cannot hold %d blocks",
			ErrCorruptStore, s.r.Size(), h.BlockCount)
	}
	return nil
}

// Lock acquires the region lock.
func (s *Storage) Lock() { s.r.Lock() }

// Unlock releases the region lock.
func (s *Storage) Unlock() { s.r.Unlock() }

// Region returns the underlying region.
func (s *Storage) Region() region.Region { return s.r }

// BlockSize returns the configured block size.
func (s *Storage) BlockSize() int { return s.blockSize }

// BlockCount returns the number of physical blocks ever created.
func (s *Storage) BlockCount() uint64 {
	return format.ReadU64(s.r.Bytes(), format.StoreBlockCountOffset)
}

// FreeBlockCount returns the number of block ids waiting in the free registry.
func (s *Storage) FreeBlockCount() uint64 {
	return format.ReadU64(s.r.Bytes(), format.StoreFreeCountOffset)
}

// LiveBlockCount returns the number of blocks not in the free registry,
// including the registry's own blocks.
func (s *Storage) LiveBlockCount() uint64 {
	return s.BlockCount() - s.FreeBlockCount()
}

// Create returns a block with an empty payload, recycling the most recently
// freed block when there is one and growing the region otherwise. A recycled
// block may be a former registry block: once the registry's tail block has
// handed out every id it held, Create returns the tail block itself.
func (s *Storage) Create() (Block, error) {
	id, ok, err := s.registry().pop()
	if err != nil {
		return Block{}, err
	}
	if !ok {
		return s.Grow()
	}
	s.stamp(id)
	if logAlloc {
		logger.Debug("block: recycled", "id", id, "free", s.FreeBlockCount())
	}
	return Block{s: s, id: id}, nil
}

// Grow appends exactly one fresh block to the region and returns it. It never
// consults the free registry, which makes it the only allocation path the
// registry may use for itself.
func (s *Storage) Grow() (Block, error) {
	id := s.BlockCount()
	if err := s.r.Realloc(format.RegionSizeFor(id+1, s.blockSize)); err != nil {
		return Block{}, fmt.Errorf("%w: %w", ErrGrowFail, err)
	}
	s.stamp(id)
	s.putHeader(format.StoreBlockCountOffset, id+1)
	if logAlloc {
		logger.Debug("block: grew", "id", id, "region_bytes", s.r.Size())
	}
	return Block{s: s, id: id}, nil
}

// At returns a handle to block id. Ids are checked against the physical
// block count, so handles to freed blocks and to registry blocks resolve too.
func (s *Storage) At(id uint64) (Block, error) {
	if count := s.BlockCount(); id >= count {
		return Block{}, fmt.Errorf("%w: block %d, count %d", ErrOutOfBounds, id, count)
	}
	off := format.BlockOffset(id, s.blockSize)
	if !buf.Has(s.r.Bytes(), off, s.blockSize) {
		return Block{}, fmt.Errorf("%w: block %d past end of region", ErrCorruptStore, id)
	}
	return Block{s: s, id: id}, nil
}

// Free returns block id to the free registry. The block's bytes are left as
// they are. Block 0 holds metadata and is never freed. Freeing a block twice,
// or a block that is still referenced, is not detected.
func (s *Storage) Free(id uint64) error {
	if id == format.InvalidID {
		return fmt.Errorf("%w: block 0 is reserved", ErrInvalidArgument)
	}
	if count := s.BlockCount(); id >= count {
		return fmt.Errorf("%w: block %d, count %d", ErrOutOfBounds, id, count)
	}
	g := s.registry()
	owned, err := g.owns(id)
	if err != nil {
		return err
	}
	if owned {
		return fmt.Errorf("%w: block %d belongs to the free registry", ErrInvalidArgument, id)
	}
	if err := g.push(id); err != nil {
		return err
	}
	if logAlloc {
		logger.Debug("block: freed", "id", id, "free", s.FreeBlockCount())
	}
	return nil
}

// FreeBlockIDs returns the ids in the free registry, oldest first. The last
// element is the next one Create will reuse.
func (s *Storage) FreeBlockIDs() ([]uint64, error) {
	return s.registry().ids()
}

// IsRegistryBlock reports whether id is one of the blocks the free registry
// stores its ids in.
func (s *Storage) IsRegistryBlock(id uint64) (bool, error) {
	return s.registry().owns(id)
}

// stamp writes a fresh block header for id with an empty payload.
func (s *Storage) stamp(id uint64) {
	off := format.BlockOffset(id, s.blockSize)
	format.PutBlockHeader(s.r.Bytes()[off:], id, s.blockSize)
	s.markDirty(off, format.BlockHeaderSize)
}

func (s *Storage) putHeader(field int, v uint64) {
	format.PutU64(s.r.Bytes(), field, v)
	s.markDirty(field, format.FieldSize)
}

func (s *Storage) markDirty(off, length int) {
	if s.dt != nil {
		s.dt.Add(off, length)
	}
}
