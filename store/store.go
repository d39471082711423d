package store

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/maxxboehme/BlockStorage/block"
	"github.com/maxxboehme/BlockStorage/internal/logger"
	"github.com/maxxboehme/BlockStorage/internal/mmfile"
	"github.com/maxxboehme/BlockStorage/record"
	"github.com/maxxboehme/BlockStorage/region"
	"github.com/maxxboehme/BlockStorage/region/dirty"
	"github.com/maxxboehme/BlockStorage/tx"
	"github.com/maxxboehme/BlockStorage/verify"
)

// Store is an opened region with its block and record layers.
type Store struct {
	cfg     Config
	r       region.Region
	dt      *dirty.Tracker // nil for memory regions
	mode    dirty.FlushMode
	blocks  *block.Storage
	records *record.Storage
}

// Open opens or creates the store described by cfg (nil for DefaultConfig).
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, _ := cfg.flushMode()

	if cfg.Log.Enabled {
		lvl, _ := cfg.Log.level()
		if err := logger.Init(logger.Options{Enabled: true, Level: lvl, File: cfg.Log.File}); err != nil {
			return nil, fmt.Errorf("store: init logger: %w", err)
		}
	}

	st := &Store{cfg: *cfg, mode: mode}
	if cfg.Path == "" {
		st.r = region.NewMemory(0)
	} else {
		f, err := region.OpenFile(cfg.Path, &region.FileOptions{Mode: cfg.FileMode})
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		st.r = f
		if mmfile.Supported {
			st.dt = dirty.NewTracker(f)
		}
	}

	var dt block.DirtyTracker
	if st.dt != nil {
		dt = st.dt
	}
	blocks, err := block.New(st.r, dt, &block.Config{BlockSize: cfg.BlockSize})
	if err != nil {
		_ = st.closeRegion()
		return nil, fmt.Errorf("store: %w", err)
	}
	records, err := record.New(blocks)
	if err != nil {
		_ = st.closeRegion()
		return nil, fmt.Errorf("store: %w", err)
	}
	st.blocks, st.records = blocks, records

	logger.Info("store: opened", "path", cfg.Path, "stats", blocks.Stats().String())
	return st, nil
}

// Records returns the record layer.
func (s *Store) Records() *record.Storage { return s.records }

// Blocks returns the block allocator.
func (s *Store) Blocks() *block.Storage { return s.blocks }

// Region returns the backing region.
func (s *Store) Region() region.Region { return s.r }

// Update runs fn under the region lock and flushes what it dirtied before
// releasing the lock. A failed fn leaves its writes in the region unflushed.
func (s *Store) Update(ctx context.Context, fn func(r *record.Storage) error) error {
	var ft dirty.FlushableTracker
	if s.dt != nil {
		ft = s.dt
	}
	return tx.NewManager(s.r, ft, s.mode).Run(ctx, func() error {
		return fn(s.records)
	})
}

// View runs fn under the region lock without flushing.
func (s *Store) View(ctx context.Context, fn func(r *record.Storage) error) error {
	return tx.Run(ctx, s.r, func() error { return fn(s.records) })
}

// Sync writes the whole region to stable storage. Memory stores have nothing
// to sync.
func (s *Store) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sy, ok := s.r.(region.Syncer)
	if !ok {
		return nil
	}
	s.r.Lock()
	defer s.r.Unlock()
	if err := sy.Sync(); err != nil {
		return fmt.Errorf("store: sync: %w", err)
	}
	if s.dt != nil {
		s.dt.Reset()
	}
	return nil
}

// Check validates the on-region layout under the region lock. It returns a
// *verify.ValidationError describing the first broken invariant.
func (s *Store) Check(ctx context.Context) error {
	return tx.Run(ctx, s.r, func() error {
		if err := verify.AllInvariants(s.r.Bytes()); err != nil {
			logger.Warn("store: check failed", "err", err)
			return err
		}
		return nil
	})
}

// Close releases the region. The store must not be used afterwards.
func (s *Store) Close() error {
	return s.closeRegion()
}

func (s *Store) closeRegion() error {
	c, ok := s.r.(io.Closer)
	if !ok {
		return nil
	}
	return c.Close()
}

// String summarizes the store for logs.
func (s *Store) String() string {
	where := "memory"
	if s.cfg.Path != "" {
		where = s.cfg.Path
	}
	return fmt.Sprintf("store(%s): %s records, %s free record blocks, %s",
		where,
		humanize.Comma(int64(s.records.Size())),
		humanize.Comma(int64(s.records.FreeBlockCount())),
		s.blocks.Stats())
}
