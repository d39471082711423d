package tx

import (
	"context"
	"fmt"
	"sync"

	"github.com/maxxboehme/BlockStorage/internal/logger"
	"github.com/maxxboehme/BlockStorage/region/dirty"
)

// Run checks ctx, acquires l, runs fn and releases l however fn returns.
func Run(ctx context.Context, l sync.Locker, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Manager holds a lock for the length of a transaction and flushes dirty
// ranges on commit.
type Manager struct {
	l     sync.Locker
	dt    dirty.FlushableTracker // nil for regions with nothing to flush
	mode  dirty.FlushMode
	inTx  bool
	count uint64
}

// NewManager creates a transaction manager.
//
// Parameters:
//   - l: The lock shared with every other user of the region
//   - dt: Dirty tracker to flush on commit (can be nil)
//   - mode: Flush mode for commits
func NewManager(l sync.Locker, dt dirty.FlushableTracker, mode dirty.FlushMode) *Manager {
	return &Manager{l: l, dt: dt, mode: mode}
}

// Begin acquires the lock. Calling Begin inside a transaction is a no-op.
func (m *Manager) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.inTx {
		return nil
	}
	m.l.Lock()
	m.inTx = true
	return nil
}

// Commit flushes dirty data, then the header, and releases the lock. The lock
// is released even when flushing fails. Commit without Begin is a no-op.
func (m *Manager) Commit(ctx context.Context) error {
	if !m.inTx {
		return nil
	}
	defer m.end()

	if m.dt == nil {
		m.count++
		return nil
	}
	if err := m.dt.FlushDataOnly(ctx); err != nil {
		return fmt.Errorf("flush data pages: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dt.FlushHeaderAndMeta(ctx, m.mode); err != nil {
		return fmt.Errorf("flush header: %w", err)
	}
	m.count++
	return nil
}

// Rollback releases the lock without flushing. It does not undo writes.
func (m *Manager) Rollback() {
	if !m.inTx {
		return
	}
	logger.Debug("tx: rollback")
	m.end()
}

func (m *Manager) end() {
	m.inTx = false
	m.l.Unlock()
}

// Run wraps fn in Begin and Commit, rolling back when fn fails or panics.
func (m *Manager) Run(ctx context.Context, fn func() error) error {
	if err := m.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			m.Rollback()
			panic(r)
		}
	}()
	if err := fn(); err != nil {
		m.Rollback()
		return err
	}
	return m.Commit(ctx)
}

// InTransaction reports whether Begin has been called without a matching
// Commit or Rollback.
func (m *Manager) InTransaction() bool { return m.inTx }

// Commits returns the number of successful commits.
func (m *Manager) Commits() uint64 { return m.count }
