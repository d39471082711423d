package tx

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxxboehme/BlockStorage/region/dirty"
)

// countingLocker records Lock/Unlock calls and fails the test on misuse.
type countingLocker struct {
	t       *testing.T
	mu      sync.Mutex
	locks   int
	unlocks int
}

func (c *countingLocker) Lock() {
	c.mu.Lock()
	c.locks++
}

func (c *countingLocker) Unlock() {
	c.unlocks++
	if c.unlocks > c.locks {
		c.t.Fatalf("unlock without lock")
	}
	c.mu.Unlock()
}

func (c *countingLocker) held() bool { return c.locks > c.unlocks }

// mockDirtyTracker is a test implementation of FlushableTracker.
type mockDirtyTracker struct {
	adds                int
	flushDataCalls      int
	flushHeaderCalls    int
	lastFlushMode       dirty.FlushMode
	shouldFailFlushData bool
	shouldFailFlushHdr  bool
}

func (m *mockDirtyTracker) Add(int, int) { m.adds++ }

func (m *mockDirtyTracker) FlushDataOnly(context.Context) error {
	m.flushDataCalls++
	if m.shouldFailFlushData {
		return os.ErrPermission
	}
	return nil
}

func (m *mockDirtyTracker) FlushHeaderAndMeta(_ context.Context, mode dirty.FlushMode) error {
	m.flushHeaderCalls++
	m.lastFlushMode = mode
	if m.shouldFailFlushHdr {
		return os.ErrPermission
	}
	return nil
}

func TestRun_ReleasesOnEveryPath(t *testing.T) {
	l := &countingLocker{t: t}

	require.NoError(t, Run(t.Context(), l, func() error {
		require.True(t, l.held())
		return nil
	}))
	require.False(t, l.held())

	boom := errors.New("boom")
	require.ErrorIs(t, Run(t.Context(), l, func() error { return boom }), boom)
	require.False(t, l.held())

	require.Panics(t, func() {
		_ = Run(t.Context(), l, func() error { panic("fn panicked") })
	})
	require.False(t, l.held())
	require.Equal(t, 3, l.locks)
}

func TestRun_CancelledContextSkipsLock(t *testing.T) {
	l := &countingLocker{t: t}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := Run(ctx, l, func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
	require.Zero(t, l.locks)
}

func TestManager_BeginCommit(t *testing.T) {
	l := &countingLocker{t: t}
	dt := &mockDirtyTracker{}
	m := NewManager(l, dt, dirty.FlushFull)

	require.NoError(t, m.Begin(t.Context()))
	require.True(t, m.InTransaction())
	require.True(t, l.held())

	// Nested Begin is idempotent.
	require.NoError(t, m.Begin(t.Context()))
	require.Equal(t, 1, l.locks)

	require.NoError(t, m.Commit(t.Context()))
	require.False(t, m.InTransaction())
	require.False(t, l.held())
	require.Equal(t, 1, dt.flushDataCalls)
	require.Equal(t, 1, dt.flushHeaderCalls)
	require.Equal(t, dirty.FlushFull, dt.lastFlushMode)
	require.Equal(t, uint64(1), m.Commits())

	// Commit without Begin is a no-op.
	require.NoError(t, m.Commit(t.Context()))
	require.Equal(t, 1, dt.flushDataCalls)
}

func TestManager_CommitFlushFailureStillUnlocks(t *testing.T) {
	for _, tc := range []struct {
		name string
		dt   *mockDirtyTracker
	}{
		{"data", &mockDirtyTracker{shouldFailFlushData: true}},
		{"header", &mockDirtyTracker{shouldFailFlushHdr: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l := &countingLocker{t: t}
			m := NewManager(l, tc.dt, dirty.FlushAuto)
			require.NoError(t, m.Begin(t.Context()))

			err := m.Commit(t.Context())
			require.ErrorIs(t, err, os.ErrPermission)
			require.False(t, l.held())
			require.False(t, m.InTransaction())
			require.Zero(t, m.Commits())
		})
	}
}

func TestManager_CommitCancelledBetweenFlushes(t *testing.T) {
	l := &countingLocker{t: t}
	dt := &mockDirtyTracker{}
	m := NewManager(l, dt, dirty.FlushAuto)
	require.NoError(t, m.Begin(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := m.Commit(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, dt.flushHeaderCalls)
	require.False(t, l.held())
}

func TestManager_Rollback(t *testing.T) {
	l := &countingLocker{t: t}
	dt := &mockDirtyTracker{}
	m := NewManager(l, dt, dirty.FlushAuto)

	m.Rollback() // no transaction
	require.Zero(t, l.unlocks)

	require.NoError(t, m.Begin(t.Context()))
	m.Rollback()
	require.False(t, m.InTransaction())
	require.False(t, l.held())
	require.Zero(t, dt.flushDataCalls)
}

func TestManager_Run(t *testing.T) {
	l := &countingLocker{t: t}
	dt := &mockDirtyTracker{}
	m := NewManager(l, dt, dirty.FlushDataOnly)

	require.NoError(t, m.Run(t.Context(), func() error { return nil }))
	require.Equal(t, 1, dt.flushHeaderCalls)

	boom := errors.New("boom")
	require.ErrorIs(t, m.Run(t.Context(), func() error { return boom }), boom)
	require.Equal(t, 1, dt.flushHeaderCalls)
	require.False(t, l.held())

	require.Panics(t, func() {
		_ = m.Run(t.Context(), func() error { panic("fn panicked") })
	})
	require.False(t, l.held())
	require.False(t, m.InTransaction())
	require.Equal(t, uint64(1), m.Commits())
}

func TestManager_NilTracker(t *testing.T) {
	l := &countingLocker{t: t}
	m := NewManager(l, nil, dirty.FlushAuto)
	require.NoError(t, m.Run(t.Context(), func() error { return nil }))
	require.False(t, l.held())
	require.Equal(t, uint64(1), m.Commits())
}
