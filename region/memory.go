package region

import "sync"

// Memory is an in-process Region backed by a Go byte slice.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

// NewMemory returns a zeroed region of size bytes.
func NewMemory(size int) *Memory {
	if size < 0 {
		size = 0
	}
	return &Memory{data: make([]byte, size)}
}

// Lock acquires the region lock.
func (m *Memory) Lock() { m.mu.Lock() }

// Unlock releases the region lock.
func (m *Memory) Unlock() { m.mu.Unlock() }

// Bytes returns the backing slice.
func (m *Memory) Bytes() []byte { return m.data }

// Size returns len(Bytes()).
func (m *Memory) Size() int { return len(m.data) }

// Realloc grows the buffer to n bytes. It always moves the data to a new
// slice so callers holding the old one see a stale copy, as they would after
// a remap of shared memory.
func (m *Memory) Realloc(n int) error {
	if n < 0 {
		return ErrInvalidSize
	}
	if n <= len(m.data) {
		return nil
	}
	grown := make([]byte, n)
	copy(grown, m.data)
	m.data = grown
	return nil
}

var _ Region = (*Memory)(nil)
