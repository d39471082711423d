//go:build !unix

package region

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/maxxboehme/BlockStorage/internal/logger"
)

// File is a Region backed by a file loaded into memory on platforms without
// shared mappings. Changes reach the file on Sync and Close. Lock only
// excludes goroutines of this process.
type File struct {
	mu   sync.Mutex
	f    *os.File
	path string
	data []byte
}

// OpenFile opens or creates the file at path and reads its contents.
func OpenFile(path string, opts *FileOptions) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, opts.mode())
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	data := make([]byte, st.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		f.Close()
		return nil, err
	}
	logger.Debug("region: loaded file", "path", path, "size", st.Size())
	return &File{f: f, path: path, data: data}, nil
}

// Lock acquires the in-process mutex.
func (r *File) Lock() { r.mu.Lock() }

// Unlock releases the in-process mutex.
func (r *File) Unlock() { r.mu.Unlock() }

// Bytes returns the in-memory copy.
func (r *File) Bytes() []byte { return r.data }

// Size returns len(Bytes()).
func (r *File) Size() int { return len(r.data) }

// FD returns the file descriptor, or -1 once closed.
func (r *File) FD() int {
	if r == nil || r.f == nil {
		return -1
	}
	return int(r.f.Fd())
}

// Realloc grows the in-memory copy to n bytes.
func (r *File) Realloc(n int) error {
	if r.f == nil {
		return ErrClosed
	}
	if n < 0 {
		return ErrInvalidSize
	}
	if n <= len(r.data) {
		return nil
	}
	grown := make([]byte, n)
	copy(grown, r.data)
	r.data = grown
	return nil
}

// Sync writes the in-memory copy back to the file.
func (r *File) Sync() error {
	if r.f == nil {
		return ErrClosed
	}
	if _, err := r.f.WriteAt(r.data, 0); err != nil {
		return fmt.Errorf("region: write back: %w", err)
	}
	return r.f.Sync()
}

// Close writes the data back and closes the file.
func (r *File) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.Sync()
	if closeErr := r.f.Close(); err == nil {
		err = closeErr
	}
	r.f = nil
	r.data = nil
	return err
}
