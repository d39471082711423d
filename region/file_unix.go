//go:build unix

package region

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/maxxboehme/BlockStorage/internal/logger"
	"github.com/maxxboehme/BlockStorage/internal/mmfile"
)

// File is a Region backed by a file mapped MAP_SHARED read/write.
//
// Lock excludes other goroutines through an in-process mutex and other
// processes through flock(2). Because another process may grow the file while
// it holds the lock, Lock also remaps when the file is larger than the
// current mapping.
type File struct {
	mu   sync.Mutex
	f    *os.File
	path string
	data []byte
}

// OpenFile opens or creates the file at path and maps its current contents.
// An empty file yields an empty region.
func OpenFile(path string, opts *FileOptions) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, opts.mode())
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r := &File{f: f, path: path}
	if st.Size() > 0 {
		data, mapErr := mmfile.Map(int(f.Fd()), int(st.Size()))
		if mapErr != nil {
			_ = f.Close()
			return nil, mapErr
		}
		r.data = data
	}
	logger.Debug("region: opened file", "path", path, "size", st.Size())
	return r, nil
}

// Lock acquires the in-process mutex and an exclusive flock on the file.
// It panics if flock fails, since sync.Locker has no error path.
func (r *File) Lock() {
	r.mu.Lock()
	if r.f == nil {
		return
	}
	if err := unix.Flock(int(r.f.Fd()), unix.LOCK_EX); err != nil {
		r.mu.Unlock()
		panic(fmt.Errorf("region: flock %s: %w", r.path, err))
	}
	if err := r.refresh(); err != nil {
		logger.Warn("region: refresh after lock failed", "path", r.path, "error", err)
	}
}

// Unlock releases the flock and the in-process mutex.
func (r *File) Unlock() {
	if r.f != nil {
		if err := unix.Flock(int(r.f.Fd()), unix.LOCK_UN); err != nil {
			r.mu.Unlock()
			panic(fmt.Errorf("region: unlock %s: %w", r.path, err))
		}
	}
	r.mu.Unlock()
}

// Bytes returns the current mapping.
func (r *File) Bytes() []byte { return r.data }

// Size returns the mapped size in bytes.
func (r *File) Size() int { return len(r.data) }

// FD returns the file descriptor, or -1 once closed.
func (r *File) FD() int {
	if r == nil || r.f == nil {
		return -1
	}
	return int(r.f.Fd())
}

// Realloc extends the file to n bytes and remaps it. The new bytes are
// zero-initialized by the OS. On failure the previous mapping is restored.
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

	oldSize := len(r.data)
	if err := mmfile.Unmap(r.data); err != nil {
		return fmt.Errorf("region: failed to unmap before grow: %w", err)
	}
	r.data = nil

	if err := r.f.Truncate(int64(n)); err != nil {
		r.data, _ = mmfile.Map(int(r.f.Fd()), oldSize)
		return fmt.Errorf("region: failed to truncate file: %w", err)
	}

	data, err := mmfile.Map(int(r.f.Fd()), n)
	if err != nil {
		r.data, _ = mmfile.Map(int(r.f.Fd()), oldSize)
		return fmt.Errorf("region: failed to remap after grow: %w", err)
	}
	r.data = data
	logger.Debug("region: remapped", "path", r.path, "from", oldSize, "to", n)
	return nil
}

// refresh remaps when another process has grown the file.
func (r *File) refresh() error {
	st, err := r.f.Stat()
	if err != nil {
		return err
	}
	size := int(st.Size())
	if size <= len(r.data) {
		return nil
	}
	if err := mmfile.Unmap(r.data); err != nil {
		return err
	}
	r.data = nil
	data, err := mmfile.Map(int(r.f.Fd()), size)
	if err != nil {
		return err
	}
	r.data = data
	return nil
}

// Sync flushes the whole mapping and the file metadata to disk.
func (r *File) Sync() error {
	if r.f == nil {
		return ErrClosed
	}
	if len(r.data) > 0 {
		if err := unix.Msync(r.data, unix.MS_SYNC); err != nil {
			return err
		}
	}
	return r.f.Sync()
}

// Close unmaps and closes the file. Further use returns ErrClosed.
func (r *File) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.data != nil {
		err = mmfile.Unmap(r.data)
		r.data = nil
	}
	if r.f != nil {
		if closeErr := r.f.Close(); err == nil {
			err = closeErr
		}
		r.f = nil
	}
	return err
}
