// Package testutil builds regions and block storages for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/maxxboehme/BlockStorage/block"
	"github.com/maxxboehme/BlockStorage/region"
)

// DefaultBlockSize is the block size most tests use. It leaves 1004 payload
// bytes per block.
const DefaultBlockSize = 1028

// SetupBlockStorage formats an in-memory region with the given block size.
//
// Example:
//
//	s, r := testutil.SetupBlockStorage(t, testutil.DefaultBlockSize)
func SetupBlockStorage(t *testing.T, blockSize int) (*block.Storage, *region.Memory) {
	t.Helper()
	r := region.NewMemory(0)
	s, err := block.New(r, nil, &block.Config{BlockSize: blockSize})
	if err != nil {
		t.Fatalf("Failed to format memory region: %v", err)
	}
	return s, r
}

// SetupFileBlockStorage opens (creating if needed) a file region at path and
// attaches a block storage to it. The region is closed when the test ends.
func SetupFileBlockStorage(t *testing.T, path string, blockSize int) (*block.Storage, *region.File) {
	t.Helper()
	f, err := region.OpenFile(path, nil)
	if err != nil {
		t.Fatalf("Failed to open file region %s: %v", path, err)
	}
	t.Cleanup(func() { _ = f.Close() })

	s, err := block.New(f, nil, &block.Config{BlockSize: blockSize})
	if err != nil {
		t.Fatalf("Failed to attach block storage to %s: %v", path, err)
	}
	return s, f
}

// TempPath returns name inside a per-test temporary directory.
func TempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
