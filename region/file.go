package region

import (
	"fmt"
	"os"
)

// FileOptions configures OpenFile.
type FileOptions struct {
	// Mode is the permission used when the file is created. Default 0o644.
	Mode os.FileMode
}

// DefaultFileOptions is used when OpenFile receives nil options.
var DefaultFileOptions = FileOptions{Mode: 0o644}

func (o *FileOptions) mode() os.FileMode {
	if o == nil || o.Mode == 0 {
		return DefaultFileOptions.Mode
	}
	return o.Mode
}

// Path returns the file path backing the region.
func (r *File) Path() string { return r.path }

// String describes the region for logs.
func (r *File) String() string {
	return fmt.Sprintf("region.File(%s, %d bytes)", r.path, r.Size())
}

var _ Region = (*File)(nil)
