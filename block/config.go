package block

import (
	"fmt"

	"github.com/maxxboehme/BlockStorage/internal/format"
)

// Config holds the layout parameters fixed at format time.
type Config struct {
	// BlockSize is the size of every block including its 24-byte header.
	BlockSize int
}

// DefaultConfig is used when New receives a nil config.
var DefaultConfig = Config{BlockSize: 4096}

// Validate checks that a block can hold its header, a chain header and one id.
func (c Config) Validate() error {
	if c.BlockSize < format.MinBlockSize {
		return fmt.Errorf("%w: block size %d below minimum %d",
			ErrInvalidArgument, c.BlockSize, format.MinBlockSize)
	}
	return nil
}
