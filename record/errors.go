package record

import (
	"fmt"

	"github.com/maxxboehme/BlockStorage/block"
)

var (
	// ErrNotRecord indicates an id that does not name the first block of a
	// live record.
	ErrNotRecord = fmt.Errorf("record: not a live record: %w", block.ErrOutOfBounds)

	// ErrBrokenChain indicates a record chain whose links, flags or sizes are
	// inconsistent.
	ErrBrokenChain = fmt.Errorf("record: broken chain: %w", block.ErrInvalidArgument)

	// ErrNotFormatted indicates block 0 does not carry a record header.
	ErrNotFormatted = fmt.Errorf("record: header not found: %w", block.ErrCorruptStore)
)
