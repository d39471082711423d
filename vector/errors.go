package vector

import (
	"fmt"

	"github.com/maxxboehme/BlockStorage/block"
)

var (
	// ErrIndexOutOfBounds indicates an index at or beyond Len.
	ErrIndexOutOfBounds = fmt.Errorf("vector: index out of bounds: %w", block.ErrOutOfBounds)

	// ErrEmptyCollection indicates PopBack or Back on an empty view.
	ErrEmptyCollection = fmt.Errorf("vector: %w", block.ErrEmptyCollection)

	// ErrBrokenChain indicates a link whose back pointer, flags or element
	// count disagree with its neighbours.
	ErrBrokenChain = fmt.Errorf("vector: broken chain: %w", block.ErrInvalidArgument)
)
