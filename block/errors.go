package block

import "errors"

var (
	// ErrCorruptStore indicates a magic number or block size mismatch, or a
	// region too short for the blocks its header claims.
	ErrCorruptStore = errors.New("block: corrupt store")

	// ErrOutOfBounds indicates a block id or element index beyond the current count.
	ErrOutOfBounds = errors.New("block: out of bounds")

	// ErrPayloadTooLarge indicates a write larger than one block's capacity.
	ErrPayloadTooLarge = errors.New("block: payload too large")

	// ErrEmptyCollection indicates a pop from a collection with no elements.
	ErrEmptyCollection = errors.New("block: empty collection")

	// ErrInvalidArgument indicates a bad size, a malformed chain link, or an
	// operation on a block the caller does not own.
	ErrInvalidArgument = errors.New("block: invalid argument")

	// ErrGrowFail indicates that growing the region by one block failed.
	ErrGrowFail = errors.New("block: grow failed")
)
