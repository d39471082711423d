package format

import "fmt"

// StoreHeader is the decoded form of the store header at offset 0.
type StoreHeader struct {
	Magic        uint64
	BlockSize    uint64
	BlockCount   uint64
	FreeCount    uint64
	RegistryHead uint64
}

// ParseStoreHeader decodes the store header and checks its magic.
func ParseStoreHeader(b []byte) (StoreHeader, error) {
	if len(b) < StoreHeaderSize {
		return StoreHeader{}, fmt.Errorf("store header: %w", ErrTruncated)
	}
	h := StoreHeader{
		Magic:        ReadU64(b, StoreMagicOffset),
		BlockSize:    ReadU64(b, StoreBlockSizeOffset),
		BlockCount:   ReadU64(b, StoreBlockCountOffset),
		FreeCount:    ReadU64(b, StoreFreeCountOffset),
		RegistryHead: ReadU64(b, StoreRegistryHeadOffset),
	}
	if h.Magic != StoreMagic {
		return h, fmt.Errorf("store header: %w (got %#x)", ErrSignatureMismatch, h.Magic)
	}
	return h, nil
}

// PutStoreHeader encodes h at the start of b.
func PutStoreHeader(b []byte, h StoreHeader) {
	PutU64(b, StoreMagicOffset, h.Magic)
	PutU64(b, StoreBlockSizeOffset, h.BlockSize)
	PutU64(b, StoreBlockCountOffset, h.BlockCount)
	PutU64(b, StoreFreeCountOffset, h.FreeCount)
	PutU64(b, StoreRegistryHeadOffset, h.RegistryHead)
}

// BlockOffset returns the absolute region offset of block id.
func BlockOffset(id uint64, blockSize int) int {
	return StoreHeaderSize + int(id)*blockSize
}

// RegionSizeFor returns the region size needed to hold count blocks.
func RegionSizeFor(count uint64, blockSize int) int {
	return StoreHeaderSize + int(count)*blockSize
}

// PutBlockHeader stamps a fresh block header at the start of b.
func PutBlockHeader(b []byte, id uint64, blockSize int) {
	PutU64(b, BlockIDOffset, id)
	PutU64(b, BlockSizeOffset, uint64(blockSize))
	PutU64(b, BlockPayloadSizeOffset, 0)
}
