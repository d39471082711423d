package format

// ChainHeader is the decoded chain header of a record or registry block.
type ChainHeader struct {
	Next  uint64
	Prev  uint64
	Flags uint64
	Size  uint64
}

// Free reports whether the block is marked free.
func (h ChainHeader) Free() bool { return h.Flags&ChainFlagFree != 0 }

// Head reports whether the block starts a live record.
func (h ChainHeader) Head() bool { return h.Flags&ChainFlagHead != 0 }

// ReadChainHeader decodes the chain header at the start of payload p.
func ReadChainHeader(p []byte) ChainHeader {
	return ChainHeader{
		Next:  ReadU64(p, ChainNextOffset),
		Prev:  ReadU64(p, ChainPrevOffset),
		Flags: ReadU64(p, ChainFlagsOffset),
		Size:  ReadU64(p, ChainSizeOffset),
	}
}

// PutChainHeader encodes h at the start of payload p.
func PutChainHeader(p []byte, h ChainHeader) {
	PutU64(p, ChainNextOffset, h.Next)
	PutU64(p, ChainPrevOffset, h.Prev)
	PutU64(p, ChainFlagsOffset, h.Flags)
	PutU64(p, ChainSizeOffset, h.Size)
}

// VectorHeader is the decoded header of a growable array view block.
type VectorHeader struct {
	Flags uint64
	Next  uint64
	Prev  uint64
	Size  uint64
}

// HasNext reports whether the block links to a successor.
func (h VectorHeader) HasNext() bool { return h.Flags&VectorHasNext != 0 }

// HasPrev reports whether the block links to a predecessor.
func (h VectorHeader) HasPrev() bool { return h.Flags&VectorHasPrev != 0 }

// ReadVectorHeader decodes the vector header at the start of payload p.
func ReadVectorHeader(p []byte) VectorHeader {
	return VectorHeader{
		Flags: ReadU64(p, VectorFlagsOffset),
		Next:  ReadU64(p, VectorNextOffset),
		Prev:  ReadU64(p, VectorPrevOffset),
		Size:  ReadU64(p, VectorSizeOffset),
	}
}

// PutVectorHeader encodes h at the start of payload p.
func PutVectorHeader(p []byte, h VectorHeader) {
	PutU64(p, VectorFlagsOffset, h.Flags)
	PutU64(p, VectorNextOffset, h.Next)
	PutU64(p, VectorPrevOffset, h.Prev)
	PutU64(p, VectorSizeOffset, h.Size)
}
