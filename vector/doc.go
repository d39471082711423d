// Package vector provides a typed, growable array stored in a chain of
// blocks.
//
// Each block of a View starts with a 32-byte header {flags, next, prev,
// element bytes} followed by packed fixed-size elements. Elements never span
// a block boundary: a block that cannot fit one more whole element is full.
//
//	v, err := vector.Create(storage, headBlock, vector.Uint64{})
//	if err != nil {
//	    return err
//	}
//	_ = v.PushBack(42)
//	x, _ := v.At(0)
//
// The head block id is the View's identity and never changes. Len, Capacity,
// BlockCount and At walk the chain from the head, so they cost one header read
// per block. PopBack returns an emptied tail block to the Allocator.
//
// A View holds only block ids; every access resolves bytes through the
// Allocator again, so views stay valid when the region relocates.
package vector
