package format

import "encoding/binary"

// Binary encoding utilities for little-endian integers.
//
// The layouts in consts.go are read and written only through these helpers,
// never by reinterpreting region memory as Go structs.

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// AddU64 adds delta to the uint64 at off and returns the new value.
func AddU64(b []byte, off int, delta int64) uint64 {
	v := ReadU64(b, off) + uint64(delta)
	PutU64(b, off, v)
	return v
}
