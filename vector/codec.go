package vector

import "github.com/maxxboehme/BlockStorage/internal/format"

// Codec encodes one fixed-size element.
type Codec[T any] interface {
	// Size is the encoded width in bytes. It must be positive.
	Size() int
	Put(b []byte, v T)
	Get(b []byte) T
}

// Uint64 stores uint64 elements little-endian in 8 bytes.
type Uint64 struct{}

func (Uint64) Size() int { return 8 }
func (Uint64) Put(b []byte, v uint64) { format.PutU64(b, 0, v) }
func (Uint64) Get(b []byte) uint64 { return format.ReadU64(b, 0) }

// Uint32 stores uint32 elements little-endian in 4 bytes.
type Uint32 struct{}

func (Uint32) Size() int { return 4 }
func (Uint32) Put(b []byte, v uint32) { format.PutU32(b, 0, v) }
func (Uint32) Get(b []byte) uint32 { return format.ReadU32(b, 0) }

// Int64 stores int64 elements as their two's complement uint64.
type Int64 struct{}

func (Int64) Size() int { return 8 }
func (Int64) Put(b []byte, v int64) { format.PutU64(b, 0, uint64(v)) }
func (Int64) Get(b []byte) int64 { return int64(format.ReadU64(b, 0)) }
