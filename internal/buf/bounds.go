// Package buf contains overflow-safe arithmetic and bounds-checked slicing
// for walking block layouts.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false on
// overflow or when either operand is negative.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CeilDiv returns ceil(n / d) for n >= 0 and d > 0.
func CeilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// CheckListBounds validates that count elements of elementSize bytes fit in a
// buffer of bufLen bytes starting at offset, and returns the end offset.
//
//	end, err := buf.CheckListBounds(len(payload), format.ChainHeaderSize, n, format.FieldSize)
//	if err != nil {
//	    return fmt.Errorf("registry block %d: %w", id, err)
//	}
func CheckListBounds(bufLen, offset, count, elementSize int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("buf: negative offset %d", offset)
	}
	if count < 0 {
		return 0, fmt.Errorf("buf: negative count %d", count)
	}
	if elementSize < 0 {
		return 0, fmt.Errorf("buf: negative element size %d", elementSize)
	}

	size, ok := MulOverflowSafe(count, elementSize)
	if !ok {
		return 0, fmt.Errorf("buf: %d elements of %d bytes overflow", count, elementSize)
	}

	end, ok := AddOverflowSafe(offset, size)
	if !ok {
		return 0, fmt.Errorf("buf: offset %d plus %d bytes overflows", offset, size)
	}

	if end > bufLen {
		return 0, fmt.Errorf("buf: end %d beyond length %d", end, bufLen)
	}

	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
