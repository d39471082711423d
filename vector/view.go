package vector

import (
	"fmt"

	"github.com/maxxboehme/BlockStorage/block"
	"github.com/maxxboehme/BlockStorage/internal/format"
)

// Allocator supplies and takes back the blocks of a chain. *block.Storage
// satisfies it.
type Allocator interface {
	At(id uint64) (block.Block, error)
	Create() (block.Block, error)
	Free(id uint64) error
}

var _ Allocator = (*block.Storage)(nil)

// View is a growable array of T laid over a chain of blocks.
type View[T any] struct {
	a        Allocator
	head     uint64
	codec    Codec[T]
	elemSize int
	perBlock int
}

// link is one resolved chain block.
type link struct {
	b block.Block
	h format.VectorHeader
}

func (l link) id() uint64 { return l.b.ID() }

// Create formats b as the head of an empty chain.
func Create[T any](a Allocator, b block.Block, c Codec[T]) (*View[T], error) {
	v, err := newView(a, b, c)
	if err != nil {
		return nil, err
	}
	b.Zero()
	format.PutVectorHeader(b.Data(), format.VectorHeader{})
	if err := b.SetPayloadSize(format.VectorHeaderSize); err != nil {
		return nil, err
	}
	return v, nil
}

// Open views the existing chain headed by block id.
func Open[T any](a Allocator, id uint64, c Codec[T]) (*View[T], error) {
	b, err := a.At(id)
	if err != nil {
		return nil, err
	}
	v, err := newView(a, b, c)
	if err != nil {
		return nil, err
	}
	if h := format.ReadVectorHeader(b.Data()); h.HasPrev() {
		return nil, fmt.Errorf("%w: block %d is not a chain head", ErrBrokenChain, id)
	}
	return v, nil
}

func newView[T any](a Allocator, b block.Block, c Codec[T]) (*View[T], error) {
	if a == nil || c == nil {
		return nil, fmt.Errorf("%w: nil allocator or codec", block.ErrInvalidArgument)
	}
	size := c.Size()
	if size <= 0 {
		return nil, fmt.Errorf("%w: element size %d", block.ErrInvalidArgument, size)
	}
	per := (b.Capacity() - format.VectorHeaderSize) / size
	if per < 1 {
		return nil, fmt.Errorf("%w: %d-byte elements do not fit a %d-byte block",
			block.ErrInvalidArgument, size, b.BlockSize())
	}
	return &View[T]{a: a, head: b.ID(), codec: c, elemSize: size, perBlock: per}, nil
}

// ID returns the head block id.
func (v *View[T]) ID() uint64 { return v.head }

// PerBlock returns how many elements one block holds.
func (v *View[T]) PerBlock() int { return v.perBlock }

// load resolves block id and checks its header.
func (v *View[T]) load(id uint64) (link, error) {
	b, err := v.a.At(id)
	if err != nil {
		return link{}, err
	}
	h := format.ReadVectorHeader(b.Data())
	if h.Size%uint64(v.elemSize) != 0 || h.Size > uint64(v.perBlock*v.elemSize) {
		return link{}, fmt.Errorf("%w: block %d holds %d element bytes", ErrBrokenChain, id, h.Size)
	}
	return link{b: b, h: h}, nil
}

// walk visits links from the head until fn returns false. Every next link
// must point back at its predecessor, which also rules out cycles.
func (v *View[T]) walk(fn func(l link) bool) error {
	cur, err := v.load(v.head)
	if err != nil {
		return err
	}
	for {
		if !fn(cur) || !cur.h.HasNext() {
			return nil
		}
		next, err := v.load(cur.h.Next)
		if err != nil {
			return err
		}
		if !next.h.HasPrev() || next.h.Prev != cur.id() {
			return fmt.Errorf("%w: block %d does not link back to %d",
				ErrBrokenChain, cur.h.Next, cur.id())
		}
		cur = next
	}
}

func (v *View[T]) count(l link) int { return int(l.h.Size) / v.elemSize }

// links returns the whole chain, head first.
func (v *View[T]) links() ([]link, error) {
	var out []link
	err := v.walk(func(l link) bool {
		out = append(out, l)
		return true
	})
	return out, err
}

func (v *View[T]) tail() (link, error) {
	var last link
	err := v.walk(func(l link) bool {
		last = l
		return true
	})
	return last, err
}

// BlockIDs returns the ids of the chain's blocks, head first.
func (v *View[T]) BlockIDs() ([]uint64, error) {
	var ids []uint64
	err := v.walk(func(l link) bool {
		ids = append(ids, l.id())
		return true
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Len returns the number of elements.
func (v *View[T]) Len() (int, error) {
	n := 0
	err := v.walk(func(l link) bool {
		n += v.count(l)
		return true
	})
	return n, err
}

// Capacity returns the number of elements the current blocks can hold.
func (v *View[T]) Capacity() (int, error) {
	n, err := v.BlockCount()
	return n * v.perBlock, err
}

// BlockCount returns the number of blocks in the chain.
func (v *View[T]) BlockCount() (int, error) {
	n := 0
	err := v.walk(func(link) bool {
		n++
		return true
	})
	return n, err
}

// locate finds the link holding element i and its offset in that link's payload.
func (v *View[T]) locate(i int) (link, int, error) {
	if i < 0 {
		return link{}, 0, fmt.Errorf("%w: index %d", ErrIndexOutOfBounds, i)
	}
	var (
		found link
		ok    bool
		rest  = i
	)
	err := v.walk(func(l link) bool {
		if n := v.count(l); rest >= n {
			rest -= n
			return true
		}
		found, ok = l, true
		return false
	})
	if err != nil {
		return link{}, 0, err
	}
	if !ok {
		return link{}, 0, fmt.Errorf("%w: index %d", ErrIndexOutOfBounds, i)
	}
	return found, v.offset(rest), nil
}

func (v *View[T]) offset(slot int) int {
	return format.VectorHeaderSize + slot*v.elemSize
}

// At returns element i.
func (v *View[T]) At(i int) (T, error) {
	var zero T
	l, off, err := v.locate(i)
	if err != nil {
		return zero, err
	}
	return v.codec.Get(l.b.Data()[off : off+v.elemSize]), nil
}

// Set overwrites element i.
func (v *View[T]) Set(i int, val T) error {
	l, off, err := v.locate(i)
	if err != nil {
		return err
	}
	v.codec.Put(l.b.Data()[off:off+v.elemSize], val)
	l.b.MarkDirty()
	return nil
}

// PushBack appends val, linking a new tail block when the current one is full.
func (v *View[T]) PushBack(val T) error {
	t, err := v.tail()
	if err != nil {
		return err
	}
	if v.count(t) == v.perBlock {
		if t, err = v.extend(t); err != nil {
			return err
		}
	}
	return v.put(t, v.count(t), val)
}

// extend links a fresh block after tail and returns it.
func (v *View[T]) extend(tail link) (link, error) {
	nb, err := v.a.Create()
	if err != nil {
		return link{}, err
	}
	nh := format.VectorHeader{Flags: format.VectorHasPrev, Prev: tail.id()}
	nb.Zero()
	format.PutVectorHeader(nb.Data(), nh)
	if err := nb.SetPayloadSize(format.VectorHeaderSize); err != nil {
		return link{}, err
	}

	tail.h.Flags |= format.VectorHasNext
	tail.h.Next = nb.ID()
	format.PutVectorHeader(tail.b.Data(), tail.h)
	tail.b.MarkDirty()
	return link{b: nb, h: nh}, nil
}

// put writes val into slot and bumps the link's element count.
func (v *View[T]) put(l link, slot int, val T) error {
	off := v.offset(slot)
	data := l.b.Data()
	v.codec.Put(data[off:off+v.elemSize], val)
	return v.resize(l, slot+1)
}

// resize stores the element count n of link l.
func (v *View[T]) resize(l link, n int) error {
	size := n * v.elemSize
	format.PutU64(l.b.Data(), format.VectorSizeOffset, uint64(size))
	return l.b.SetPayloadSize(format.VectorHeaderSize + size)
}

// PopBack removes and returns the last element. A tail block left empty is
// unlinked and handed back to the Allocator; the head block is never freed.
func (v *View[T]) PopBack() (T, error) {
	var zero T
	t, err := v.tail()
	if err != nil {
		return zero, err
	}
	n := v.count(t)
	if n == 0 {
		if t.id() == v.head {
			return zero, ErrEmptyCollection
		}
		return zero, fmt.Errorf("%w: empty tail block %d", ErrBrokenChain, t.id())
	}

	off := v.offset(n - 1)
	val := v.codec.Get(t.b.Data()[off : off+v.elemSize])
	if err := v.resize(t, n-1); err != nil {
		return zero, err
	}

	if n == 1 && t.h.HasPrev() {
		if err := v.unlink(t); err != nil {
			return zero, err
		}
	}
	return val, nil
}

// unlink detaches tail from its predecessor and frees it.
func (v *View[T]) unlink(t link) error {
	prev, err := v.load(t.h.Prev)
	if err != nil {
		return err
	}
	prev.h.Flags &^= format.VectorHasNext
	prev.h.Next = format.InvalidID
	format.PutVectorHeader(prev.b.Data(), prev.h)
	prev.b.MarkDirty()
	return v.a.Free(t.id())
}

// Back returns the last element without removing it.
func (v *View[T]) Back() (T, error) {
	var zero T
	t, err := v.tail()
	if err != nil {
		return zero, err
	}
	n := v.count(t)
	if n == 0 {
		return zero, ErrEmptyCollection
	}
	off := v.offset(n - 1)
	return v.codec.Get(t.b.Data()[off : off+v.elemSize]), nil
}

// All returns a copy of every element in order.
func (v *View[T]) All() ([]T, error) {
	var out []T
	err := v.walk(func(l link) bool {
		data := l.b.Data()
		for slot := range v.count(l) {
			off := v.offset(slot)
			out = append(out, v.codec.Get(data[off:off+v.elemSize]))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clear empties the view and frees every block but the head.
func (v *View[T]) Clear() error {
	links, err := v.links()
	if err != nil {
		return err
	}
	head := links[0]
	format.PutVectorHeader(head.b.Data(), format.VectorHeader{})
	if err := head.b.SetPayloadSize(format.VectorHeaderSize); err != nil {
		return err
	}
	for i := len(links) - 1; i >= 1; i-- {
		if err := v.a.Free(links[i].id()); err != nil {
			return err
		}
	}
	return nil
}
