package vector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxxboehme/BlockStorage/block"
	"github.com/maxxboehme/BlockStorage/internal/format"
	"github.com/maxxboehme/BlockStorage/region"
)

func newStorage(t *testing.T) *block.Storage {
	t.Helper()
	s, err := block.New(region.NewMemory(0), nil, &block.Config{BlockSize: 1028})
	require.NoError(t, err)
	return s
}

func newTestView(t *testing.T, s *block.Storage) *View[uint64] {
	t.Helper()
	b, err := s.Create()
	require.NoError(t, err)
	v, err := Create[uint64](s, b, Uint64{})
	require.NoError(t, err)
	return v
}

func requireLen[T any](t *testing.T, v *View[T], want int) {
	t.Helper()
	n, err := v.Len()
	require.NoError(t, err)
	require.Equal(t, want, n)
}

func requireBlocks[T any](t *testing.T, v *View[T], want int) {
	t.Helper()
	n, err := v.BlockCount()
	require.NoError(t, err)
	require.Equal(t, want, n)
}

func TestCreate_Empty(t *testing.T) {
	s := newStorage(t)
	v := newTestView(t, s)

	require.Equal(t, uint64(0), v.ID())
	require.Equal(t, (1028-format.BlockHeaderSize-format.VectorHeaderSize)/8, v.PerBlock())
	requireLen(t, v, 0)
	requireBlocks(t, v, 1)

	c, err := v.Capacity()
	require.NoError(t, err)
	require.Equal(t, v.PerBlock(), c)
}

func TestCreate_ZeroesDirtyBlock(t *testing.T) {
	s := newStorage(t)
	b, err := s.Create()
	require.NoError(t, err)
	require.NoError(t, b.Set([]byte("leftover bytes from an earlier owner")))

	v, err := Create[uint64](s, b, Uint64{})
	require.NoError(t, err)
	requireLen(t, v, 0)
}

func TestPushBack_SpillsIntoSecondBlock(t *testing.T) {
	s := newStorage(t)
	v := newTestView(t, s)

	capacity, err := v.Capacity()
	require.NoError(t, err)
	for i := range capacity {
		require.NoError(t, v.PushBack(uint64(i)))
	}
	requireBlocks(t, v, 1)

	require.NoError(t, v.PushBack(uint64(capacity)))
	requireBlocks(t, v, 2)
	requireLen(t, v, capacity+1)
	ids, err := v.BlockIDs()
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, ids)

	for i := range capacity + 1 {
		got, err := v.At(i)
		require.NoError(t, err)
		require.Equal(t, uint64(i), got)
	}

	last, err := v.PopBack()
	require.NoError(t, err)
	require.Equal(t, uint64(capacity), last)
	requireBlocks(t, v, 1)
	requireLen(t, v, capacity)

	// The emptied tail went back to the allocator.
	require.Equal(t, uint64(1), s.FreeBlockCount())
	ids, err = s.FreeBlockIDs()
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)
}

func TestPopBack_Order(t *testing.T) {
	s := newStorage(t)
	v := newTestView(t, s)
	for i := range 300 {
		require.NoError(t, v.PushBack(uint64(i)))
	}
	requireBlocks(t, v, 3)

	for i := 299; i >= 0; i-- {
		got, err := v.PopBack()
		require.NoError(t, err)
		require.Equal(t, uint64(i), got)
	}
	requireLen(t, v, 0)
	requireBlocks(t, v, 1)

	_, err := v.PopBack()
	require.ErrorIs(t, err, ErrEmptyCollection)
	require.ErrorIs(t, err, block.ErrEmptyCollection)
}

func TestAt_OutOfBounds(t *testing.T) {
	s := newStorage(t)
	v := newTestView(t, s)
	require.NoError(t, v.PushBack(7))

	_, err := v.At(1)
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
	require.ErrorIs(t, err, block.ErrOutOfBounds)

	_, err = v.At(-1)
	require.ErrorIs(t, err, ErrIndexOutOfBounds)

	require.ErrorIs(t, v.Set(1, 3), ErrIndexOutOfBounds)
}

func TestSetBackAll(t *testing.T) {
	s := newStorage(t)
	v := newTestView(t, s)

	_, err := v.Back()
	require.ErrorIs(t, err, ErrEmptyCollection)

	for i := range 130 {
		require.NoError(t, v.PushBack(uint64(i)))
	}
	require.NoError(t, v.Set(125, 9999))

	back, err := v.Back()
	require.NoError(t, err)
	require.Equal(t, uint64(129), back)

	all, err := v.All()
	require.NoError(t, err)
	require.Len(t, all, 130)
	require.Equal(t, uint64(9999), all[125])
	require.Equal(t, uint64(124), all[124])
}

func TestClear_FreesLinks(t *testing.T) {
	s := newStorage(t)
	v := newTestView(t, s)
	for i := range 400 {
		require.NoError(t, v.PushBack(uint64(i)))
	}
	requireBlocks(t, v, 4)

	require.NoError(t, v.Clear())
	requireLen(t, v, 0)
	requireBlocks(t, v, 1)
	require.Equal(t, uint64(3), s.FreeBlockCount())

	require.NoError(t, v.PushBack(1))
	requireLen(t, v, 1)
}

func TestOpen(t *testing.T) {
	s := newStorage(t)
	v := newTestView(t, s)
	for i := range 200 {
		require.NoError(t, v.PushBack(uint64(i)))
	}

	again, err := Open[uint64](s, v.ID(), Uint64{})
	require.NoError(t, err)
	all, err := again.All()
	require.NoError(t, err)
	require.Len(t, all, 200)

	// Block 1 is the second link, not a head.
	_, err = Open[uint64](s, 1, Uint64{})
	require.ErrorIs(t, err, ErrBrokenChain)

	_, err = Open[uint64](s, 99, Uint64{})
	require.ErrorIs(t, err, block.ErrOutOfBounds)
}

func TestWalk_DetectsBrokenLinks(t *testing.T) {
	t.Run("back pointer", func(t *testing.T) {
		s := newStorage(t)
		v := newTestView(t, s)
		for i := range 200 {
			require.NoError(t, v.PushBack(uint64(i)))
		}
		second, err := s.At(1)
		require.NoError(t, err)
		format.PutU64(second.Data(), format.VectorPrevOffset, 1)

		_, err = v.Len()
		require.ErrorIs(t, err, ErrBrokenChain)
		require.ErrorIs(t, err, block.ErrInvalidArgument)
	})

	t.Run("cycle to head", func(t *testing.T) {
		s := newStorage(t)
		v := newTestView(t, s)
		for i := range 200 {
			require.NoError(t, v.PushBack(uint64(i)))
		}
		second, err := s.At(1)
		require.NoError(t, err)
		h := format.ReadVectorHeader(second.Data())
		h.Flags |= format.VectorHasNext
		h.Next = 0
		format.PutVectorHeader(second.Data(), h)

		_, err = v.All()
		require.ErrorIs(t, err, ErrBrokenChain)
	})

	t.Run("element bytes", func(t *testing.T) {
		s := newStorage(t)
		v := newTestView(t, s)
		head, err := s.At(v.ID())
		require.NoError(t, err)
		format.PutU64(head.Data(), format.VectorSizeOffset, 3)

		_, err = v.Len()
		require.ErrorIs(t, err, ErrBrokenChain)
	})
}

func TestView_SurvivesRelocation(t *testing.T) {
	s := newStorage(t)
	v := newTestView(t, s)
	for i := range 500 {
		require.NoError(t, v.PushBack(uint64(i)))
		if i%50 == 0 {
			_, err := s.Create()
			require.NoError(t, err)
		}
	}
	all, err := v.All()
	require.NoError(t, err)
	for i, x := range all {
		require.Equal(t, uint64(i), x)
	}
}

func TestCodecs(t *testing.T) {
	s := newStorage(t)

	b, err := s.Create()
	require.NoError(t, err)
	v32, err := Create[uint32](s, b, Uint32{})
	require.NoError(t, err)
	require.Equal(t, (1028-format.BlockHeaderSize-format.VectorHeaderSize)/4, v32.PerBlock())
	require.NoError(t, v32.PushBack(0xdeadbeef))
	got32, err := v32.At(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), got32)

	b, err = s.Create()
	require.NoError(t, err)
	v64, err := Create[int64](s, b, Int64{})
	require.NoError(t, err)
	require.NoError(t, v64.PushBack(-42))
	got64, err := v64.PopBack()
	require.NoError(t, err)
	require.Equal(t, int64(-42), got64)
}

type wideCodec struct{}

func (wideCodec) Size() int { return 2000 }

func (wideCodec) Put(b []byte, v [2000]byte) { copy(b, v[:]) }

func (wideCodec) Get(b []byte) (v [2000]byte) {
	copy(v[:], b)
	return v
}

func TestCreate_RejectsOversizedElement(t *testing.T) {
	s := newStorage(t)
	b, err := s.Create()
	require.NoError(t, err)
	_, err = Create[[2000]byte](s, b, wideCodec{})
	require.ErrorIs(t, err, block.ErrInvalidArgument)
}
