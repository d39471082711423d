package record

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxxboehme/BlockStorage/block"
	"github.com/maxxboehme/BlockStorage/internal/format"
	"github.com/maxxboehme/BlockStorage/internal/testutil"
	"github.com/maxxboehme/BlockStorage/region"
	"github.com/maxxboehme/BlockStorage/verify"
)

func newRecords(t *testing.T) *Storage {
	t.Helper()
	s, _ := testutil.SetupBlockStorage(t, testutil.DefaultBlockSize)
	r, err := New(s)
	require.NoError(t, err)
	return r
}

// cstr mirrors how strings are stored in the scenarios: with a trailing NUL.
func cstr(s string) []byte { return append([]byte(s), 0) }

func mustAdd(t *testing.T, r *Storage, p []byte) RecordID {
	t.Helper()
	id, err := r.Add(p)
	require.NoError(t, err)
	require.NotEqual(t, InvalidRecordID, id)
	return id
}

// requireConsistent checks that every block is owned by exactly one record
// or registry.
func requireConsistent(t *testing.T, r *Storage) {
	t.Helper()
	require.NoError(t, verify.AllInvariants(r.Blocks().Region().Bytes()))
}

func freeIDs(t *testing.T, r *Storage) []uint64 {
	t.Helper()
	ids, err := r.FreeBlockIDs()
	require.NoError(t, err)
	return ids
}

func TestNew_Empty(t *testing.T) {
	r := newRecords(t)
	require.Zero(t, r.Size())
	require.Zero(t, r.FreeBlockCount())
	require.Empty(t, freeIDs(t, r))
	require.Equal(t, uint64(1), r.Blocks().BlockCount())
	require.Equal(t, testutil.DefaultBlockSize-format.BlockHeaderSize-format.ChainHeaderSize, r.RecordCapacity())
}

func TestNew_RejectsUnformattedBlockZero(t *testing.T) {
	s, _ := testutil.SetupBlockStorage(t, testutil.DefaultBlockSize)
	_, err := s.Create()
	require.NoError(t, err)

	_, err = New(s)
	require.ErrorIs(t, err, ErrNotFormatted)
	require.ErrorIs(t, err, block.ErrCorruptStore)

	_, err = New(nil)
	require.ErrorIs(t, err, block.ErrInvalidArgument)
}

func TestAddGet_RoundTrip(t *testing.T) {
	r := newRecords(t)
	per := r.RecordCapacity()

	cases := map[string]int{
		"empty":       0,
		"short":       12,
		"one less":    per - 1,
		"exact":       per,
		"one more":    per + 1,
		"three links": 2*per + 17,
	}
	for name, n := range cases {
		t.Run(name, func(t *testing.T) {
			p := make([]byte, n)
			for i := range p {
				p[i] = byte(i * 7)
			}
			before := r.Blocks().BlockCount()

			id := mustAdd(t, r, p)
			got, err := r.Get(id)
			require.NoError(t, err)
			require.Equal(t, p, got)
			require.NotNil(t, got)

			want := uint64(max(1, (n+per-1)/per))
			require.Equal(t, want, r.Blocks().BlockCount()-before)
		})
	}
}

func TestAdd_BlockBoundaries(t *testing.T) {
	r := newRecords(t)
	per := r.RecordCapacity()
	require.Equal(t, 972, per)

	for n, blocks := range map[int]uint64{971: 1, 972: 1, 973: 2} {
		before := r.Blocks().BlockCount()
		mustAdd(t, r, bytes.Repeat([]byte{'x'}, n))
		assert.Equal(t, blocks, r.Blocks().BlockCount()-before, "n=%d", n)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := newRecords(t)
	id := mustAdd(t, r, []byte("abc"))

	got, err := r.Get(id)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := r.Get(id)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}

func TestEraseScenario(t *testing.T) {
	r := newRecords(t)

	id0 := mustAdd(t, r, cstr("TestString0"))
	require.Equal(t, uint64(1), r.Size())
	id1 := mustAdd(t, r, cstr("TestString1"))
	require.Equal(t, uint64(2), r.Size())
	require.Equal(t, RecordID(1), id0)
	require.Equal(t, RecordID(2), id1)

	require.NoError(t, r.Erase(id0))
	require.Equal(t, uint64(1), r.Size())
	require.Equal(t, []uint64{uint64(id0)}, freeIDs(t, r))

	// The registry's head came from a fresh block.
	require.Equal(t, uint64(3), format.ReadU64(r.header().Data(), format.RecordRegistryHeadOffset))

	require.NoError(t, r.Erase(id1))
	require.Zero(t, r.Size())
	require.Equal(t, []uint64{uint64(id0), uint64(id1)}, freeIDs(t, r))
	require.Equal(t, uint64(2), r.FreeBlockCount())

	id2 := mustAdd(t, r, cstr("TestString2"))
	require.Equal(t, id1, id2)
	require.Equal(t, uint64(1), r.Size())

	id3 := mustAdd(t, r, cstr("TestString3"))
	require.Equal(t, id0, id3)
	require.Equal(t, uint64(2), r.Size())
	require.Zero(t, r.FreeBlockCount())

	got, err := r.Get(id3)
	require.NoError(t, err)
	require.Equal(t, cstr("TestString3"), got)
	requireConsistent(t, r)
}

func TestErase_LIFOReuse(t *testing.T) {
	r := newRecords(t)
	per := r.RecordCapacity()
	mustAdd(t, r, []byte("keep"))

	for _, n := range []int{10, per, 3*per - 1} {
		freeBefore := r.FreeBlockCount()
		p := bytes.Repeat([]byte{'a'}, n)

		id := mustAdd(t, r, p)
		require.NoError(t, r.Erase(id))
		again := mustAdd(t, r, p)

		require.Equal(t, id, again, "n=%d", n)
		require.Equal(t, freeBefore, r.FreeBlockCount(), "n=%d", n)
	}
}

func TestSize_AddsMinusErases(t *testing.T) {
	r := newRecords(t)
	rng := rand.New(rand.NewPCG(1, 2))

	var live []RecordID
	contents := map[RecordID][]byte{}
	for round := range 20 {
		for i := range rng.IntN(30) + 1 {
			p := []byte(fmt.Sprintf("record %d/%d %s", round, i, bytes.Repeat([]byte{'z'}, rng.IntN(2500))))
			id := mustAdd(t, r, p)
			live = append(live, id)
			contents[id] = p
		}
		rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })
		cut := len(live) - rng.IntN(len(live)+1)
		for _, id := range live[cut:] {
			require.NoError(t, r.Erase(id))
			delete(contents, id)
		}
		live = live[:cut]
		require.Equal(t, uint64(len(live)), r.Size())
		requireConsistent(t, r)
	}

	for id, want := range contents {
		got, err := r.Get(id)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestGetErase_InvalidIDs(t *testing.T) {
	r := newRecords(t)
	id := mustAdd(t, r, bytes.Repeat([]byte{'q'}, r.RecordCapacity()+5))

	_, err := r.Get(InvalidRecordID)
	require.ErrorIs(t, err, ErrNotRecord)
	require.ErrorIs(t, err, block.ErrOutOfBounds)

	_, err = r.Get(RecordID(100))
	require.ErrorIs(t, err, ErrNotRecord)

	// The second link of a record is not a record id.
	_, err = r.Get(id + 1)
	require.ErrorIs(t, err, ErrNotRecord)

	require.NoError(t, r.Erase(id))
	_, err = r.Get(id)
	require.ErrorIs(t, err, ErrNotRecord)
	require.ErrorIs(t, r.Erase(id), ErrNotRecord)
	require.Zero(t, r.Size())
}

func TestGetErase_BlocksThatAreNotRecords(t *testing.T) {
	requireNotRecord := func(t *testing.T, r *Storage, id uint64) {
		t.Helper()
		size, free := r.Size(), r.FreeBlockCount()
		_, err := r.Get(RecordID(id))
		require.ErrorIs(t, err, ErrNotRecord, "get %d", id)
		require.ErrorIs(t, r.Erase(RecordID(id)), ErrNotRecord, "erase %d", id)
		require.Equal(t, size, r.Size())
		require.Equal(t, free, r.FreeBlockCount())
	}

	t.Run("record registry head", func(t *testing.T) {
		r := newRecords(t)
		id0 := mustAdd(t, r, cstr("TestString0"))
		keep := mustAdd(t, r, cstr("keep"))
		require.NoError(t, r.Erase(id0))

		v, err := r.registry()
		require.NoError(t, err)
		require.NotNil(t, v)
		requireNotRecord(t, r, v.ID())
		require.Equal(t, []uint64{uint64(id0)}, freeIDs(t, r))

		got, err := r.Get(keep)
		require.NoError(t, err)
		require.Equal(t, cstr("keep"), got)
		require.Equal(t, id0, mustAdd(t, r, []byte("reused")))
		requireConsistent(t, r)
	})

	t.Run("record registry links", func(t *testing.T) {
		r := newRecords(t)
		mustAdd(t, r, []byte("keep"))
		v, err := r.registry()
		require.NoError(t, err)
		require.Nil(t, v)

		var ids []RecordID
		for range (testutil.DefaultBlockSize-format.BlockHeaderSize-format.VectorHeaderSize)/8 + 1 {
			ids = append(ids, mustAdd(t, r, []byte("r")))
		}
		for _, id := range ids {
			require.NoError(t, r.Erase(id))
		}

		v, err = r.registry()
		require.NoError(t, err)
		links, err := v.BlockIDs()
		require.NoError(t, err)
		require.Len(t, links, 2)
		for _, id := range links {
			requireNotRecord(t, r, id)
		}
		requireConsistent(t, r)
	})

	t.Run("block registry", func(t *testing.T) {
		r := newRecords(t)
		mustAdd(t, r, []byte("keep"))
		b, err := r.Blocks().Create()
		require.NoError(t, err)
		require.NoError(t, r.Blocks().Free(b.ID()))

		head := format.ReadU64(r.Blocks().Region().Bytes(), format.StoreRegistryHeadOffset)
		require.NotEqual(t, format.InvalidID, head)
		requireNotRecord(t, r, head)
		// The freed block itself was never a record either.
		requireNotRecord(t, r, b.ID())
		requireConsistent(t, r)
	})

	t.Run("raw block", func(t *testing.T) {
		r := newRecords(t)
		b, err := r.Blocks().Create()
		require.NoError(t, err)
		// No records at all.
		requireNotRecord(t, r, b.ID())

		mustAdd(t, r, []byte("keep"))
		requireNotRecord(t, r, b.ID())

		// Chain-shaped bytes without the head flag are not a record.
		format.PutChainHeader(b.Data(), format.ChainHeader{Size: 4})
		requireNotRecord(t, r, b.ID())
		require.Equal(t, uint64(1), r.Size())
	})
}

func TestGet_BrokenChain(t *testing.T) {
	t.Run("back link", func(t *testing.T) {
		r := newRecords(t)
		id := mustAdd(t, r, bytes.Repeat([]byte{'q'}, r.RecordCapacity()+5))
		second, err := r.Blocks().At(uint64(id) + 1)
		require.NoError(t, err)
		format.PutU64(second.Data(), format.ChainPrevOffset, 0)

		_, err = r.Get(id)
		require.ErrorIs(t, err, ErrBrokenChain)
		require.ErrorIs(t, err, block.ErrInvalidArgument)
	})

	t.Run("oversized link", func(t *testing.T) {
		r := newRecords(t)
		id := mustAdd(t, r, []byte("x"))
		first, err := r.Blocks().At(uint64(id))
		require.NoError(t, err)
		format.PutU64(first.Data(), format.ChainSizeOffset, uint64(r.RecordCapacity()+1))

		_, err = r.Get(id)
		require.ErrorIs(t, err, ErrBrokenChain)
	})

	t.Run("loop", func(t *testing.T) {
		r := newRecords(t)
		id := mustAdd(t, r, bytes.Repeat([]byte{'q'}, r.RecordCapacity()+5))
		second, err := r.Blocks().At(uint64(id) + 1)
		require.NoError(t, err)
		format.PutU64(second.Data(), format.ChainNextOffset, uint64(id))

		err = r.Erase(id)
		require.ErrorIs(t, err, ErrBrokenChain)
		// Nothing was freed.
		require.Zero(t, r.FreeBlockCount())
		require.Equal(t, uint64(1), r.Size())
	})
}

func TestAdd_AtomicOnGrowFailure(t *testing.T) {
	const bs = testutil.DefaultBlockSize
	// Room for the header block, two records and two more blocks.
	lr := testutil.NewLimitedRegion(format.RegionSizeFor(5, bs))
	s, err := block.New(lr, nil, &block.Config{BlockSize: bs})
	require.NoError(t, err)
	r, err := New(s)
	require.NoError(t, err)

	mustAdd(t, r, cstr("TestString0"))
	mustAdd(t, r, cstr("TestString1"))

	_, err = r.Add(bytes.Repeat([]byte{'b'}, 3*r.RecordCapacity()))
	require.ErrorIs(t, err, block.ErrGrowFail)
	require.ErrorIs(t, err, testutil.ErrRegionFull)

	require.Equal(t, uint64(2), r.Size())
	require.Equal(t, uint64(5), s.BlockCount())
	// Block 3 became the registry head, block 4 waits in it.
	require.Equal(t, []uint64{4}, freeIDs(t, r))
	require.Equal(t, uint64(1), r.FreeBlockCount())

	requireConsistent(t, r)

	id := mustAdd(t, r, []byte("fits"))
	require.Equal(t, RecordID(4), id)
}

func TestRegistry_GrowsPastOneBlock(t *testing.T) {
	r := newRecords(t)
	per := (testutil.DefaultBlockSize - format.BlockHeaderSize - format.VectorHeaderSize) / 8

	ids := make([]RecordID, 0, per+10)
	for range per + 10 {
		ids = append(ids, mustAdd(t, r, []byte("r")))
	}
	for _, id := range ids {
		require.NoError(t, r.Erase(id))
	}
	require.Equal(t, uint64(per+10), r.FreeBlockCount())
	require.Len(t, freeIDs(t, r), per+10)

	// Draining the registry hands its emptied second link back to the
	// block allocator.
	for range 11 {
		mustAdd(t, r, []byte("r"))
	}
	require.Equal(t, uint64(1), r.Blocks().FreeBlockCount())

	before := r.Blocks().BlockCount()
	for range per - 1 {
		mustAdd(t, r, []byte("r"))
	}
	require.Zero(t, r.FreeBlockCount())
	require.Equal(t, before, r.Blocks().BlockCount())

	// The next record reuses the block the registry gave back.
	mustAdd(t, r, []byte("r"))
	require.Equal(t, before, r.Blocks().BlockCount())
	require.Zero(t, r.Blocks().FreeBlockCount())
	requireConsistent(t, r)
}

func TestReattach_File(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file-backed region in short mode")
	}
	path := testutil.TempPath(t, "records.blk")

	s, f := testutil.SetupFileBlockStorage(t, path, testutil.DefaultBlockSize)
	r, err := New(s)
	require.NoError(t, err)
	keep := mustAdd(t, r, cstr("persisted"))
	gone := mustAdd(t, r, cstr("erased"))
	require.NoError(t, r.Erase(gone))
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	f2, err := region.OpenFile(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f2.Close() })
	s2, err := block.New(f2, nil, &block.Config{BlockSize: testutil.DefaultBlockSize})
	require.NoError(t, err)
	r2, err := New(s2)
	require.NoError(t, err)

	require.Equal(t, uint64(1), r2.Size())
	got, err := r2.Get(keep)
	require.NoError(t, err)
	require.Equal(t, cstr("persisted"), got)
	require.Equal(t, []uint64{uint64(gone)}, freeIDs(t, r2))
	require.Equal(t, gone, mustAdd(t, r2, []byte("again")))
}

func TestLock_Brackets(t *testing.T) {
	r := newRecords(t)
	r.Lock()
	id := mustAdd(t, r, []byte("locked"))
	r.Unlock()

	got, err := r.Get(id)
	require.NoError(t, err)
	require.Equal(t, []byte("locked"), got)
}
