package arena

import (
	"testing"
	"unsafe"

	"github.com/argus-labs/entitycore/pkg/testutils"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArena(t *testing.T, opts Options) *Arena {
	t.Helper()
	a, err := New(opts)
	require.NoError(t, err)
	return a
}

func TestArena_New(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "defaults", opts: Options{}},
		{name: "custom", opts: Options{BlockSize: 256, BlocksPerSuperblock: 2}},
		{name: "block size too small", opts: Options{BlockSize: MinBlockSize - 1}, wantErr: true},
		{name: "negative blocks per superblock", opts: Options{BlocksPerSuperblock: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := New(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Stats{}, a.Stats())
		})
	}
}

func TestArena_ElemsPerBlock(t *testing.T) {
	t.Parallel()

	a := newTestArena(t, Options{BlockSize: 256})

	assert.Equal(t, 256/int(unsafe.Sizeof(testutils.Transform{})), ElemsPerBlock[testutils.Transform](a))
	assert.Equal(t, 256/int(unsafe.Sizeof(testutils.Velocity{})), ElemsPerBlock[testutils.Velocity](a))
	assert.Equal(t, 256, ElemsPerBlock[testutils.Empty](a), "zero-size element counts as one byte")
	assert.Equal(t, 1, ElemsPerBlock[[512]byte](a), "oversized element still gets one slot")
}

func TestArena_AllocateCarvesOnDemand(t *testing.T) {
	t.Parallel()

	a := newTestArena(t, Options{BlockSize: 256, BlocksPerSuperblock: 4})
	per := ElemsPerBlock[testutils.Health](a)
	blockBytes := uint64(per) * uint64(unsafe.Sizeof(testutils.Health{}))

	blocks := make([]Block[testutils.Health], 0, 5)
	for range 4 {
		blocks = append(blocks, AllocateBlock[testutils.Health](a))
	}

	stats := a.Stats()
	assert.Equal(t, uint64(1), stats.SuperblocksAllocated)
	assert.Equal(t, uint64(4), stats.BlocksInUse)
	assert.Equal(t, uint64(0), stats.BlocksFree)
	assert.Equal(t, 4*blockBytes, stats.BytesReserved)
	assert.Equal(t, 4*blockBytes, stats.BytesUsed)

	// The fifth block needs a second superblock.
	blocks = append(blocks, AllocateBlock[testutils.Health](a))
	stats = a.Stats()
	assert.Equal(t, uint64(2), stats.SuperblocksAllocated)
	assert.Equal(t, uint64(5), stats.BlocksInUse)
	assert.Equal(t, uint64(3), stats.BlocksFree)
	assert.Equal(t, uint64(5), stats.TotalAllocs)

	for _, b := range blocks {
		assert.Len(t, b.Items, per)
		for _, item := range b.Items {
			assert.Zero(t, item)
		}
	}

	// Property: blocks never overlap.
	seen := make(map[*testutils.Health]struct{})
	for _, b := range blocks {
		for i := range b.Items {
			_, dup := seen[&b.Items[i]]
			require.False(t, dup, "element address handed out twice")
			seen[&b.Items[i]] = struct{}{}
		}
	}
}

func TestArena_DeallocateReusesMostRecent(t *testing.T) {
	t.Parallel()

	a := newTestArena(t, Options{BlockSize: 128, BlocksPerSuperblock: 8})

	b1 := AllocateBlock[testutils.Health](a)
	b2 := AllocateBlock[testutils.Health](a)
	addr := &b2.Items[0]
	b2.Items[0] = testutils.Health{Current: 3, Max: 10}

	DeallocateBlock(a, &b2)
	assert.True(t, b2.IsZero(), "caller's block should be reset")

	b3 := AllocateBlock[testutils.Health](a)
	assert.Same(t, addr, &b3.Items[0], "most recently freed block should be reused first")
	assert.Zero(t, b3.Items[0], "reused block should be zeroed")

	DeallocateBlock(a, &b1)
	DeallocateBlock(a, &b3)
	stats := a.Stats()
	assert.Equal(t, uint64(0), stats.BlocksInUse)
	assert.Equal(t, uint64(8), stats.BlocksFree)
	assert.Equal(t, uint64(0), stats.BytesUsed)
	assert.Equal(t, uint64(1), stats.ActiveSuperblocks, "superblocks are kept until Trim")
}

func TestArena_DeallocateClearsPointers(t *testing.T) {
	t.Parallel()

	a := newTestArena(t, Options{BlockSize: 256, BlocksPerSuperblock: 1})

	b := AllocateBlock[testutils.Labeled](a)
	b.Items[0] = testutils.Labeled{Label: "x", Tags: []string{"a"}, Owner: &testutils.Health{Max: 1}}
	items := b.Items

	DeallocateBlock(a, &b)
	assert.Zero(t, items[0], "freed block must not keep references alive")
}

func TestArena_PoolsAreIndependentPerType(t *testing.T) {
	t.Parallel()

	a := newTestArena(t, Options{BlockSize: 256, BlocksPerSuperblock: 2})

	h := AllocateBlock[testutils.Health](a)
	v := AllocateBlock[testutils.Velocity](a)
	e := AllocateBlock[testutils.Empty](a)

	stats := a.Stats()
	assert.Equal(t, uint64(3), stats.ActiveSuperblocks, "each element type carves its own superblock")
	assert.Equal(t, uint64(3), stats.BlocksInUse)

	DeallocateBlock(a, &h)
	DeallocateBlock(a, &v)
	DeallocateBlock(a, &e)
	assert.Equal(t, uint64(0), a.Stats().BlocksInUse)
}

func TestArena_Trim(t *testing.T) {
	t.Parallel()

	a := newTestArena(t, Options{BlockSize: 128, BlocksPerSuperblock: 2})

	blocks := make([]Block[testutils.Health], 4)
	for i := range blocks {
		blocks[i] = AllocateBlock[testutils.Health](a)
	}
	require.Equal(t, uint64(2), a.Stats().ActiveSuperblocks)

	// Nothing is fully free yet.
	assert.Equal(t, 0, a.Trim())

	// Free both blocks of the first superblock.
	DeallocateBlock(a, &blocks[0])
	DeallocateBlock(a, &blocks[1])
	// And one block of the second.
	DeallocateBlock(a, &blocks[2])

	assert.Equal(t, 1, a.Trim())
	stats := a.Stats()
	assert.Equal(t, uint64(1), stats.ActiveSuperblocks)
	assert.Equal(t, uint64(1), stats.BlocksInUse)
	assert.Equal(t, uint64(1), stats.BlocksFree)
	assert.Equal(t, uint64(2), stats.SuperblocksAllocated, "historical count is unchanged")

	// The remaining free block is reused before a new superblock is carved.
	b := AllocateBlock[testutils.Health](a)
	assert.Equal(t, uint64(2), a.Stats().SuperblocksAllocated)

	// A new superblock fills the released hole.
	c := AllocateBlock[testutils.Health](a)
	assert.Equal(t, uint64(3), a.Stats().SuperblocksAllocated)
	assert.Equal(t, uint64(2), a.Stats().ActiveSuperblocks)

	DeallocateBlock(a, &b)
	DeallocateBlock(a, &c)
	DeallocateBlock(a, &blocks[3])
	assert.Equal(t, 2, a.Trim())
	assert.Equal(t, Stats{SuperblocksAllocated: 3, TotalAllocs: 6}, a.Stats())
}

func TestArena_Release(t *testing.T) {
	t.Parallel()

	a := newTestArena(t, Options{BlockSize: 128})
	b := AllocateBlock[testutils.Health](a)

	a.Release()
	assert.Equal(t, uint64(0), a.Stats().BytesReserved)

	// Returning a block after Release is tolerated.
	DeallocateBlock(a, &b)
	assert.True(t, b.IsZero())

	assert.PanicsWithValue(t, ErrReleased, func() {
		AllocateBlock[testutils.Health](a)
	})
	assert.Equal(t, 0, a.Trim())
}

func TestArena_OutOfMemoryIsFatal(t *testing.T) {
	t.Parallel()

	var got error
	a := newTestArena(t, Options{
		BlockSize:           128,
		BlocksPerSuperblock: 1,
		MaxReservedBytes:    128,
		Fatal: func(err error) {
			got = err
			panic("fatal")
		},
	})

	b := AllocateBlock[[128]byte](a)
	assert.PanicsWithValue(t, "fatal", func() {
		AllocateBlock[[128]byte](a)
	})
	require.Error(t, got)
	assert.True(t, eris.Is(got, ErrOutOfMemory))

	// The arena stays usable: a freed block satisfies the next request without carving.
	DeallocateBlock(a, &b)
	assert.NotPanics(t, func() {
		b = AllocateBlock[[128]byte](a)
	})
}

func TestArena_DefaultFatalPanics(t *testing.T) {
	t.Parallel()

	a := newTestArena(t, Options{BlockSize: 64, BlocksPerSuperblock: 1, MaxReservedBytes: 1})
	assert.Panics(t, func() {
		AllocateBlock[[64]byte](a)
	})
}

func TestArena_DoubleFreePanics(t *testing.T) {
	t.Parallel()
	testutils.RequireAssertions(t)

	a := newTestArena(t, Options{BlockSize: 128})
	b := AllocateBlock[testutils.Health](a)
	stale := b

	DeallocateBlock(a, &b)
	assert.Panics(t, func() {
		DeallocateBlock(a, &stale)
	})
}

func TestArena_ForeignBlockPanics(t *testing.T) {
	t.Parallel()
	testutils.RequireAssertions(t)

	a1 := newTestArena(t, Options{BlockSize: 128})
	a2 := newTestArena(t, Options{BlockSize: 128})
	_ = AllocateBlock[testutils.Health](a2)
	b := AllocateBlock[testutils.Health](a1)

	assert.Panics(t, func() {
		DeallocateBlock(a2, &b)
	})
}

// -------------------------------------------------------------------------------------------------
// Model-based fuzzing arena operations
// -------------------------------------------------------------------------------------------------
// Random allocate/free/trim sequences are checked against a model that only tracks the set of live
// blocks. After every step the counters must agree with the model, and live blocks must keep the
// values written to them.
// -------------------------------------------------------------------------------------------------

func TestArena_ModelFuzz(t *testing.T) {
	t.Parallel()
	prng := testutils.NewRand(t)

	const opsMax = 1 << 13

	a := newTestArena(t, Options{BlockSize: 64, BlocksPerSuperblock: 4})
	per := ElemsPerBlock[testutils.Health](a)

	type liveBlock struct {
		block Block[testutils.Health]
		mark  int
	}
	var live []liveBlock
	var allocs uint64

	for i := range opsMax {
		switch testutils.RandWeightedOp(prng, arenaOps) {
		case a_alloc:
			b := AllocateBlock[testutils.Health](a)
			allocs++
			// Property: a fresh block is zeroed and full length.
			require.Len(t, b.Items, per)
			for _, item := range b.Items {
				require.Zero(t, item)
			}
			for j := range b.Items {
				b.Items[j] = testutils.Health{Current: i, Max: j}
			}
			live = append(live, liveBlock{block: b, mark: i})

		case a_free:
			if len(live) == 0 {
				continue
			}
			k := prng.IntN(len(live))
			// Property: values survive until the block is freed.
			for j, item := range live[k].block.Items {
				require.Equal(t, testutils.Health{Current: live[k].mark, Max: j}, item)
			}
			DeallocateBlock(a, &live[k].block)
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]

		case a_trim:
			a.Trim()
			// Property: after Trim every active superblock has at least one block in use.
			stats := a.Stats()
			assert.LessOrEqual(t, stats.BlocksFree, stats.ActiveSuperblocks*3)

		default:
			panic("unreachable")
		}

		stats := a.Stats()
		// Property: counters match the model.
		require.Equal(t, uint64(len(live)), stats.BlocksInUse)
		require.Equal(t, allocs, stats.TotalAllocs)
		require.Equal(t, stats.ActiveSuperblocks*4, stats.BlocksInUse+stats.BlocksFree)
		require.LessOrEqual(t, stats.BytesUsed, stats.BytesReserved)
	}
}

type arenaOp uint8

const (
	a_alloc arenaOp = 50
	a_free  arenaOp = 45
	a_trim  arenaOp = 5
)

var arenaOps = []arenaOp{a_alloc, a_free, a_trim}
