package arena

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/argus-labs/entitycore/pkg/assert"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Arena supplies fixed-size blocks for any number of element types. It is safe for concurrent
// use, although the storage core normally drives it from one owner goroutine per world.
type Arena struct {
	mu sync.Mutex

	blockSize      int
	blocksPerSuper int
	maxReserved    uint64

	pools    map[reflect.Type]pool // Element type -> *typedPool[T]
	stats    Stats
	released bool

	logger zerolog.Logger
	fatal  func(error)
}

// pool is the type-erased view of a typedPool the arena needs for whole-arena operations.
type pool interface {
	trim() (superblocks int, bytes uint64)
	release()
}

// New creates an Arena. Zero-valued fields of opts fall back to the defaults.
func New(opts Options) (*Arena, error) {
	options := newDefaultOptions()
	options.apply(opts)
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid arena options")
	}

	logger := zerolog.Nop()
	if options.Logger != nil {
		logger = *options.Logger
	}

	a := &Arena{
		blockSize:      options.BlockSize,
		blocksPerSuper: options.BlocksPerSuperblock,
		maxReserved:    options.MaxReservedBytes,
		pools:          make(map[reflect.Type]pool),
		logger:         logger,
		fatal:          options.Fatal,
	}
	if a.fatal == nil {
		a.fatal = a.defaultFatal
	}
	return a, nil
}

// BlockSize returns the block size in bytes.
func (a *Arena) BlockSize() int {
	return a.blockSize
}

// BlocksPerSuperblock returns the number of blocks carved from each superblock.
func (a *Arena) BlocksPerSuperblock() int {
	return a.blocksPerSuper
}

// ElemsPerBlock returns how many elements of T one block holds.
func ElemsPerBlock[T any](a *Arena) int {
	return elemsPerBlock(a.blockSize, unsafe.Sizeof(*new(T)))
}

func elemsPerBlock(blockSize int, elemSize uintptr) int {
	if elemSize == 0 {
		elemSize = 1
	}
	return max(1, blockSize/int(elemSize)) //nolint:gosec // element sizes fit in int
}

// AllocateBlock returns a zeroed block of T. The block stays owned by the caller until it is
// handed back with DeallocateBlock.
func AllocateBlock[T any](a *Arena) Block[T] {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		panic(ErrReleased)
	}

	p := poolFor[T](a)
	if len(p.free) == 0 {
		a.carve(p)
	}

	ref := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	sb := p.superblocks[ref.superblock]
	assert.That(sb != nil, "free list references a released superblock")
	assert.That(!sb.inUse[ref.block], "block %d of superblock %d handed out twice", ref.block, ref.superblock)
	sb.inUse[ref.block] = true
	sb.freeCount--

	a.stats.BlocksInUse++
	a.stats.BlocksFree--
	a.stats.BytesUsed += p.blockBytes
	a.stats.TotalAllocs++

	start := ref.block * p.perBlock
	return Block[T]{
		Items:      sb.mem[start : start+p.perBlock : start+p.perBlock],
		superblock: ref.superblock,
		block:      ref.block,
	}
}

// DeallocateBlock returns b to its superblock's free list. The elements are zeroed so the pool
// does not keep the caller's references alive, but no other teardown runs; callers must have
// finished with every element first. b is reset to the zero Block.
func DeallocateBlock[T any](a *Arena, b *Block[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		// Everything was dropped already.
		*b = Block[T]{}
		return
	}

	assert.That(b.Items != nil, "deallocating an empty block")
	if b.Items == nil {
		return
	}

	p := poolFor[T](a)
	assert.That(b.superblock < len(p.superblocks), "block does not belong to this arena")
	sb := p.superblocks[b.superblock]
	assert.That(sb != nil, "block belongs to a released superblock")
	assert.That(p.zeroSize || &sb.mem[b.block*p.perBlock] == &b.Items[0], "block does not belong to this arena")
	assert.That(sb.inUse[b.block], "block %d of superblock %d freed twice", b.block, b.superblock)

	clear(b.Items)
	sb.inUse[b.block] = false
	sb.freeCount++
	p.free = append(p.free, blockRef{superblock: b.superblock, block: b.block})

	a.stats.BlocksInUse--
	a.stats.BlocksFree++
	a.stats.BytesUsed -= p.blockBytes

	*b = Block[T]{}
}

// Trim releases every superblock whose blocks are all free and returns how many were released.
// This is the only way memory goes back to the runtime before Release.
func (a *Arena) Trim() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return 0
	}

	total := 0
	for typ, p := range a.pools {
		n, bytes := p.trim()
		if n == 0 {
			continue
		}
		total += n
		a.stats.ActiveSuperblocks -= uint64(n)
		a.stats.BytesReserved -= bytes
		a.stats.BlocksFree -= uint64(n * a.blocksPerSuper) //nolint:gosec // positive
		a.logger.Debug().Str("type", typ.String()).Int("superblocks", n).Msg("trimmed free superblocks")
	}
	return total
}

// Release drops every superblock. Blocks still held by callers keep their memory alive through
// the garbage collector, but the arena no longer tracks them and later allocations panic.
func (a *Arena) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range a.pools {
		p.release()
	}
	a.pools = nil
	a.released = true
	a.stats = Stats{
		SuperblocksAllocated: a.stats.SuperblocksAllocated,
		TotalAllocs:          a.stats.TotalAllocs,
	}
}

// Stats returns a snapshot of the arena's counters.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// carve allocates a new superblock for p and pushes all of its blocks onto the free list.
func (a *Arena) carve(p poolCarver) {
	bytes := p.superblockBytes(a.blocksPerSuper)
	if a.maxReserved != 0 && a.stats.BytesReserved+bytes > a.maxReserved {
		err := eris.Wrapf(ErrOutOfMemory, "reserving %d more bytes would exceed the %d byte limit",
			bytes, a.maxReserved)
		a.logger.Error().Err(err).
			Uint64("reserved", a.stats.BytesReserved).
			Uint64("requested", bytes).
			Msg("arena exhausted")
		a.fatal(err)
		panic(err) // The fatal handler must not return.
	}

	id := p.newSuperblock(a.blocksPerSuper)

	a.stats.SuperblocksAllocated++
	a.stats.ActiveSuperblocks++
	a.stats.BytesReserved += bytes
	a.stats.BlocksFree += uint64(a.blocksPerSuper) //nolint:gosec // positive

	a.logger.Debug().
		Str("type", p.typeName()).
		Int("superblock", id).
		Uint64("bytes", bytes).
		Msg("carved superblock")
}

// defaultFatal is the fatal handler used when none is configured.
func (a *Arena) defaultFatal(err error) {
	a.logger.Error().Err(err).Msg("fatal: cannot continue without backing memory")
	panic(err)
}

// poolFor returns the pool for T, creating it on first use. Callers must hold a.mu.
func poolFor[T any](a *Arena) *typedPool[T] {
	typ := reflect.TypeFor[T]()
	if p, ok := a.pools[typ]; ok {
		tp, ok := p.(*typedPool[T])
		assert.That(ok, "pool registered for %s has the wrong type", typ)
		return tp
	}
	p := newTypedPool[T](a.blockSize)
	a.pools[typ] = p
	return p
}
