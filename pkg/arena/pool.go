package arena

import (
	"reflect"
	"unsafe"
)

// Block is a fixed-capacity run of elements handed out by an Arena. Items always has its full
// capacity as length; the store that owns the block decides which elements are live.
type Block[T any] struct {
	Items []T

	superblock int // Index of the owning superblock in its pool
	block      int // Position of the block inside the superblock
}

// Len returns the block capacity in elements.
func (b *Block[T]) Len() int {
	return len(b.Items)
}

// IsZero reports whether the block is unallocated.
func (b *Block[T]) IsZero() bool {
	return b.Items == nil
}

type blockRef struct {
	superblock int
	block      int
}

type superblock[T any] struct {
	mem       []T    // One allocation backing every block of this superblock
	inUse     []bool // Block index -> handed out
	freeCount int    // Number of blocks on the free list
}

// typedPool owns every superblock for one element type.
type typedPool[T any] struct {
	zeroSize    bool
	perBlock    int
	blockBytes  uint64
	superblocks []*superblock[T] // Released superblocks leave a nil hole that carve reuses
	free        []blockRef       // Free index list, popped from the end
}

// poolCarver is what Arena.carve needs from a pool without knowing T.
type poolCarver interface {
	superblockBytes(blocks int) uint64
	newSuperblock(blocks int) int
	typeName() string
}

var (
	_ pool       = (*typedPool[int])(nil)
	_ poolCarver = (*typedPool[int])(nil)
)

func newTypedPool[T any](blockSize int) *typedPool[T] {
	size := max(unsafe.Sizeof(*new(T)), 1) // Zero-size elements are accounted as one byte
	per := elemsPerBlock(blockSize, size)
	return &typedPool[T]{
		zeroSize:    unsafe.Sizeof(*new(T)) == 0,
		perBlock:    per,
		blockBytes:  uint64(per) * uint64(size), //nolint:gosec // positive
		superblocks: make([]*superblock[T], 0, 4),
		free:        make([]blockRef, 0, DefaultBlocksPerSuperblock),
	}
}

func (p *typedPool[T]) superblockBytes(blocks int) uint64 {
	return p.blockBytes * uint64(blocks) //nolint:gosec // positive
}

func (p *typedPool[T]) typeName() string {
	return reflect.TypeFor[T]().String()
}

// newSuperblock allocates one superblock and queues its blocks so that block 0 is popped first.
func (p *typedPool[T]) newSuperblock(blocks int) int {
	sb := &superblock[T]{
		mem:       make([]T, blocks*p.perBlock),
		inUse:     make([]bool, blocks),
		freeCount: blocks,
	}

	id := -1
	for i, existing := range p.superblocks {
		if existing == nil {
			id = i
			p.superblocks[i] = sb
			break
		}
	}
	if id == -1 {
		id = len(p.superblocks)
		p.superblocks = append(p.superblocks, sb)
	}

	for b := blocks - 1; b >= 0; b-- {
		p.free = append(p.free, blockRef{superblock: id, block: b})
	}
	return id
}

// trim drops fully free superblocks and their entries in the free list.
func (p *typedPool[T]) trim() (int, uint64) {
	released := make(map[int]struct{})
	for i, sb := range p.superblocks {
		if sb != nil && sb.freeCount == len(sb.inUse) {
			released[i] = struct{}{}
		}
	}
	if len(released) == 0 {
		return 0, 0
	}

	kept := p.free[:0]
	for _, ref := range p.free {
		if _, ok := released[ref.superblock]; !ok {
			kept = append(kept, ref)
		}
	}
	p.free = kept

	var bytes uint64
	for i := range released {
		bytes += p.superblockBytes(len(p.superblocks[i].inUse))
		p.superblocks[i] = nil
	}
	return len(released), bytes
}

func (p *typedPool[T]) release() {
	p.superblocks = nil
	p.free = nil
}
