package blockstore

import (
	"iter"
	"unsafe"

	"github.com/argus-labs/entitycore/pkg/arena"
	"github.com/argus-labs/entitycore/pkg/assert"
	"github.com/kelindar/bitmap"
)

// Relocation describes the element a compacting delete moved. From is the old index of the moved
// element and To is the slot it now occupies. Moved is false when nothing had to move.
type Relocation struct {
	From  int
	To    int
	Moved bool
}

// Store holds elements of type T in arena blocks.
type Store[T any] struct {
	arena    *arena.Arena
	mode     Mode
	perBlock int
	elemSize uintptr

	blocks []arena.Block[T]
	extent int // Slots handed out so far, including free-list gaps
	live   int // Number of live elements

	free     []int         // Free-list mode: freed slots, oldest first
	occupied bitmap.Bitmap // Free-list mode: live slots

	version     uint64 // Bumped on every structural change, checked by iterators
	relocations []func(Relocation)
}

// New creates an empty Store that draws its blocks from a.
func New[T any](a *arena.Arena, mode Mode) *Store[T] {
	assert.That(a != nil, "block store needs an arena")
	assert.That(mode == Compact || mode == FreeList, "invalid storage mode %d", mode)
	return &Store[T]{
		arena:    a,
		mode:     mode,
		perBlock: arena.ElemsPerBlock[T](a),
		elemSize: unsafe.Sizeof(*new(T)),
		blocks:   make([]arena.Block[T], 0, 4),
	}
}

// Mode returns the store's removal policy.
func (s *Store[T]) Mode() Mode {
	return s.mode
}

// Len returns the number of live elements.
func (s *Store[T]) Len() int {
	return s.live
}

// Extent returns the number of slots handed out, gaps included. In compact mode it equals Len.
func (s *Store[T]) Extent() int {
	return s.extent
}

// Blocks returns the number of arena blocks the store holds.
func (s *Store[T]) Blocks() int {
	return len(s.blocks)
}

// ElemsPerBlock returns how many elements one block holds.
func (s *Store[T]) ElemsPerBlock() int {
	return s.perBlock
}

// Create appends a zero-valued element and returns its index and a pointer to it. The pointer is
// valid until the element is deleted or, in compact mode, until another delete moves it.
func (s *Store[T]) Create() (int, *T) {
	assert.That(s.arena != nil, "create on a released store")

	var index int
	if s.mode == FreeList && len(s.free) > 0 {
		index = s.free[0]
		s.free = s.free[1:]
	} else {
		if s.extent == len(s.blocks)*s.perBlock {
			s.blocks = append(s.blocks, arena.AllocateBlock[T](s.arena))
		}
		index = s.extent
		s.extent++
	}

	if s.mode == FreeList {
		s.occupied.Set(uint32(index)) //nolint:gosec // store indices fit in uint32
	}
	s.live++
	s.version++
	return index, s.slot(index)
}

// Delete zeroes the element at index.
//
// In compact mode the last element is moved into the slot and the move is returned and published
// to the relocation subscribers. A trailing block left empty goes back to the arena. In free-list
// mode the slot joins the free chain and the zero Relocation is returned.
func (s *Store[T]) Delete(index int) Relocation {
	assert.That(s.Live(index), "delete of slot %d which is not live", index)
	if !s.Live(index) {
		return Relocation{}
	}
	s.version++
	s.live--

	if s.mode == FreeList {
		var zero T
		*s.slot(index) = zero
		s.occupied.Remove(uint32(index)) //nolint:gosec // store indices fit in uint32
		s.free = append(s.free, index)
		return Relocation{}
	}

	var zero T
	last := s.extent - 1
	reloc := Relocation{}
	if index != last {
		*s.slot(index) = *s.slot(last)
		reloc = Relocation{From: last, To: index, Moved: true}
	}
	*s.slot(last) = zero
	s.extent--

	if s.extent <= (len(s.blocks)-1)*s.perBlock {
		arena.DeallocateBlock(s.arena, &s.blocks[len(s.blocks)-1])
		s.blocks = s.blocks[:len(s.blocks)-1]
	}

	if reloc.Moved {
		for _, fn := range s.relocations {
			fn(reloc)
		}
	}
	return reloc
}

// DeletePointer deletes the element p points at. p must come from this store.
func (s *Store[T]) DeletePointer(p *T) Relocation {
	index, ok := s.IndexOf(p)
	assert.That(ok, "delete of a pointer not owned by this store")
	if !ok {
		return Relocation{}
	}
	return s.Delete(index)
}

// IndexOf returns the index of the live element p points at. Zero-size element types have no
// distinct addresses and always report false.
func (s *Store[T]) IndexOf(p *T) (int, bool) {
	if p == nil || s.elemSize == 0 {
		return 0, false
	}
	addr := uintptr(unsafe.Pointer(p))
	span := uintptr(s.perBlock) * s.elemSize
	for b := range s.blocks {
		base := uintptr(unsafe.Pointer(&s.blocks[b].Items[0]))
		if addr < base || addr >= base+span {
			continue
		}
		off := addr - base
		if off%s.elemSize != 0 {
			return 0, false
		}
		index := b*s.perBlock + int(off/s.elemSize) //nolint:gosec // bounded by perBlock
		if !s.Live(index) {
			return 0, false
		}
		return index, true
	}
	return 0, false
}

// At returns a pointer to the element at index, or nil if the slot is not live.
func (s *Store[T]) At(index int) *T {
	if !s.Live(index) {
		return nil
	}
	return s.slot(index)
}

// Live reports whether index holds a live element.
func (s *Store[T]) Live(index int) bool {
	if index < 0 || index >= s.extent {
		return false
	}
	if s.mode == FreeList {
		return s.occupied.Contains(uint32(index)) //nolint:gosec // store indices fit in uint32
	}
	return true
}

// OnRelocate registers fn to be called, in registration order, after every compacting move.
func (s *Store[T]) OnRelocate(fn func(Relocation)) {
	assert.That(fn != nil, "nil relocation subscriber")
	s.relocations = append(s.relocations, fn)
}

// Clear zeroes every element and returns all blocks to the arena. Relocation subscribers stay
// registered.
func (s *Store[T]) Clear() {
	for i := range s.blocks {
		arena.DeallocateBlock(s.arena, &s.blocks[i])
	}
	s.blocks = s.blocks[:0]
	s.extent = 0
	s.live = 0
	s.free = nil
	s.occupied.Clear()
	s.version++
}

// Release clears the store and detaches it from its arena. A released store must not be used
// again.
func (s *Store[T]) Release() {
	if s.arena == nil {
		return
	}
	s.Clear()
	s.blocks = nil
	s.relocations = nil
	s.arena = nil
}

// Iter returns an iterator over the live elements in slots [start, start+count). The range is
// clipped to the store's extent. The store must not be mutated until the iterator is exhausted
// or dropped.
func (s *Store[T]) Iter(start, count int) *Iterator[T] {
	end := min(start+max(count, 0), s.extent)
	start = max(start, 0)
	return &Iterator[T]{
		store:   s,
		next:    start,
		end:     end,
		current: -1,
		version: s.version,
	}
}

// All returns a sequence over every live element in storage order.
func (s *Store[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		it := s.Iter(0, s.extent)
		for it.Next() {
			if !yield(it.Index(), it.Value()) {
				return
			}
		}
	}
}

func (s *Store[T]) slot(index int) *T {
	return &s.blocks[index/s.perBlock].Items[index%s.perBlock]
}

// Iterator walks live elements of a Store in storage order. It is forward-only and cannot be
// restarted; build a new one for every pass.
type Iterator[T any] struct {
	store   *Store[T]
	next    int
	end     int
	current int
	version uint64
}

// Next advances to the next live element and reports whether there is one.
func (it *Iterator[T]) Next() bool {
	assert.That(it.version == it.store.version, "block store mutated during iteration")
	for it.next < it.end {
		i := it.next
		it.next++
		if it.store.Live(i) {
			it.current = i
			return true
		}
	}
	it.current = -1
	return false
}

// Index returns the index of the current element.
func (it *Iterator[T]) Index() int {
	return it.current
}

// Value returns a pointer to the current element.
func (it *Iterator[T]) Value() *T {
	assert.That(it.current >= 0, "iterator is not positioned on an element")
	return it.store.slot(it.current)
}
