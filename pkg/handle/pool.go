package handle

import (
	"iter"

	"github.com/argus-labs/entitycore/pkg/arena"
	"github.com/argus-labs/entitycore/pkg/assert"
	"github.com/argus-labs/entitycore/pkg/blockstore"
)

// Pool is a block store whose elements are addressed by handles. Compacting moves inside the
// store are applied to the handle table automatically, so a handle keeps resolving to the same
// element for as long as it lives.
type Pool[T any] struct {
	table  *Table
	store  *blockstore.Store[T]
	owners []uint32 // Store index -> handle table index
}

// NewPool creates an empty Pool backed by a.
func NewPool[T any](a *arena.Arena, mode blockstore.Mode) *Pool[T] {
	p := &Pool[T]{
		table: NewTable(0),
		store: blockstore.New[T](a, mode),
	}
	p.store.OnRelocate(p.relocate)
	return p
}

// Create adds a zero-valued element and returns its handle and a pointer to it. The pointer is
// only valid until the next structural change; hold the handle instead.
func (p *Pool[T]) Create() (Handle, *T) {
	index, value := p.store.Create()
	h := p.table.Allocate(index)
	if index >= len(p.owners) {
		p.owners = append(p.owners, make([]uint32, index-len(p.owners)+1)...)
	}
	p.owners[index] = h.index
	return h, value
}

// Resolve returns the element h refers to, or nil if h is stale or invalid.
func (p *Pool[T]) Resolve(h Handle) *T {
	index, ok := p.table.Resolve(h)
	if !ok {
		return nil
	}
	return p.store.At(index)
}

// Contains reports whether h resolves.
func (p *Pool[T]) Contains(h Handle) bool {
	_, ok := p.table.Resolve(h)
	return ok
}

// Destroy deletes the element h refers to and recycles its handle slot. It reports false if h
// did not resolve.
func (p *Pool[T]) Destroy(h Handle) bool {
	index, ok := p.table.Resolve(h)
	if !ok {
		return false
	}
	p.store.Delete(index)
	p.table.Recycle(h.index)
	return true
}

// HandleAt returns the handle of the element at a store index, or the zero Handle if the slot is
// not live.
func (p *Pool[T]) HandleAt(index int) Handle {
	if !p.store.Live(index) {
		return Handle{}
	}
	return p.table.CreateHandle(p.owners[index])
}

// All returns a sequence over every live element and its handle in storage order.
func (p *Pool[T]) All() iter.Seq2[Handle, *T] {
	return func(yield func(Handle, *T) bool) {
		for index, value := range p.store.All() {
			if !yield(p.table.CreateHandle(p.owners[index]), value) {
				return
			}
		}
	}
}

// Len returns the number of live elements.
func (p *Pool[T]) Len() int {
	return p.store.Len()
}

// Store exposes the underlying store for index-range iteration. Mutating it directly bypasses
// the handle table.
func (p *Pool[T]) Store() *blockstore.Store[T] {
	return p.store
}

// Table exposes the handle table.
func (p *Pool[T]) Table() *Table {
	return p.table
}

// Release destroys every element and returns the store's blocks to the arena. Outstanding handles
// stop resolving.
func (p *Pool[T]) Release() {
	for index := range p.store.Extent() {
		if p.store.Live(index) {
			p.table.Recycle(p.owners[index])
		}
	}
	p.store.Release()
	p.owners = nil
}

func (p *Pool[T]) relocate(r blockstore.Relocation) {
	owner := p.owners[r.From]
	assert.That(p.table.slots[owner].target == r.From, "relocation from slot %d has no handle", r.From)
	p.owners[r.To] = owner
	p.table.Retarget(owner, r.To)
}
