package handle

import (
	"math"

	"github.com/argus-labs/entitycore/pkg/assert"
)

// Generations start at 1 so the zero Handle never matches a slot.
const firstGeneration = 1

type slot struct {
	generation uint32
	target     int // Store index of the occupant
	live       bool
}

// Table maps handle indices to store indices. Freed indices are reused oldest first, and every
// reuse runs under a new generation, so handles issued to an earlier occupant stop resolving.
//
// A Table is not safe for concurrent mutation. Resolve may run concurrently with other reads.
type Table struct {
	slots []slot
	free  []uint32 // Recycled indices, oldest first
	live  int
}

// NewTable returns an empty Table with room for capacity slots.
func NewTable(capacity int) *Table {
	return &Table{slots: make([]slot, 0, max(capacity, 0))}
}

// Allocate binds a slot to target and returns a handle to it.
func (t *Table) Allocate(target int) Handle {
	var index uint32
	if len(t.free) > 0 {
		index = t.free[0]
		t.free = t.free[1:]
	} else {
		assert.That(len(t.slots) < math.MaxUint32, "handle table is full")
		index = uint32(len(t.slots)) //nolint:gosec // bounded above
		t.slots = append(t.slots, slot{generation: firstGeneration})
	}

	s := &t.slots[index]
	s.target = target
	s.live = true
	t.live++
	return Handle{index: index, generation: s.generation}
}

// CreateHandle returns a handle carrying the current generation of slot index. The handle only
// resolves while the slot is live.
func (t *Table) CreateHandle(index uint32) Handle {
	if int(index) >= len(t.slots) {
		return Handle{}
	}
	return Handle{index: index, generation: t.slots[index].generation}
}

// Resolve returns the target of h. It reports false for the zero handle, for indices the table
// never issued and for handles whose slot has been recycled since.
func (t *Table) Resolve(h Handle) (int, bool) {
	if h.generation == 0 || int(h.index) >= len(t.slots) {
		return 0, false
	}
	s := &t.slots[h.index]
	if !s.live || s.generation != h.generation {
		return 0, false
	}
	return s.target, true
}

// Retarget points a live slot at a new store index.
func (t *Table) Retarget(index uint32, target int) {
	assert.That(int(index) < len(t.slots) && t.slots[index].live, "retarget of dead handle slot %d", index)
	t.slots[index].target = target
}

// Recycle ends the current occupancy of slot index and queues the index for reuse under the next
// generation. The generation skips 0 when it wraps.
func (t *Table) Recycle(index uint32) {
	assert.That(int(index) < len(t.slots) && t.slots[index].live, "recycle of dead handle slot %d", index)
	if int(index) >= len(t.slots) || !t.slots[index].live {
		return
	}

	s := &t.slots[index]
	s.generation++
	if s.generation == 0 {
		s.generation = firstGeneration
	}
	s.live = false
	s.target = 0
	t.free = append(t.free, index)
	t.live--
}

// Len returns the number of live slots.
func (t *Table) Len() int {
	return t.live
}

// Cap returns the number of slots ever created, live or free.
func (t *Table) Cap() int {
	return len(t.slots)
}
