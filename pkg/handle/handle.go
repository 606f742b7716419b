package handle

import "fmt"

// Handle is a weak, generation-checked reference to a pooled object. Handles are plain values:
// copying one is free and holding one does not keep its target alive. The zero Handle never
// resolves.
type Handle struct {
	index      uint32
	generation uint32
}

// Index returns the handle table slot the handle refers to.
func (h Handle) Index() uint32 {
	return h.index
}

// Generation returns the slot generation the handle was issued for.
func (h Handle) Generation() uint32 {
	return h.generation
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

func (h Handle) String() string {
	if h.IsZero() {
		return "Handle(nil)"
	}
	return fmt.Sprintf("Handle(%d:%d)", h.index, h.generation)
}

// Uint64 packs the handle into one integer, generation in the high half.
func (h Handle) Uint64() uint64 {
	return uint64(h.generation)<<32 | uint64(h.index)
}

// FromUint64 is the inverse of Handle.Uint64.
func FromUint64(v uint64) Handle {
	return Handle{index: uint32(v), generation: uint32(v >> 32)} //nolint:gosec // truncation intended
}
