package capability

import (
	"reflect"
)

// Tag identifies a capability. Tags are derived from Go types, usually interfaces, so a fragment
// declares what it answers for without the container knowing its concrete type.
type Tag struct {
	typ reflect.Type
}

// TagOf returns the tag of capability C.
func TagOf[C any]() Tag {
	return Tag{typ: reflect.TypeFor[C]()}
}

// tagOfValue returns the tag of v's dynamic type.
func tagOfValue(v any) Tag {
	return Tag{typ: reflect.TypeOf(v)}
}

// IsZero reports whether t is the zero Tag.
func (t Tag) IsZero() bool {
	return t.typ == nil
}

func (t Tag) String() string {
	if t.typ == nil {
		return "<nil>"
	}
	return t.typ.String()
}

// Fragment is a behavior attached to a Container. Implementations embed Base.
type Fragment interface {
	// Capabilities returns every capability the fragment answers for besides its own concrete
	// type. The result must not change over the fragment's lifetime.
	Capabilities() []Tag

	// Update is the per-step tick forwarded by Container.Update.
	Update() error

	base() *Base
}

// Base tracks the container that owns a fragment. Embed it in every Fragment implementation.
type Base struct {
	owner *Container
}

func (b *Base) base() *Base {
	return b
}

// Owner returns the container the fragment belongs to, or nil.
func (b *Base) Owner() *Container {
	return b.owner
}
