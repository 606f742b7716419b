package capability

import (
	"errors"
	"reflect"
	"slices"

	"github.com/rotisserie/eris"
)

// Container owns a list of fragments and answers capability queries in O(1) through a cache
// rebuilt from the list on every change.
//
// When several fragments answer for the same capability the one added last wins. Removing it
// exposes the previous one again.
//
// A Container is not safe for concurrent use.
type Container struct {
	fragments []Fragment
	cache     map[Tag]Fragment
}

// NewContainer returns an empty Container.
func NewContainer() *Container {
	return &Container{cache: make(map[Tag]Fragment)}
}

// Add takes ownership of f. It fails for nil fragments, for fragments that already belong to a
// container and for fragments declaring an interface capability they do not implement.
func (c *Container) Add(f Fragment) error {
	if isNil(f) {
		return ErrNilFragment
	}
	b := f.base()
	if b.owner != nil {
		return eris.Wrapf(ErrAlreadyOwned, "fragment %s", tagOfValue(f))
	}

	typ := reflect.TypeOf(f)
	for _, tag := range f.Capabilities() {
		if tag.IsZero() {
			return eris.Wrapf(ErrUnsatisfiedCapability, "fragment %s declares a zero tag", tagOfValue(f))
		}
		if tag.typ.Kind() == reflect.Interface && !typ.Implements(tag.typ) {
			return eris.Wrapf(ErrUnsatisfiedCapability, "fragment %s does not implement %s", tagOfValue(f), tag)
		}
	}

	b.owner = c
	c.fragments = append(c.fragments, f)
	c.rebuild()
	return nil
}

// Remove detaches f from the container. It reports false if f does not belong to it.
func (c *Container) Remove(f Fragment) bool {
	if isNil(f) || f.base().owner != c {
		return false
	}
	i := slices.Index(c.fragments, f)
	if i < 0 {
		return false
	}
	c.fragments = slices.Delete(c.fragments, i, i+1)
	f.base().owner = nil
	c.rebuild()
	return true
}

// Get returns the fragment answering for tag.
func (c *Container) Get(tag Tag) (Fragment, bool) {
	f, ok := c.cache[tag]
	return f, ok
}

// Get returns the fragment answering for capability C, typed as C.
func Get[C any](c *Container) (C, bool) {
	var zero C
	f, ok := c.cache[TagOf[C]()]
	if !ok {
		return zero, false
	}
	v, ok := f.(C)
	if !ok {
		return zero, false
	}
	return v, true
}

// Has reports whether some fragment answers for tag.
func (c *Container) Has(tag Tag) bool {
	_, ok := c.cache[tag]
	return ok
}

// Fragments returns the owned fragments in the order they were added.
func (c *Container) Fragments() []Fragment {
	return slices.Clone(c.fragments)
}

// Len returns the number of owned fragments.
func (c *Container) Len() int {
	return len(c.fragments)
}

// Update forwards the tick to every fragment in order. Every fragment runs even if an earlier one
// fails; the failures are joined.
func (c *Container) Update() error {
	var errs []error
	for _, f := range slices.Clone(c.fragments) {
		if err := f.Update(); err != nil {
			errs = append(errs, eris.Wrapf(err, "fragment %s", tagOfValue(f)))
		}
	}
	if len(errs) > 0 {
		return eris.Wrap(errors.Join(errs...), "container update failed")
	}
	return nil
}

// Clear detaches every fragment.
func (c *Container) Clear() {
	for _, f := range c.fragments {
		f.base().owner = nil
	}
	c.fragments = nil
	clear(c.cache)
}

// rebuild recomputes the cache from the fragment list. Later fragments overwrite earlier ones.
func (c *Container) rebuild() {
	clear(c.cache)
	for _, f := range c.fragments {
		c.cache[tagOfValue(f)] = f
		for _, tag := range f.Capabilities() {
			c.cache[tag] = f
		}
	}
}

func isNil(f Fragment) bool {
	if f == nil {
		return true
	}
	v := reflect.ValueOf(f)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
