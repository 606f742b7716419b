// Package capability lets a Container own heterogeneous fragments and look one up by the
// capability it provides.
//
// Each fragment declares its capabilities statically through Capabilities, as Tags derived from
// Go types. The container also registers every fragment under its own concrete type. Lookups go
// through a Tag -> Fragment map that is rebuilt from the fragment list after every Add and Remove,
// so the cache never disagrees with the list.
//
//	type Mover interface{ Move() }
//
//	type walker struct{ capability.Base }
//
//	func (*walker) Capabilities() []capability.Tag { return []capability.Tag{capability.TagOf[Mover]()} }
//	func (*walker) Update() error                  { return nil }
//	func (*walker) Move()                          {}
//
//	c := capability.NewContainer()
//	_ = c.Add(&walker{})
//	m, ok := capability.Get[Mover](c)
package capability
