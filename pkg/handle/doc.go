// Package handle provides generation-checked handles to objects held in a block store.
//
// A Handle is an (index, generation) pair. The Table stores the current generation of every
// index; a handle resolves only while its generation matches. Recycling an index bumps the
// generation, which makes every handle issued to the previous occupant stale. Stale and invalid
// handles are an expected condition: Resolve reports them as not found and never logs.
//
// Pool combines a Table with a blockstore.Store and keeps the two in sync across compacting
// deletes.
package handle
