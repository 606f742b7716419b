package capability

import "github.com/rotisserie/eris"

var (
	// ErrNilFragment is returned when adding a nil fragment.
	ErrNilFragment = eris.New("nil fragment")

	// ErrAlreadyOwned is returned when adding a fragment that belongs to a container. Fragments are
	// never reparented implicitly; remove it from its owner first.
	ErrAlreadyOwned = eris.New("fragment already belongs to a container")

	// ErrUnsatisfiedCapability is returned when a fragment declares an interface capability it
	// does not implement.
	ErrUnsatisfiedCapability = eris.New("fragment does not satisfy its declared capability")
)
