package arena

import "github.com/rotisserie/eris"

var (
	// ErrOutOfMemory is reported to the fatal handler when a new superblock would exceed the
	// arena's reservation limit.
	ErrOutOfMemory = eris.New("arena: backing store exhausted")

	// ErrReleased is the panic value for any allocation after Release.
	ErrReleased = eris.New("arena: use after Release")
)
