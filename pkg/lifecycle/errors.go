package lifecycle

import "github.com/rotisserie/eris"

// ErrInvalidTransition is returned when a state change skips a step or moves backwards.
var ErrInvalidTransition = eris.New("invalid lifecycle transition")
