package world

import "github.com/rotisserie/eris"

// ErrInvalidConfig wraps every configuration or option validation failure.
var ErrInvalidConfig = eris.New("invalid manager configuration")

// errWorkerPanicked stops the other workers of a ParallelForEach after one panicked.
var errWorkerPanicked = eris.New("parallel iteration worker panicked")
