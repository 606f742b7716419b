package lifecycle

import "github.com/rotisserie/eris"

// State is the position of an object in its lifecycle.
type State uint8

const (
	New State = iota
	Initializing
	Initialized
	SimulationStarting
	SimulationStarted
	QueuedForDestruction
	Destroyed
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	case SimulationStarting:
		return "simulation_starting"
	case SimulationStarted:
		return "simulation_started"
	case QueuedForDestruction:
		return "queued_for_destruction"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Initialized reports whether the object finished initialization and has not been queued for
// destruction since.
func (s State) Initialized() bool {
	return s >= Initialized && s <= SimulationStarted
}

// Terminal reports whether the object is on its destruction path.
func (s State) Terminal() bool {
	return s >= QueuedForDestruction
}

// transitions lists the allowed successors of every state. Every live state may additionally
// move to QueuedForDestruction.
var transitions = [...]State{ //nolint:gochecknoglobals // lookup table
	New:                  Initializing,
	Initializing:         Initialized,
	Initialized:          SimulationStarting,
	SimulationStarting:   SimulationStarted,
	SimulationStarted:    QueuedForDestruction,
	QueuedForDestruction: Destroyed,
	Destroyed:            Destroyed,
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	if from > Destroyed || to > Destroyed {
		return false
	}
	if to == QueuedForDestruction {
		return !from.Terminal()
	}
	return from != Destroyed && transitions[from] == to
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return eris.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
	}
	return nil
}
