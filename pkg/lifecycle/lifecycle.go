package lifecycle

import "strings"

// Flags are toggles orthogonal to State.
type Flags uint8

const (
	// FlagActive is the activation the client asked for.
	FlagActive Flags = 1 << iota
	// FlagActivated is set between a delivered EventActivated and the matching EventDeactivated.
	FlagActivated
)

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f&FlagActive != 0 {
		parts = append(parts, "active")
	}
	if f&FlagActivated != 0 {
		parts = append(parts, "activated")
	}
	return strings.Join(parts, "|")
}

// Lifecycle is the state and flags of one object. The zero value is a New, inactive object.
type Lifecycle struct {
	state      State
	flags      Flags
	queuedFrom State // State before QueuedForDestruction
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// Flags returns the current flags.
func (l *Lifecycle) Flags() Flags {
	return l.flags
}

// Has reports whether every bit of f is set.
func (l *Lifecycle) Has(f Flags) bool {
	return l.flags&f == f
}

// Set sets or clears f.
func (l *Lifecycle) Set(f Flags, on bool) {
	if on {
		l.flags |= f
	} else {
		l.flags &^= f
	}
}

// Transition moves to state to. Moves that skip a step or go backwards return
// ErrInvalidTransition and leave the state unchanged.
func (l *Lifecycle) Transition(to State) error {
	if err := checkTransition(l.state, to); err != nil {
		return err
	}
	if to == QueuedForDestruction {
		l.queuedFrom = l.state
	}
	l.state = to
	return nil
}

// QueuedFrom returns the state the object was in when it was queued for destruction. It is only
// meaningful once the object is on its destruction path.
func (l *Lifecycle) QueuedFrom() State {
	return l.queuedFrom
}

// WasInitialized reports whether the object completed initialization at some point. Destruction
// uses it to decide whether deinitialization is owed.
func (l *Lifecycle) WasInitialized() bool {
	if l.state.Terminal() {
		return l.queuedFrom.Initialized()
	}
	return l.state.Initialized()
}

// NeedsActivation reports whether an EventActivated is owed: activation was requested, the
// object is initialized and the event has not been delivered yet.
func (l *Lifecycle) NeedsActivation() bool {
	return l.Has(FlagActive) && !l.Has(FlagActivated) && l.state.Initialized()
}

// NeedsDeactivation reports whether an EventDeactivated is owed.
func (l *Lifecycle) NeedsDeactivation() bool {
	return l.Has(FlagActivated) && (!l.Has(FlagActive) || l.state.Terminal())
}

func (l Lifecycle) String() string {
	return l.state.String() + "[" + l.flags.String() + "]"
}
