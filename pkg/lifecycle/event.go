package lifecycle

import (
	"github.com/argus-labs/entitycore/pkg/assert"
	"github.com/argus-labs/entitycore/pkg/handle"
)

// Event is a lifecycle notification delivered to collaborators.
type Event uint8

const (
	EventActivated Event = iota
	EventDeactivated
	EventSimulationStarted
	EventBeforeDestroyed

	eventCount
)

func (e Event) String() string {
	switch e {
	case EventActivated:
		return "activated"
	case EventDeactivated:
		return "deactivated"
	case EventSimulationStarted:
		return "simulation_started"
	case EventBeforeDestroyed:
		return "before_destroyed"
	default:
		return "unknown"
	}
}

// Hook receives an event for the object behind h. value is only valid for the duration of the
// call.
type Hook[T any] func(h handle.Handle, value *T)

// Hooks is a registry of collaborator callbacks per event. Callbacks run synchronously in
// registration order.
type Hooks[T any] struct {
	hooks [eventCount][]Hook[T]
}

// On registers fn for ev.
func (hs *Hooks[T]) On(ev Event, fn Hook[T]) {
	assert.That(ev < eventCount, "unknown lifecycle event %d", ev)
	assert.That(fn != nil, "nil hook for %s", ev)
	hs.hooks[ev] = append(hs.hooks[ev], fn)
}

// Emit calls every callback registered for ev.
func (hs *Hooks[T]) Emit(ev Event, h handle.Handle, value *T) {
	for _, fn := range hs.hooks[ev] {
		fn(h, value)
	}
}

// Len returns the number of callbacks registered for ev.
func (hs *Hooks[T]) Len(ev Event) int {
	return len(hs.hooks[ev])
}

// Payload callbacks. A stored value whose pointer type implements one of these gets the call
// before any collaborator hook for the same step.
type (
	Initializer interface {
		Initialize(h handle.Handle)
	}
	Deinitializer interface {
		Deinitialize(h handle.Handle)
	}
	Activator interface {
		OnActivated(h handle.Handle)
	}
	Deactivator interface {
		OnDeactivated(h handle.Handle)
	}
	SimulationStarter interface {
		OnSimulationStarted(h handle.Handle)
	}
)
