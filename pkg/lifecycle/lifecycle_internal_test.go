package lifecycle

import (
	"testing"

	"github.com/argus-labs/entitycore/pkg/handle"
	"github.com/argus-labs/entitycore/pkg/testutils"
	"github.com/rotisserie/eris"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

var allStates = []State{ //nolint:gochecknoglobals // test table
	New, Initializing, Initialized, SimulationStarting, SimulationStarted, QueuedForDestruction, Destroyed,
}

func TestLifecycle_ForwardPath(t *testing.T) {
	t.Parallel()

	var l Lifecycle
	assert.Equal(t, New, l.State())

	for _, to := range []State{Initializing, Initialized, SimulationStarting, SimulationStarted,
		QueuedForDestruction, Destroyed} {
		assert.NilError(t, l.Transition(to), "transition to %s", to)
		assert.Equal(t, to, l.State())
	}
}

func TestLifecycle_TransitionTable(t *testing.T) {
	t.Parallel()

	allowed := map[[2]State]bool{
		{New, Initializing}:                        true,
		{Initializing, Initialized}:                true,
		{Initialized, SimulationStarting}:          true,
		{SimulationStarting, SimulationStarted}:    true,
		{New, QueuedForDestruction}:                true,
		{Initializing, QueuedForDestruction}:       true,
		{Initialized, QueuedForDestruction}:        true,
		{SimulationStarting, QueuedForDestruction}: true,
		{SimulationStarted, QueuedForDestruction}:  true,
		{QueuedForDestruction, Destroyed}:          true,
	}

	for _, from := range allStates {
		for _, to := range allStates {
			want := allowed[[2]State{from, to}]
			assert.Check(t, is.Equal(want, CanTransition(from, to)), "%s -> %s", from, to)

			l := Lifecycle{state: from}
			err := l.Transition(to)
			if want {
				assert.Check(t, err == nil, "%s -> %s: %v", from, to, err)
				assert.Check(t, is.Equal(to, l.State()))
			} else {
				assert.Check(t, eris.Is(err, ErrInvalidTransition), "%s -> %s should fail", from, to)
				assert.Check(t, is.Equal(from, l.State()), "failed transition must not change state")
			}
		}
	}

	assert.Assert(t, !CanTransition(State(42), New))
	assert.Assert(t, !CanTransition(New, State(42)))
}

func TestState_Predicates(t *testing.T) {
	t.Parallel()

	for _, s := range allStates {
		assert.Check(t, is.Equal(s >= Initialized && s <= SimulationStarted, s.Initialized()), s.String())
		assert.Check(t, is.Equal(s >= QueuedForDestruction, s.Terminal()), s.String())
		assert.Check(t, s.String() != "unknown")
	}
	assert.Equal(t, "unknown", State(99).String())
}

func TestLifecycle_QueuedFrom(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		path           []State
		wasInitialized bool
	}{
		{name: "never initialized", path: nil, wasInitialized: false},
		{name: "mid initialization", path: []State{Initializing}, wasInitialized: false},
		{name: "initialized", path: []State{Initializing, Initialized}, wasInitialized: true},
		{
			name:           "simulation started",
			path:           []State{Initializing, Initialized, SimulationStarting, SimulationStarted},
			wasInitialized: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var l Lifecycle
			for _, to := range tc.path {
				assert.NilError(t, l.Transition(to))
			}
			before := l.State()
			assert.Equal(t, tc.wasInitialized, l.WasInitialized())

			assert.NilError(t, l.Transition(QueuedForDestruction))
			assert.Equal(t, before, l.QueuedFrom())
			assert.Equal(t, tc.wasInitialized, l.WasInitialized())

			assert.NilError(t, l.Transition(Destroyed))
			assert.Equal(t, before, l.QueuedFrom(), "destroying keeps the queued-from state")
			assert.Equal(t, tc.wasInitialized, l.WasInitialized())
		})
	}
}

func TestLifecycle_Flags(t *testing.T) {
	t.Parallel()

	l := Lifecycle{state: Initialized}
	assert.Equal(t, "initialized[none]", l.String())
	assert.Assert(t, !l.NeedsActivation())

	l.Set(FlagActive, true)
	assert.Assert(t, l.NeedsActivation())
	assert.Assert(t, !l.NeedsDeactivation())

	l.Set(FlagActivated, true)
	assert.Assert(t, !l.NeedsActivation())
	assert.Equal(t, "initialized[active|activated]", l.String())

	l.Set(FlagActive, false)
	assert.Assert(t, l.NeedsDeactivation())
	assert.Assert(t, l.Has(FlagActivated))
	assert.Assert(t, !l.Has(FlagActive|FlagActivated))

	// Queued objects owe a deactivation even while activation is still requested.
	l.Set(FlagActive, true)
	assert.NilError(t, l.Transition(QueuedForDestruction))
	assert.Assert(t, l.NeedsDeactivation())
	assert.Assert(t, !l.NeedsActivation())

	// Activation is never owed before initialization.
	fresh := Lifecycle{}
	fresh.Set(FlagActive, true)
	assert.Assert(t, !fresh.NeedsActivation())
}

func TestHooks_EmitInRegistrationOrder(t *testing.T) {
	t.Parallel()

	var hooks Hooks[testutils.Health]
	var calls []string
	h := handle.FromUint64(1<<32 | 5)

	hooks.On(EventActivated, func(got handle.Handle, v *testutils.Health) {
		assert.Equal(t, h, got)
		v.Current++
		calls = append(calls, "first")
	})
	hooks.On(EventActivated, func(handle.Handle, *testutils.Health) {
		calls = append(calls, "second")
	})
	hooks.On(EventBeforeDestroyed, func(handle.Handle, *testutils.Health) {
		calls = append(calls, "destroyed")
	})

	value := testutils.Health{}
	hooks.Emit(EventActivated, h, &value)
	hooks.Emit(EventDeactivated, h, &value)

	assert.DeepEqual(t, []string{"first", "second"}, calls)
	assert.Equal(t, 1, value.Current)
	assert.Equal(t, 2, hooks.Len(EventActivated))
	assert.Equal(t, 0, hooks.Len(EventDeactivated))
	assert.Equal(t, 1, hooks.Len(EventBeforeDestroyed))
}

func TestHooks_RejectsInvalidRegistration(t *testing.T) {
	t.Parallel()
	testutils.RequireAssertions(t)

	var hooks Hooks[testutils.Health]
	assert.Assert(t, is.Panics(func() { hooks.On(EventActivated, nil) }))
	assert.Assert(t, is.Panics(func() {
		hooks.On(Event(200), func(handle.Handle, *testutils.Health) {})
	}))
}

func TestEvent_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "activated", EventActivated.String())
	assert.Equal(t, "deactivated", EventDeactivated.String())
	assert.Equal(t, "simulation_started", EventSimulationStarted.String())
	assert.Equal(t, "before_destroyed", EventBeforeDestroyed.String())
	assert.Equal(t, "unknown", Event(9).String())
}
