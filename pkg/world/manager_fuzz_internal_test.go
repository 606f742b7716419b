package world

import (
	"testing"

	"github.com/argus-labs/entitycore/pkg/blockstore"
	"github.com/argus-labs/entitycore/pkg/handle"
	"github.com/argus-labs/entitycore/pkg/lifecycle"
	"github.com/argus-labs/entitycore/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------------------------------------------------------------------------------
// Model-based fuzzing lifecycle ordering
// -------------------------------------------------------------------------------------------------
// Random create/destroy/activate/phase sequences run against a Manager while hooks record every
// event per object. The checks are the lifecycle ordering rules: events alternate between
// activated and deactivated, simulation start happens at most once and only on an activated
// object, before_destroyed is the last event, and handles resolve exactly until the destruction
// pass removed their object.
// -------------------------------------------------------------------------------------------------

type objectModel struct {
	id        int
	events    []lifecycle.Event
	activated bool
	started   bool
	queued    bool
	destroyed bool
}

func TestManager_LifecycleModelFuzz(t *testing.T) {
	t.Parallel()

	for _, mode := range []blockstore.Mode{blockstore.Compact, blockstore.FreeList} {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()
			prng := testutils.NewRand(t)

			const opsMax = 1 << 12

			m := newTestManager[testutils.Health](t, Options{StorageMode: mode})
			models := make(map[int]*objectModel) // Keyed by Health.Current
			handles := make(map[handle.Handle]*objectModel)
			nextID := 0

			record := func(ev lifecycle.Event) lifecycle.Hook[testutils.Health] {
				return func(h handle.Handle, v *testutils.Health) {
					om := models[v.Current]
					require.NotNil(t, om, "event %s for unknown object", ev)
					require.False(t, om.destroyed, "event %s after destruction", ev)
					switch ev {
					case lifecycle.EventActivated:
						// Property: activation events alternate.
						require.False(t, om.activated, "activated twice in a row")
						om.activated = true
					case lifecycle.EventDeactivated:
						require.True(t, om.activated, "deactivated without activation")
						om.activated = false
					case lifecycle.EventSimulationStarted:
						// Property: simulation starts at most once and only on an activated object.
						require.False(t, om.started, "simulation started twice")
						require.True(t, om.activated, "simulation started while not activated")
						require.True(t, m.Simulating())
						om.started = true
					case lifecycle.EventBeforeDestroyed:
						require.True(t, om.queued, "destroyed without a request")
						// Property: deactivation precedes destruction.
						require.False(t, om.activated, "destroyed while activated")
						om.destroyed = true
					}
					om.events = append(om.events, ev)
				}
			}
			for _, ev := range []lifecycle.Event{
				lifecycle.EventActivated, lifecycle.EventDeactivated,
				lifecycle.EventSimulationStarted, lifecycle.EventBeforeDestroyed,
			} {
				m.Hooks().On(ev, record(ev))
			}

			randomHandle := func() (handle.Handle, *objectModel, bool) {
				if len(handles) == 0 {
					return handle.Handle{}, nil, false
				}
				h := testutils.RandMapKey(prng, handles)
				return h, handles[h], true
			}

			for range opsMax {
				switch testutils.RandWeightedOp(prng, lifecycleOps) {
				case l_create:
					om := &objectModel{id: nextID}
					models[nextID] = om
					h := m.Create(Descriptor[testutils.Health]{
						Value:    testutils.Health{Current: nextID},
						Inactive: prng.IntN(3) == 0,
					})
					handles[h] = om
					nextID++

				case l_destroy:
					h, om, ok := randomHandle()
					if !ok {
						continue
					}
					got := m.Destroy(h)
					// Property: destroy succeeds once per live object.
					assert.Equal(t, !om.queued && !om.destroyed, got)
					if got {
						om.queued = true
					}

				case l_toggle:
					h, om, ok := randomHandle()
					if !ok {
						continue
					}
					got := m.SetActive(h, prng.IntN(2) == 0)
					assert.Equal(t, !om.queued && !om.destroyed, got)

				case l_simulate:
					m.SetSimulating(!m.Simulating())

				case l_process:
					m.ProcessNew()
					m.ProcessSimulationStart()
					// Property: after the start pass no active, initialized object is left waiting.
					if m.Simulating() {
						m.ForEach(func(h handle.Handle, v *testutils.Health) {
							state, _ := m.State(h)
							if m.IsActive(h) && state.Initialized() {
								assert.True(t, models[v.Current].started, "object %d not started", v.Current)
							}
						})
					}
					m.ProcessDestruction()

				default:
					panic("unreachable")
				}

				// Property: a handle resolves exactly while its object has not been destroyed.
				for h, om := range handles {
					v := m.Resolve(h)
					if om.destroyed {
						require.Nil(t, v, "destroyed object %d still resolves", om.id)
						delete(handles, h)
						continue
					}
					require.NotNil(t, v, "object %d stopped resolving", om.id)
					require.Equal(t, om.id, v.Current)
				}
			}

			// Drain and check every object ends with before_destroyed.
			for h, om := range handles {
				if m.Destroy(h) {
					om.queued = true
				}
			}
			m.ProcessNew()
			m.ProcessDestruction()
			assert.Equal(t, 0, m.Len())
			for _, om := range models {
				require.NotEmpty(t, om.events)
				assert.Equal(t, lifecycle.EventBeforeDestroyed, om.events[len(om.events)-1])
			}
		})
	}
}

type lifecycleOp uint8

const (
	l_create   lifecycleOp = 30
	l_destroy  lifecycleOp = 20
	l_toggle   lifecycleOp = 25
	l_simulate lifecycleOp = 5
	l_process  lifecycleOp = 19
)

var lifecycleOps = []lifecycleOp{l_create, l_destroy, l_toggle, l_simulate, l_process}
