package world

import (
	"cmp"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/argus-labs/entitycore/pkg/arena"
	"github.com/argus-labs/entitycore/pkg/assert"
	"github.com/argus-labs/entitycore/pkg/handle"
	"github.com/argus-labs/entitycore/pkg/lifecycle"
	"github.com/argus-labs/entitycore/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// entry is what the manager stores per object.
type entry[T any] struct {
	life  lifecycle.Lifecycle
	seq   uint64 // Creation order
	value T
}

// Descriptor describes an object to create.
type Descriptor[T any] struct {
	Value    T    // Initial payload
	Inactive bool // Start with activation off
}

// Manager owns a population of lifecycle-bearing objects of type T. It drives them through their
// lifecycle in explicit frame phases and hands out generation-checked handles to them.
//
// All structural calls (Create, the Process phases, Close) must come from one owner goroutine.
// Resolve, State and IsActive are read-only and may run concurrently with each other and with
// ParallelForEach, but never with a structural call.
type Manager[T any] struct {
	id    uuid.UUID
	name  string
	arena *arena.Arena
	owned bool // The arena was built by this manager
	pool  *handle.Pool[entry[T]]
	hooks lifecycle.Hooks[T]

	simulating    bool
	nextSeq       uint64
	pending       []handle.Handle // Created, not yet initialized, in creation order
	awaitingStart []handle.Handle // Initialized, simulation not started, in creation order
	queued        []handle.Handle // Destruction requests, processed in creation order
	iterating     atomic.Int32    // ForEach or ParallelForEach in progress
	parallel      atomic.Int32    // ParallelForEach in progress
	simEpoch      uint64          // Bumped on every simulation mode switch

	workers int
	logger  zerolog.Logger
	tracer  trace.Tracer
	tags    []string
	stats   Stats
}

// NewManager creates a Manager. Configuration is read from the environment first and then
// overridden by the non-zero fields of opts.
func NewManager[T any](opts Options) (*Manager[T], error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load manager config")
	}

	options := newDefaultOptions()
	cfg.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid manager options")
	}

	id := uuid.New()

	var logger zerolog.Logger
	if options.Logger != nil {
		logger = *options.Logger
	} else {
		logger = telemetry.GetGlobalLogger("world")
	}
	logger = logger.With().Str("manager", options.Name).Str("manager_id", id.String()).Logger()

	a := options.Arena
	owned := false
	if a == nil {
		if options.ArenaOptions.Logger == nil {
			options.ArenaOptions.Logger = &logger
		}
		a, err = arena.New(options.ArenaOptions)
		if err != nil {
			return nil, eris.Wrap(err, "failed to create arena")
		}
		owned = true
	}

	tracer := options.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/argus-labs/entitycore/pkg/world")
	}

	workers := options.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	tags := append([]string{"manager:" + options.Name}, options.MetricTags...)

	m := &Manager[T]{
		id:      id,
		name:    options.Name,
		arena:   a,
		owned:   owned,
		pool:    handle.NewPool[entry[T]](a, options.StorageMode),
		workers: workers,
		logger:  logger,
		tracer:  tracer,
		tags:    tags,
	}
	logger.Debug().
		Str("storage_mode", options.StorageMode.String()).
		Int("workers", workers).
		Bool("shared_arena", !owned).
		Msg("manager created")
	return m, nil
}

// ID returns the manager's instance id.
func (m *Manager[T]) ID() uuid.UUID {
	return m.id
}

// Name returns the manager's configured name.
func (m *Manager[T]) Name() string {
	return m.name
}

// Hooks returns the collaborator callback registry. Register callbacks before the first frame.
func (m *Manager[T]) Hooks() *lifecycle.Hooks[T] {
	return &m.hooks
}

// Arena returns the arena backing the manager's storage.
func (m *Manager[T]) Arena() *arena.Arena {
	return m.arena
}

// Create adds an object in state New and returns its handle. The object is initialized by the
// next ProcessNew, never inline, so a client may create a whole batch before any callback runs.
func (m *Manager[T]) Create(desc Descriptor[T]) handle.Handle {
	assert.That(m.iterating.Load() == 0, "create during iteration")

	h, e := m.pool.Create()
	e.value = desc.Value
	e.seq = m.nextSeq
	m.nextSeq++
	e.life.Set(lifecycle.FlagActive, !desc.Inactive)

	m.pending = append(m.pending, h)
	m.stats.Created++
	return h
}

// Destroy queues the object behind h for destruction. The object stays in storage, skipped by
// iteration, until the next ProcessDestruction. It reports false if h is stale or the object is
// already queued.
func (m *Manager[T]) Destroy(h handle.Handle) bool {
	m.assertNotParallel("destroy")
	e := m.pool.Resolve(h)
	if e == nil || e.life.State().Terminal() {
		return false
	}
	m.mustTransition(&e.life, lifecycle.QueuedForDestruction)
	m.queued = append(m.queued, h)
	return true
}

// Resolve returns the payload behind h, or nil if h is stale or invalid. Objects queued for
// destruction still resolve until they are destroyed.
func (m *Manager[T]) Resolve(h handle.Handle) *T {
	e := m.pool.Resolve(h)
	if e == nil {
		return nil
	}
	return &e.value
}

// State returns the lifecycle state of the object behind h.
func (m *Manager[T]) State(h handle.Handle) (lifecycle.State, bool) {
	e := m.pool.Resolve(h)
	if e == nil {
		return 0, false
	}
	return e.life.State(), true
}

// IsActive reports whether activation is requested for the object behind h.
func (m *Manager[T]) IsActive(h handle.Handle) bool {
	e := m.pool.Resolve(h)
	return e != nil && e.life.Has(lifecycle.FlagActive)
}

// SetActive requests activation on or off. On an initialized object the matching event fires
// before SetActive returns; otherwise the request is applied when the object is initialized. It
// reports false if h is stale or the object is queued for destruction.
func (m *Manager[T]) SetActive(h handle.Handle, active bool) bool {
	m.assertNotParallel("set active")
	e := m.pool.Resolve(h)
	if e == nil || e.life.State().Terminal() {
		return false
	}
	e.life.Set(lifecycle.FlagActive, active)
	switch {
	case e.life.NeedsActivation():
		m.activate(h, e)
	case e.life.NeedsDeactivation():
		m.deactivate(h, e)
	}
	return true
}

// SetSimulating switches simulation mode. Objects only start simulating while it is on. Switching
// it on queues every initialized object that has not started yet.
func (m *Manager[T]) SetSimulating(on bool) {
	m.assertNotParallel("set simulating")
	if on == m.simulating {
		return
	}
	m.simulating = on
	m.simEpoch++
	if !on {
		m.awaitingStart = nil
		return
	}
	m.awaitingStart = m.collectUnstarted()
}

// collectUnstarted returns the initialized objects that have not started simulating, in creation
// order.
func (m *Manager[T]) collectUnstarted() []handle.Handle {
	var hs []handle.Handle
	store := m.pool.Store()
	it := store.Iter(0, store.Extent())
	for it.Next() {
		if it.Value().life.State() == lifecycle.Initialized {
			hs = append(hs, m.pool.HandleAt(it.Index()))
		}
	}
	m.sortBySeq(hs)
	return hs
}

// Simulating reports whether simulation mode is on.
func (m *Manager[T]) Simulating() bool {
	return m.simulating
}

// Len returns the number of objects in storage, including those queued for destruction.
func (m *Manager[T]) Len() int {
	return m.pool.Len()
}

// PendingInitialization returns the number of objects waiting for ProcessNew.
func (m *Manager[T]) PendingInitialization() int {
	return len(m.pending)
}

// PendingDestruction returns the number of objects waiting for ProcessDestruction.
func (m *Manager[T]) PendingDestruction() int {
	return len(m.queued)
}

// Close destroys every remaining object without running callbacks and releases the storage. A
// private arena is released too.
func (m *Manager[T]) Close() {
	assert.That(m.iterating.Load() == 0, "close during iteration")
	m.pool.Release()
	m.pending = nil
	m.awaitingStart = nil
	m.queued = nil
	if m.owned {
		m.arena.Release()
	}
	m.logger.Debug().Uint64("created", m.stats.Created).Uint64("destroyed", m.stats.Destroyed).
		Msg("manager closed")
}

func (m *Manager[T]) activate(h handle.Handle, e *entry[T]) {
	e.life.Set(lifecycle.FlagActivated, true)
	if a, ok := any(&e.value).(lifecycle.Activator); ok {
		a.OnActivated(h)
	}
	m.hooks.Emit(lifecycle.EventActivated, h, &e.value)
	m.stats.Activations++
}

func (m *Manager[T]) deactivate(h handle.Handle, e *entry[T]) {
	e.life.Set(lifecycle.FlagActivated, false)
	if d, ok := any(&e.value).(lifecycle.Deactivator); ok {
		d.OnDeactivated(h)
	}
	m.hooks.Emit(lifecycle.EventDeactivated, h, &e.value)
	m.stats.Deactivations++
}

func (m *Manager[T]) assertNotParallel(op string) {
	assert.That(m.parallel.Load() == 0, "%s from a parallel iteration callback", op)
}

func (m *Manager[T]) mustTransition(l *lifecycle.Lifecycle, to lifecycle.State) {
	err := l.Transition(to)
	assert.That(err == nil, "%v", err)
}

// sortBySeq orders handles by creation order. Handles that no longer resolve sort first and are
// skipped by the caller.
func (m *Manager[T]) sortBySeq(hs []handle.Handle) {
	slices.SortFunc(hs, func(a, b handle.Handle) int {
		return cmp.Compare(m.seqOf(a), m.seqOf(b))
	})
}

func (m *Manager[T]) seqOf(h handle.Handle) uint64 {
	if e := m.pool.Resolve(h); e != nil {
		return e.seq + 1
	}
	return 0
}
