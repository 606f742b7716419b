package world

import (
	"context"
	"sync"
	"time"

	"github.com/argus-labs/entitycore/pkg/assert"
	"github.com/argus-labs/entitycore/pkg/handle"
	"github.com/argus-labs/entitycore/pkg/lifecycle"
	"github.com/argus-labs/entitycore/pkg/telemetry/statsd"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ProcessNew initializes every object created since the last call, in creation order. Each moves
// New -> Initializing -> Initialized, gets its Initialize callback and, if activation is
// requested, its Activated event. Objects created by callbacks wait for the next call. It returns
// the number of objects initialized.
func (m *Manager[T]) ProcessNew() int {
	assert.That(m.iterating.Load() == 0, "process new during iteration")
	if len(m.pending) == 0 {
		return 0
	}

	batch := m.pending
	m.pending = nil

	n := 0
	for _, h := range batch {
		e := m.pool.Resolve(h)
		if e == nil || e.life.State() != lifecycle.New {
			continue // Queued for destruction before it was initialized
		}

		m.mustTransition(&e.life, lifecycle.Initializing)
		if init, ok := any(&e.value).(lifecycle.Initializer); ok {
			init.Initialize(h)
		}
		if e.life.State() != lifecycle.Initializing {
			continue // Destroyed itself while initializing
		}
		m.mustTransition(&e.life, lifecycle.Initialized)

		if e.life.NeedsActivation() {
			m.activate(h, e)
		}
		// Outside simulation mode the switch back on collects unstarted objects instead.
		if m.simulating && e.life.State() == lifecycle.Initialized {
			m.awaitingStart = append(m.awaitingStart, h)
		}
		n++
	}
	m.stats.Initialized += uint64(n) //nolint:gosec // positive
	return n
}

// ProcessSimulationStart starts simulation for every initialized, active object that has not
// started yet, in creation order. It does nothing while simulation mode is off. Inactive objects
// keep waiting and start on a later call once activated. It returns the number of objects
// started.
func (m *Manager[T]) ProcessSimulationStart() int {
	assert.That(m.iterating.Load() == 0, "process simulation start during iteration")
	if !m.simulating || len(m.awaitingStart) == 0 {
		return 0
	}

	batch := m.awaitingStart
	m.awaitingStart = nil
	var waiting []handle.Handle

	epoch := m.simEpoch
	n := 0
	for _, h := range batch {
		if m.simEpoch != epoch {
			break // A callback switched simulation mode, which rebuilt the queue
		}
		e := m.pool.Resolve(h)
		if e == nil || e.life.State() != lifecycle.Initialized {
			continue
		}
		if !e.life.Has(lifecycle.FlagActivated) {
			waiting = append(waiting, h)
			continue
		}

		m.mustTransition(&e.life, lifecycle.SimulationStarting)
		if s, ok := any(&e.value).(lifecycle.SimulationStarter); ok {
			s.OnSimulationStarted(h)
		}
		m.hooks.Emit(lifecycle.EventSimulationStarted, h, &e.value)
		if e.life.State() == lifecycle.SimulationStarting {
			m.mustTransition(&e.life, lifecycle.SimulationStarted)
		}
		n++
	}

	// Objects initialized by callbacks during this pass were appended to awaitingStart.
	if m.simEpoch == epoch {
		m.awaitingStart = append(waiting, m.awaitingStart...)
	}
	m.stats.SimulationStarts += uint64(n) //nolint:gosec // positive
	return n
}

// ForEach calls fn for every object not queued for destruction, in storage order. fn may call
// Destroy, SetActive and Resolve but must not create objects.
func (m *Manager[T]) ForEach(fn func(h handle.Handle, value *T)) {
	m.iterating.Add(1)
	defer m.iterating.Add(-1)

	store := m.pool.Store()
	it := store.Iter(0, store.Extent())
	for it.Next() {
		e := it.Value()
		if e.life.State().Terminal() {
			continue
		}
		fn(m.pool.HandleAt(it.Index()), &e.value)
	}
}

// ParallelForEach calls fn for every object not queued for destruction, splitting the store into
// disjoint index ranges processed by separate goroutines. fn may only touch the value it is
// given; any structural call from fn is a programmer error. The first error cancels the context
// passed to the remaining calls and is returned. A panic in fn is raised again on the calling
// goroutine once every worker has stopped.
func (m *Manager[T]) ParallelForEach(
	ctx context.Context, fn func(ctx context.Context, h handle.Handle, value *T) error,
) error {
	m.iterating.Add(1)
	defer m.iterating.Add(-1)
	m.parallel.Add(1)
	defer m.parallel.Add(-1)

	store := m.pool.Store()
	extent := store.Extent()
	if extent == 0 {
		return nil
	}

	var (
		panicOnce   sync.Once
		workerPanic any
	)
	chunk := (extent + m.workers - 1) / m.workers
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < extent; start += chunk {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { workerPanic = r })
					err = errWorkerPanicked
				}
			}()
			it := store.Iter(start, chunk)
			for it.Next() {
				if err := ctx.Err(); err != nil {
					return eris.Wrap(err, "iteration cancelled")
				}
				e := it.Value()
				if e.life.State().Terminal() {
					continue
				}
				if err := fn(ctx, m.pool.HandleAt(it.Index()), &e.value); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()
	if workerPanic != nil {
		panic(workerPanic) // Surface worker panics on the owner goroutine
	}
	if err != nil {
		return eris.Wrap(err, "parallel iteration failed")
	}
	return nil
}

// ProcessDestruction physically destroys every queued object, in creation order. Each gets its
// Deactivated event if it was activated, its Deinitialize callback if it was initialized and the
// BeforeDestroyed event, then leaves storage and its handle stops resolving. Objects queued by
// callbacks during this pass wait for the next call. It returns the number of objects destroyed.
func (m *Manager[T]) ProcessDestruction() int {
	assert.That(m.iterating.Load() == 0, "process destruction during iteration")
	if len(m.queued) == 0 {
		return 0
	}

	batch := m.queued
	m.queued = nil
	m.sortBySeq(batch)

	n := 0
	for _, h := range batch {
		e := m.pool.Resolve(h)
		if e == nil {
			continue
		}
		if e.life.NeedsDeactivation() {
			m.deactivate(h, e)
		}
		if e.life.WasInitialized() {
			if d, ok := any(&e.value).(lifecycle.Deinitializer); ok {
				d.Deinitialize(h)
			}
		}
		m.hooks.Emit(lifecycle.EventBeforeDestroyed, h, &e.value)

		m.mustTransition(&e.life, lifecycle.Destroyed)
		m.pool.Destroy(h)
		n++
	}
	m.stats.Destroyed += uint64(n) //nolint:gosec // positive
	return n
}

// Update runs one frame: ProcessNew, ProcessSimulationStart, ParallelForEach with fn (skipped
// when fn is nil) and ProcessDestruction. Destruction runs even when fn fails, and the fn error
// is returned afterwards.
func (m *Manager[T]) Update(
	ctx context.Context, fn func(ctx context.Context, h handle.Handle, value *T) error,
) error {
	ctx, span := m.tracer.Start(ctx, "manager.update",
		trace.WithAttributes(
			attribute.String("manager", m.name),
			attribute.Int64("frame", int64(m.stats.Frames)), //nolint:gosec // frame count fits
		))
	defer span.End()

	frameStart := time.Now()

	phaseStart := time.Now()
	initialized := m.ProcessNew()
	statsd.EmitPhaseStat(phaseStart, "new", m.tags)

	phaseStart = time.Now()
	started := m.ProcessSimulationStart()
	statsd.EmitPhaseStat(phaseStart, "simulation_start", m.tags)

	var updateErr error
	if fn != nil {
		phaseStart = time.Now()
		updateErr = m.ParallelForEach(ctx, fn)
		statsd.EmitPhaseStat(phaseStart, "update", m.tags)
	}

	phaseStart = time.Now()
	destroyed := m.ProcessDestruction()
	statsd.EmitPhaseStat(phaseStart, "destruction", m.tags)

	m.stats.Frames++
	statsd.Count("manager.initialized", int64(initialized), m.tags)
	statsd.Count("manager.simulation_started", int64(started), m.tags)
	statsd.Count("manager.destroyed", int64(destroyed), m.tags)
	m.EmitStats()
	span.SetAttributes(
		attribute.Int("initialized", initialized),
		attribute.Int("simulation_started", started),
		attribute.Int("destroyed", destroyed),
		attribute.Int("live", m.Len()),
	)

	m.logger.Debug().
		Uint64("frame", m.stats.Frames).
		Int("initialized", initialized).
		Int("simulation_started", started).
		Int("destroyed", destroyed).
		Int("live", m.Len()).
		Dur("duration", time.Since(frameStart)).
		Msg("frame processed")

	if updateErr != nil {
		span.RecordError(updateErr)
		span.SetStatus(codes.Error, updateErr.Error())
		return eris.Wrap(updateErr, "frame update failed")
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
