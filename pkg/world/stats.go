package world

import (
	"github.com/argus-labs/entitycore/pkg/arena"
	"github.com/argus-labs/entitycore/pkg/telemetry/statsd"
)

// Stats are the manager's counters. The uint64 fields are totals since creation.
type Stats struct {
	Frames           uint64 `json:"frames"`
	Created          uint64 `json:"created"`
	Initialized      uint64 `json:"initialized"`
	SimulationStarts uint64 `json:"simulation_starts"`
	Activations      uint64 `json:"activations"`
	Deactivations    uint64 `json:"deactivations"`
	Destroyed        uint64 `json:"destroyed"`

	Live                  int         `json:"live"`
	PendingInitialization int         `json:"pending_initialization"`
	PendingDestruction    int         `json:"pending_destruction"`
	StoreBlocks           int         `json:"store_blocks"`
	Arena                 arena.Stats `json:"arena"`
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager[T]) Stats() Stats {
	s := m.stats
	s.Live = m.pool.Len()
	s.PendingInitialization = len(m.pending)
	s.PendingDestruction = len(m.queued)
	s.StoreBlocks = m.pool.Store().Blocks()
	s.Arena = m.arena.Stats()
	return s
}

// EmitStats publishes the current counters as statsd gauges.
func (m *Manager[T]) EmitStats() {
	s := m.Stats()
	statsd.Gauge("manager.live", float64(s.Live), m.tags)
	statsd.Gauge("manager.pending_initialization", float64(s.PendingInitialization), m.tags)
	statsd.Gauge("manager.pending_destruction", float64(s.PendingDestruction), m.tags)
	statsd.Gauge("manager.store_blocks", float64(s.StoreBlocks), m.tags)
	s.Arena.Emit(m.tags)
}
