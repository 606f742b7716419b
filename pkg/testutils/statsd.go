package testutils

import (
	"slices"
	"sync"
	"testing"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/argus-labs/entitycore/pkg/telemetry/statsd"
)

// Metric is one captured statsd call.
type Metric struct {
	Kind  string // gauge, count or timing
	Name  string
	Value float64
	Tags  []string
}

// MetricsRecorder is a statsd client that keeps every gauge, count and timing it receives.
// Everything else is discarded.
type MetricsRecorder struct {
	ddstatsd.NoOpClient

	mu      sync.Mutex
	metrics []Metric
}

// RecordMetrics installs a MetricsRecorder as the global statsd client until the test ends.
// Tests using it must not run in parallel.
func RecordMetrics(t *testing.T) *MetricsRecorder {
	t.Helper()
	r := &MetricsRecorder{}
	statsd.SetClient(r)
	t.Cleanup(func() { statsd.SetClient(nil) })
	return r
}

func (r *MetricsRecorder) Gauge(name string, value float64, tags []string, _ float64) error {
	r.record(Metric{Kind: "gauge", Name: name, Value: value, Tags: tags})
	return nil
}

func (r *MetricsRecorder) Count(name string, value int64, tags []string, _ float64) error {
	r.record(Metric{Kind: "count", Name: name, Value: float64(value), Tags: tags})
	return nil
}

func (r *MetricsRecorder) Timing(name string, value time.Duration, tags []string, _ float64) error {
	r.record(Metric{Kind: "timing", Name: name, Value: float64(value), Tags: tags})
	return nil
}

func (r *MetricsRecorder) record(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.Tags = slices.Clone(m.Tags)
	r.metrics = append(r.metrics, m)
}

// All returns every captured metric in emission order.
func (r *MetricsRecorder) All() []Metric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.metrics)
}

// Named returns the captured metrics with the given name.
func (r *MetricsRecorder) Named(name string) []Metric {
	var out []Metric
	for _, m := range r.All() {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent metric with the given name.
func (r *MetricsRecorder) Last(name string) (Metric, bool) {
	named := r.Named(name)
	if len(named) == 0 {
		return Metric{}, false
	}
	return named[len(named)-1], true
}
