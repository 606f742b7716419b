package statsd_test

import (
	"testing"
	"time"

	"github.com/argus-labs/entitycore/pkg/telemetry/statsd"
	"github.com/argus-labs/entitycore/pkg/testutils"
	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // replaces the global client
func TestEmit(t *testing.T) {
	rec := testutils.RecordMetrics(t)
	tags := []string{"manager:units"}

	statsd.Gauge("manager.live", 3, tags)
	statsd.Count("manager.destroyed", 2, tags)
	statsd.EmitPhaseStat(time.Now().Add(-time.Millisecond), "update", tags)

	all := rec.All()
	require.Len(t, all, 3)
	assert.Equal(t, testutils.Metric{Kind: "gauge", Name: "manager.live", Value: 3, Tags: tags}, all[0])
	assert.Equal(t, testutils.Metric{Kind: "count", Name: "manager.destroyed", Value: 2, Tags: tags}, all[1])

	phase := all[2]
	assert.Equal(t, "timing", phase.Kind)
	assert.Equal(t, "phase", phase.Name)
	assert.Equal(t, []string{"phase:update", "manager:units"}, phase.Tags)
	assert.GreaterOrEqual(t, phase.Value, float64(time.Millisecond))
	assert.Equal(t, []string{"manager:units"}, tags, "the caller's tags are not modified")
}

//nolint:paralleltest // replaces the global client
func TestSetClient_NilRestoresNoOp(t *testing.T) {
	rec := testutils.RecordMetrics(t)
	assert.Same(t, rec, statsd.Client())

	statsd.SetClient(nil)
	assert.IsType(t, &ddstatsd.NoOpClient{}, statsd.Client())
	statsd.Gauge("ignored", 1, nil)
	assert.Empty(t, rec.All())
	require.NoError(t, statsd.Close())
}

func TestInit_RequiresAddress(t *testing.T) {
	t.Parallel()

	require.Error(t, statsd.Init("", nil))
}
