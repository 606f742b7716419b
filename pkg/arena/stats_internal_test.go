package arena

import (
	"testing"

	"github.com/argus-labs/entitycore/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Utilization(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Stats{}.Utilization())
	assert.InDelta(t, 0.25, Stats{BytesReserved: 1024, BytesUsed: 256}.Utilization(), 1e-9)
}

//nolint:paralleltest // replaces the global statsd client
func TestStats_Emit(t *testing.T) {
	rec := testutils.RecordMetrics(t)

	a := newTestArena(t, Options{BlockSize: 256, BlocksPerSuperblock: 4})
	t.Cleanup(a.Release)
	b := AllocateBlock[testutils.Transform](a)
	require.False(t, b.IsZero())

	s := a.Stats()
	tags := []string{"arena:test"}
	s.Emit(tags)

	want := map[string]float64{
		"arena.bytes_reserved": 1024,
		"arena.bytes_used":     256,
		"arena.superblocks":    1,
		"arena.blocks_in_use":  1,
		"arena.blocks_free":    3,
		"arena.utilization":    0.25,
	}
	all := rec.All()
	require.Len(t, all, len(want))
	for _, m := range all {
		assert.Equal(t, "gauge", m.Kind)
		assert.Equal(t, tags, m.Tags)
		assert.InDelta(t, want[m.Name], m.Value, 1e-9, m.Name)
	}
}
