package arena

import "github.com/argus-labs/entitycore/pkg/telemetry/statsd"

// Stats is a snapshot of arena usage.
//
//   - BytesReserved: memory currently held in superblocks
//   - BytesUsed: memory of blocks currently handed out
//   - SuperblocksAllocated: superblocks ever carved (historical)
//   - ActiveSuperblocks: superblocks currently held
//   - BlocksInUse / BlocksFree: current block counts across all pools
//   - TotalAllocs: block allocations ever served (historical)
type Stats struct {
	BytesReserved        uint64 `json:"bytes_reserved"`
	BytesUsed            uint64 `json:"bytes_used"`
	SuperblocksAllocated uint64 `json:"superblocks_allocated"`
	ActiveSuperblocks    uint64 `json:"active_superblocks"`
	BlocksInUse          uint64 `json:"blocks_in_use"`
	BlocksFree           uint64 `json:"blocks_free"`
	TotalAllocs          uint64 `json:"total_allocs"`
}

// Utilization returns BytesUsed / BytesReserved, or 0 when nothing is reserved.
func (s Stats) Utilization() float64 {
	if s.BytesReserved == 0 {
		return 0
	}
	return float64(s.BytesUsed) / float64(s.BytesReserved)
}

// Emit sends the snapshot as statsd gauges.
func (s Stats) Emit(tags []string) {
	statsd.Gauge("arena.bytes_reserved", float64(s.BytesReserved), tags)
	statsd.Gauge("arena.bytes_used", float64(s.BytesUsed), tags)
	statsd.Gauge("arena.superblocks", float64(s.ActiveSuperblocks), tags)
	statsd.Gauge("arena.blocks_in_use", float64(s.BlocksInUse), tags)
	statsd.Gauge("arena.blocks_free", float64(s.BlocksFree), tags)
	statsd.Gauge("arena.utilization", s.Utilization(), tags)
}
