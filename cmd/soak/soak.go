package main

import (
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/argus-labs/entitycore/pkg/arena"
	"github.com/argus-labs/entitycore/pkg/handle"
	"github.com/argus-labs/entitycore/pkg/lifecycle"
	"github.com/argus-labs/entitycore/pkg/world"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// report is the JSON summary written at the end of a run.
type report struct {
	Seed             uint64      `json:"seed"`
	Frames           int         `json:"frames"`
	Interrupted      bool        `json:"interrupted"`
	Duration         string      `json:"duration"`
	FramesPerSecond  float64     `json:"frames_per_second"`
	Expired          uint64      `json:"expired"`
	Notified         uint64      `json:"destroy_notifications"`
	FrameErrors      int         `json:"frame_errors"`
	SuperblocksFreed int         `json:"superblocks_freed"`
	Utilization      float64     `json:"arena_utilization"`
	Manager          world.Stats `json:"manager"`
}

// soak churns a population of agents through their whole lifecycle, frame after frame.
type soak struct {
	cfg    config
	logger zerolog.Logger
	rng    *rand.Rand

	arena   *arena.Arena
	agents  *world.Manager[agent]
	handles []handle.Handle
	nextID  uint64

	expired  uint64
	notified uint64
	frameErr int
	freed    int
}

type deps struct {
	logger zerolog.Logger
	tracer trace.Tracer
	fatal  func(error)
}

func newSoak(cfg config, d deps) (*soak, error) {
	agents, err := world.NewManager[agent](world.Options{
		Name:         "soak",
		ArenaOptions: arena.Options{Fatal: d.fatal},
		Logger:       &d.logger,
		Tracer:       d.tracer,
	})
	if err != nil {
		return nil, eris.Wrap(err, "failed to create manager")
	}

	s := &soak{
		cfg:    cfg,
		logger: d.logger,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)), //nolint:gosec // reproducible workload
		arena:  agents.Arena(),
		agents: agents,
	}
	agents.Hooks().On(lifecycle.EventBeforeDestroyed, func(handle.Handle, *agent) {
		s.notified++
	})
	return s, nil
}

// run executes the configured frames. capture receives frame errors, which are counted but do not
// stop the run. A cancelled ctx ends the run early.
func (s *soak) run(ctx context.Context, capture func(context.Context, error)) report {
	start := time.Now()
	s.agents.SetSimulating(true)

	frames := 0
	interrupted := false
	for frames < s.cfg.Frames {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		s.spawn()
		s.churn()

		if err := s.agents.Update(ctx, s.step); err != nil {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			s.frameErr++
			capture(ctx, err)
		}
		s.expire()
		frames++

		if s.cfg.TrimEvery > 0 && frames%s.cfg.TrimEvery == 0 {
			s.freed += s.arena.Trim()
		}
		if frames%100 == 0 {
			s.logger.Info().Int("frame", frames).Int("live", s.agents.Len()).Msg("soak progress")
		}
	}

	elapsed := time.Since(start)
	stats := s.agents.Stats()
	rep := report{
		Seed:             s.cfg.Seed,
		Frames:           frames,
		Interrupted:      interrupted,
		Duration:         elapsed.String(),
		Expired:          s.expired,
		Notified:         s.notified,
		FrameErrors:      s.frameErr,
		SuperblocksFreed: s.freed,
		Utilization:      stats.Arena.Utilization(),
		Manager:          stats,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		rep.FramesPerSecond = float64(frames) / secs
	}
	return rep
}

// close destroys the remaining agents and releases the arena.
func (s *soak) close() {
	s.agents.Close()
}

func (s *soak) spawn() {
	n := min(s.cfg.SpawnPerFrame, s.cfg.MaxLive-s.agents.Len())
	for range n {
		s.nextID++
		h := s.agents.Create(world.Descriptor[agent]{
			Value: agent{
				ID:     s.nextID,
				Speed:  s.rng.Float64(),
				MaxAge: 1 + s.rng.IntN(s.cfg.MaxAge),
			},
			Inactive: s.rng.IntN(10) == 0,
		})
		s.handles = append(s.handles, h)
	}
}

// churn destroys and toggles random agents.
func (s *soak) churn() {
	if len(s.handles) == 0 {
		return
	}
	for range len(s.handles) * s.cfg.DestroyPercent / 100 {
		s.agents.Destroy(s.handles[s.rng.IntN(len(s.handles))])
	}
	for range len(s.handles) * s.cfg.TogglePercent / 100 {
		h := s.handles[s.rng.IntN(len(s.handles))]
		s.agents.SetActive(h, !s.agents.IsActive(h))
	}
}

func (s *soak) step(_ context.Context, _ handle.Handle, a *agent) error {
	return a.step()
}

// expire queues agents past their age and forgets handles that no longer resolve.
func (s *soak) expire() {
	s.agents.ForEach(func(h handle.Handle, a *agent) {
		if a.expired() && s.agents.Destroy(h) {
			s.expired++
		}
	})
	s.handles = slices.DeleteFunc(s.handles, func(h handle.Handle) bool {
		return s.agents.Resolve(h) == nil
	})
}
