package main

import (
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
)

// config drives one soak run. Storage and arena sizing come from the world package's own
// ENTITYCORE_* variables.
type config struct {
	// Frames is the number of frames to run. The run also stops on SIGINT or SIGTERM.
	Frames int `env:"SOAK_FRAMES" envDefault:"600"`

	// SpawnPerFrame is the number of agents created before each frame.
	SpawnPerFrame int `env:"SOAK_SPAWN_PER_FRAME" envDefault:"256"`

	// MaxLive caps the population. Spawning pauses while it is reached.
	MaxLive int `env:"SOAK_MAX_LIVE" envDefault:"65536"`

	// DestroyPercent is the share of live agents destroyed at random before each frame.
	DestroyPercent int `env:"SOAK_DESTROY_PERCENT" envDefault:"10"`

	// TogglePercent is the share of live agents whose activation flips before each frame.
	TogglePercent int `env:"SOAK_TOGGLE_PERCENT" envDefault:"5"`

	// MaxAge is the number of updates after which an agent expires and destroys itself.
	MaxAge int `env:"SOAK_MAX_AGE" envDefault:"120"`

	// TrimEvery returns free superblocks to the runtime every N frames, 0 disables trimming.
	TrimEvery int `env:"SOAK_TRIM_EVERY" envDefault:"60"`

	// Seed makes a run reproducible.
	Seed uint64 `env:"SOAK_SEED" envDefault:"1"`

	// Profile selects a profiler ("", "cpu", "mem", "allocs").
	Profile string `env:"SOAK_PROFILE"`

	// ProfilePath is the directory profiles are written to.
	ProfilePath string `env:"SOAK_PROFILE_PATH" envDefault:"."`

	// ReportPath is the file the JSON report is written to. Empty writes to stdout.
	ReportPath string `env:"SOAK_REPORT_PATH"`
}

func loadConfig() (config, error) {
	cfg := config{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse soak config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate soak config")
	}

	return cfg, nil
}

func (cfg *config) validate() error {
	if cfg.Frames <= 0 {
		return eris.New("frames must be positive")
	}
	if cfg.SpawnPerFrame < 0 {
		return eris.New("spawn per frame cannot be negative")
	}
	if cfg.MaxLive <= 0 {
		return eris.New("max live must be positive")
	}
	if cfg.DestroyPercent < 0 || cfg.DestroyPercent > 100 {
		return eris.New("destroy percent must be between 0 and 100")
	}
	if cfg.TogglePercent < 0 || cfg.TogglePercent > 100 {
		return eris.New("toggle percent must be between 0 and 100")
	}
	if cfg.MaxAge <= 0 {
		return eris.New("max age must be positive")
	}
	if cfg.TrimEvery < 0 {
		return eris.New("trim interval cannot be negative")
	}
	if _, ok := profileModes[cfg.Profile]; !ok {
		return eris.Errorf("invalid profile: %q (must be '', 'cpu', 'mem' or 'allocs')", cfg.Profile)
	}
	return nil
}
