package main

import "github.com/pkg/profile"

var profileModes = map[string]func(*profile.Profile){ //nolint:gochecknoglobals // lookup table
	"":       nil,
	"cpu":    profile.CPUProfile,
	"mem":    profile.MemProfile,
	"allocs": profile.MemProfileAllocs,
}

type stopper interface {
	Stop()
}

type noopStopper struct{}

func (noopStopper) Stop() {}

// startProfile starts the profiler selected by cfg. Call Stop on the result before exiting.
func startProfile(cfg config) stopper {
	mode := profileModes[cfg.Profile]
	if mode == nil {
		return noopStopper{}
	}
	return profile.Start(mode, profile.ProfilePath(cfg.ProfilePath), profile.NoShutdownHook, profile.Quiet)
}
