// Command soak runs a churn workload against the entity core: agents are created, activated,
// simulated, destroyed and expired every frame while the arena recycles their storage. It prints
// a JSON report of the manager and arena counters when done.
//
// Configuration comes from the environment, see config.go, plus the ENTITYCORE_* variables read
// by the world and telemetry packages.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/argus-labs/entitycore/pkg/telemetry"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

func main() {
	if err := run(); err != nil {
		logger := telemetry.GetGlobalLogger("soak")
		logger.Error().Err(err).Msg("soak failed")
		os.Exit(1)
	}
}

func run() error {
	tel, err := telemetry.New(context.Background(), telemetry.Options{ServiceName: "entitycore-soak"})
	if err != nil {
		return eris.Wrap(err, "failed to initialize telemetry")
	}
	defer tel.RecoverAndFlush(true)
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			tel.Logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prof := startProfile(cfg)
	defer prof.Stop()

	logger := tel.GetLogger("soak")
	s, err := newSoak(cfg, deps{logger: logger, tracer: tel.Tracer, fatal: tel.Fatal})
	if err != nil {
		return err
	}
	defer s.close()

	logger.Info().Int("frames", cfg.Frames).Uint64("seed", cfg.Seed).Msg("soak started")
	rep := s.run(ctx, tel.CaptureException)
	logger.Info().Int("frames", rep.Frames).Bool("interrupted", rep.Interrupted).Msg("soak finished")

	return writeReport(cfg.ReportPath, rep)
}

func writeReport(path string, rep report) error {
	bz, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return eris.Wrap(err, "failed to encode report")
	}
	bz = append(bz, '\n')

	if path == "" {
		if _, err := os.Stdout.Write(bz); err != nil {
			return eris.Wrap(err, "failed to write report")
		}
		return nil
	}
	if err := os.WriteFile(path, bz, 0o600); err != nil {
		return eris.Wrapf(err, "failed to write report to %s", path)
	}
	return nil
}
