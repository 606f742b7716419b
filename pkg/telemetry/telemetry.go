package telemetry

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/argus-labs/entitycore/pkg/telemetry/sentry"
	"github.com/argus-labs/entitycore/pkg/telemetry/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type Telemetry struct {
	Logger        zerolog.Logger
	Tracer        trace.Tracer
	serviceName   string
	shutdownTrace func(context.Context) error
}

// New builds the process telemetry from the environment, overridden by opts. With tracing enabled
// spans are exported over OTLP gRPC and the exporter's provider becomes the global one.
func New(ctx context.Context, opts Options) (Telemetry, error) {
	config, err := loadConfig()
	if err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to load telemetry config")
	}

	options := newDefaultOptions()
	config.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return Telemetry{}, eris.Wrap(err, "invalid telemetry options")
	}

	if err := sentry.New(options.SentryOptions); err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to setup sentry")
	}

	if options.StatsdAddress != "" {
		if err := statsd.Init(options.StatsdAddress, options.StatsdTags); err != nil {
			return Telemetry{}, eris.Wrap(err, "failed to init statsd client")
		}
	}

	tracer, shutdownTrace, err := setupTracing(ctx, options)
	if err != nil {
		return Telemetry{}, eris.Wrap(err, "failed to setup tracing")
	}

	return Telemetry{
		Logger:        newLogger(options, defaultOutput()),
		Tracer:        tracer,
		serviceName:   options.ServiceName,
		shutdownTrace: shutdownTrace,
	}, nil
}

// GetLogger returns a component-specific logger.
func (t *Telemetry) GetLogger(component string) zerolog.Logger {
	return t.Logger.With().Str("component", t.serviceName+"."+component).Logger()
}

// RecoverAndFlush logs and reports a panic, if any, then flushes buffered events. With repanic set
// the panic continues. It must be deferred directly.
func (t *Telemetry) RecoverAndFlush(repanic bool) {
	if r := recover(); r != nil {
		t.Logger.Error().Interface("panic", r).Msg("recovered panic")
		sentry.ReportPanic(r)
		if repanic {
			panic(r)
		}
		return
	}
	sentry.Flush()
}

// CaptureException reports a handled error.
func (t *Telemetry) CaptureException(ctx context.Context, err error) {
	sentry.CaptureException(ctx, err)
}

// Fatal is an arena fatal handler: it logs err, reports it and flushes. The arena panics after it
// returns.
func (t *Telemetry) Fatal(err error) {
	t.Logger.Error().Err(err).Msg("fatal storage failure")
	sentry.CaptureFatal(err)
}

// Shutdown flushes buffered spans, error reports and metrics.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	if t.shutdownTrace != nil {
		err = t.shutdownTrace(ctx)
	}
	sentry.Shutdown(ctx, 5*time.Second)
	if closeErr := statsd.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		return eris.Wrap(err, "telemetry shutdown failed")
	}
	return nil
}

func init() { //nolint:gochecknoinits // Its fine
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	log.Logger = zerolog.New(consoleWriter). //nolint:reassign // Its fine
							With().
							Timestamp().
							Caller().
							Logger()
}

// GetGlobalLogger returns a component-specific logger using the global console logger.
func GetGlobalLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
