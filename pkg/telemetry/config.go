package telemetry

import (
	"strings"

	"github.com/argus-labs/entitycore/pkg/telemetry/sentry"
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type Config struct {
	// Log level configuration ("debug", "info", "warn", "error").
	LogLevel string `env:"ENTITYCORE_LOG_LEVEL" envDefault:"info"`

	// Log format configuration ("json", "pretty").
	LogFormat string `env:"ENTITYCORE_LOG_FORMAT" envDefault:"pretty"`

	// StatsdAddress is the host:port of the statsd agent. Empty disables metrics.
	StatsdAddress string `env:"ENTITYCORE_STATSD_ADDRESS"`

	// StatsdTags are attached to every metric, e.g. "env:dev,region:eu".
	StatsdTags []string `env:"ENTITYCORE_STATSD_TAGS" envSeparator:","`

	// SentryDsn is the Sentry DSN. Empty disables error reporting.
	SentryDsn string `env:"ENTITYCORE_SENTRY_DSN"`

	// SentryEnv names the deployment in Sentry (e.g. DEV, PROD).
	SentryEnv string `env:"ENTITYCORE_SENTRY_ENV"`

	// TraceEnabled exports spans over OTLP. When false spans go to a no-op tracer.
	TraceEnabled bool `env:"ENTITYCORE_TRACE_ENABLED" envDefault:"false"`

	// TraceEndpoint is the host:port of the OTLP gRPC collector.
	TraceEndpoint string `env:"ENTITYCORE_TRACE_ENDPOINT" envDefault:"localhost:4317"`

	// TraceSampleRate is the fraction of root spans sampled, between 0 and 1.
	TraceSampleRate float64 `env:"ENTITYCORE_TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

// loadConfig loads the configuration from environment variables.
func loadConfig() (Config, error) {
	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse telemetry config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate telemetry config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *Config) validate() error {
	_, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", cfg.LogLevel)
	}

	if ParseLogFormat(cfg.LogFormat) == LogFormatUndefined {
		return eris.Errorf("invalid log format: %s (must be 'json' or 'pretty')", cfg.LogFormat)
	}

	if cfg.TraceSampleRate < 0 || cfg.TraceSampleRate > 1 {
		return eris.Errorf("invalid trace sample rate: %v (must be between 0 and 1)", cfg.TraceSampleRate)
	}

	if cfg.TraceEnabled && cfg.TraceEndpoint == "" {
		return eris.New("trace endpoint is required when tracing is enabled")
	}

	return nil
}

func (cfg *Config) applyToOptions(opt *Options) {
	opt.LogLevel = cfg.LogLevel
	opt.LogFormat = ParseLogFormat(cfg.LogFormat)
	opt.StatsdAddress = cfg.StatsdAddress
	opt.StatsdTags = cfg.StatsdTags
	opt.SentryOptions = sentry.Options{
		Dsn:         cfg.SentryDsn,
		Environment: cfg.SentryEnv,
	}
	opt.TraceEnabled = cfg.TraceEnabled
	opt.TraceEndpoint = cfg.TraceEndpoint
	opt.TraceSampleRate = cfg.TraceSampleRate
}

type Options struct {
	ServiceName   string    // Name of the service, used as the tracer name and log prefix
	LogLevel      string    // Minimum log level
	LogFormat     LogFormat // Log output format
	StatsdAddress string    // Statsd agent address, empty keeps the no-op client
	StatsdTags    []string  // Tags attached to every metric

	TraceEnabled    bool    // Export spans over OTLP
	TraceEndpoint   string  // OTLP gRPC collector address
	TraceSampleRate float64 // Fraction of root spans sampled

	SentryOptions sentry.Options
}

func newDefaultOptions() Options {
	// Set these to invalid values to force users to pass in the correct options.
	return Options{
		ServiceName: "",
		LogLevel:    "",
		LogFormat:   LogFormatUndefined,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.ServiceName != "" {
		opt.ServiceName = newOpt.ServiceName
	}
	if newOpt.LogLevel != "" {
		opt.LogLevel = newOpt.LogLevel
	}
	if newOpt.LogFormat != LogFormatUndefined {
		opt.LogFormat = newOpt.LogFormat
	}
	if newOpt.StatsdAddress != "" {
		opt.StatsdAddress = newOpt.StatsdAddress
	}
	if newOpt.StatsdTags != nil {
		opt.StatsdTags = newOpt.StatsdTags
	}
	if newOpt.SentryOptions.Tags != nil {
		opt.SentryOptions.Tags = newOpt.SentryOptions.Tags
	}
	if newOpt.TraceEnabled {
		opt.TraceEnabled = true
	}
	if newOpt.TraceEndpoint != "" {
		opt.TraceEndpoint = newOpt.TraceEndpoint
	}
	if newOpt.TraceSampleRate != 0 {
		opt.TraceSampleRate = newOpt.TraceSampleRate
	}
}

// validate checks that all required options are set and valid.
func (opt *Options) validate() error {
	if opt.ServiceName == "" {
		return eris.New("service name cannot be empty")
	}
	_, err := zerolog.ParseLevel(strings.ToLower(opt.LogLevel))
	if err != nil {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", opt.LogLevel)
	}
	if opt.LogFormat == LogFormatUndefined {
		return eris.New("log format must be specified")
	}
	if opt.TraceSampleRate < 0 || opt.TraceSampleRate > 1 {
		return eris.Errorf("invalid trace sample rate: %v (must be between 0 and 1)", opt.TraceSampleRate)
	}
	if opt.TraceEnabled && opt.TraceEndpoint == "" {
		return eris.New("trace endpoint is required when tracing is enabled")
	}
	return nil
}

// LogFormat represents the log output format.
type LogFormat uint8

const (
	LogFormatUndefined LogFormat = iota // Used as the zero value
	LogFormatJSON                       // Outputs structured JSON logs
	LogFormatPretty                     // Outputs human-readable console logs
)

const (
	jsonFormatString      = "json"
	prettyFormatString    = "pretty"
	undefinedFormatString = "undefined"
)

func (f LogFormat) String() string {
	switch f {
	case LogFormatUndefined:
		return undefinedFormatString
	case LogFormatJSON:
		return jsonFormatString
	case LogFormatPretty:
		return prettyFormatString
	default:
		return undefinedFormatString
	}
}

// ParseLogFormat converts a string to LogFormat enum.
func ParseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case jsonFormatString:
		return LogFormatJSON
	case prettyFormatString:
		return LogFormatPretty
	default:
		return LogFormatUndefined
	}
}
