package world

import (
	"github.com/argus-labs/entitycore/pkg/arena"
	"github.com/argus-labs/entitycore/pkg/blockstore"
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// managerConfig holds the configuration for a Manager.
// Configuration can be set via environment variables with the specified defaults.
type managerConfig struct {
	// Size of one arena block in bytes.
	BlockSize int `env:"ENTITYCORE_BLOCK_SIZE" envDefault:"4096"`

	// Number of blocks carved out of each superblock.
	BlocksPerSuperblock int `env:"ENTITYCORE_BLOCKS_PER_SUPERBLOCK" envDefault:"16"`

	// Arena reservation limit in bytes. 0 means unlimited.
	MaxReservedBytes uint64 `env:"ENTITYCORE_MAX_RESERVED_BYTES" envDefault:"0"`

	// Removal policy of the object store ("compact" or "freelist").
	StorageMode blockstore.Mode `env:"ENTITYCORE_STORAGE_MODE" envDefault:"compact"`

	// Number of goroutines ParallelForEach splits the store across. 0 uses GOMAXPROCS.
	Workers int `env:"ENTITYCORE_WORKERS" envDefault:"0"`
}

// loadConfig loads the manager configuration from environment variables.
func loadConfig() (managerConfig, error) {
	cfg := managerConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse manager config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *managerConfig) validate() error {
	if cfg.BlockSize < arena.MinBlockSize {
		return eris.Wrapf(ErrInvalidConfig, "block size must be at least %d", arena.MinBlockSize)
	}
	if cfg.BlocksPerSuperblock < 1 {
		return eris.Wrap(ErrInvalidConfig, "blocks per superblock must be positive")
	}
	if cfg.StorageMode != blockstore.Compact && cfg.StorageMode != blockstore.FreeList {
		return eris.Wrap(ErrInvalidConfig, "storage mode must be compact or freelist")
	}
	if cfg.Workers < 0 {
		return eris.Wrap(ErrInvalidConfig, "workers cannot be negative")
	}
	return nil
}

// applyToOptions applies the configuration values to the given Options.
func (cfg *managerConfig) applyToOptions(opt *Options) {
	opt.ArenaOptions.BlockSize = cfg.BlockSize
	opt.ArenaOptions.BlocksPerSuperblock = cfg.BlocksPerSuperblock
	opt.ArenaOptions.MaxReservedBytes = cfg.MaxReservedBytes
	opt.StorageMode = cfg.StorageMode
	opt.Workers = cfg.Workers
}

// Options configure a Manager. Zero fields keep the value loaded from the environment.
type Options struct {
	Name         string          // Name used in log fields and metric tags
	Arena        *arena.Arena    // Shared arena, a private one is built from ArenaOptions when nil
	ArenaOptions arena.Options   // Options for the private arena
	StorageMode  blockstore.Mode // Removal policy of the object store
	Workers      int             // ParallelForEach fan-out, 0 uses GOMAXPROCS
	Logger       *zerolog.Logger // Manager logger, defaults to the global "world" logger
	Tracer       trace.Tracer    // Tracer for Update spans, defaults to the global provider
	MetricTags   []string        // Extra statsd tags
}

// newDefaultOptions creates Options with default values.
func newDefaultOptions() Options {
	return Options{
		Name:         "world",
		Arena:        nil,
		ArenaOptions: arena.Options{},
		StorageMode:  blockstore.Compact,
		Workers:      0,
		Logger:       nil,
		Tracer:       nil,
		MetricTags:   nil,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.Name != "" {
		opt.Name = newOpt.Name
	}
	if newOpt.Arena != nil {
		opt.Arena = newOpt.Arena
	}
	if newOpt.ArenaOptions.BlockSize != 0 {
		opt.ArenaOptions.BlockSize = newOpt.ArenaOptions.BlockSize
	}
	if newOpt.ArenaOptions.BlocksPerSuperblock != 0 {
		opt.ArenaOptions.BlocksPerSuperblock = newOpt.ArenaOptions.BlocksPerSuperblock
	}
	if newOpt.ArenaOptions.MaxReservedBytes != 0 {
		opt.ArenaOptions.MaxReservedBytes = newOpt.ArenaOptions.MaxReservedBytes
	}
	if newOpt.ArenaOptions.Logger != nil {
		opt.ArenaOptions.Logger = newOpt.ArenaOptions.Logger
	}
	if newOpt.ArenaOptions.Fatal != nil {
		opt.ArenaOptions.Fatal = newOpt.ArenaOptions.Fatal
	}
	if newOpt.StorageMode != blockstore.ModeUndefined {
		opt.StorageMode = newOpt.StorageMode
	}
	if newOpt.Workers != 0 {
		opt.Workers = newOpt.Workers
	}
	if newOpt.Logger != nil {
		opt.Logger = newOpt.Logger
	}
	if newOpt.Tracer != nil {
		opt.Tracer = newOpt.Tracer
	}
	if newOpt.MetricTags != nil {
		opt.MetricTags = newOpt.MetricTags
	}
}

// validate checks that all required options are set and valid.
func (opt *Options) validate() error {
	if opt.Name == "" {
		return eris.Wrap(ErrInvalidConfig, "name cannot be empty")
	}
	if opt.StorageMode != blockstore.Compact && opt.StorageMode != blockstore.FreeList {
		return eris.Wrapf(ErrInvalidConfig, "invalid storage mode %s", opt.StorageMode)
	}
	if opt.Workers < 0 {
		return eris.Wrap(ErrInvalidConfig, "workers cannot be negative")
	}
	return nil
}
