package arena

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const (
	// DefaultBlockSize is the default block size in bytes (4 KiB).
	DefaultBlockSize = 4 << 10
	// DefaultBlocksPerSuperblock is the default number of blocks carved from one superblock.
	DefaultBlocksPerSuperblock = 16
	// MinBlockSize is the smallest block size accepted.
	MinBlockSize = 64
)

// Options configures an Arena. Zero values fall back to the defaults.
type Options struct {
	BlockSize           int             // Block size in bytes
	BlocksPerSuperblock int             // Blocks carved out of each superblock
	MaxReservedBytes    uint64          // Reservation limit across all pools, 0 means unlimited
	Logger              *zerolog.Logger // Logger for superblock events, defaults to a nop logger
	Fatal               func(error)     // Called on backing store exhaustion, must not return
}

func newDefaultOptions() Options {
	return Options{
		BlockSize:           DefaultBlockSize,
		BlocksPerSuperblock: DefaultBlocksPerSuperblock,
		MaxReservedBytes:    0,
		Logger:              nil,
		Fatal:               nil,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.BlockSize != 0 {
		opt.BlockSize = newOpt.BlockSize
	}
	if newOpt.BlocksPerSuperblock != 0 {
		opt.BlocksPerSuperblock = newOpt.BlocksPerSuperblock
	}
	if newOpt.MaxReservedBytes != 0 {
		opt.MaxReservedBytes = newOpt.MaxReservedBytes
	}
	if newOpt.Logger != nil {
		opt.Logger = newOpt.Logger
	}
	if newOpt.Fatal != nil {
		opt.Fatal = newOpt.Fatal
	}
}

// validate checks that all options are usable.
func (opt *Options) validate() error {
	if opt.BlockSize < MinBlockSize {
		return eris.Errorf("block size must be at least %d bytes, got %d", MinBlockSize, opt.BlockSize)
	}
	if opt.BlocksPerSuperblock < 1 {
		return eris.Errorf("blocks per superblock must be positive, got %d", opt.BlocksPerSuperblock)
	}
	return nil
}
