// Package statsd is a helper package that wraps the few statsd calls the storage core makes.
// It hides the datadog dependency so that switching metric backends only touches this file.
package statsd

import (
	"sync"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var (
	mu     sync.RWMutex
	client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}
)

func Client() ddstatsd.ClientInterface {
	mu.RLock()
	defer mu.RUnlock()
	return client
}

// SetClient replaces the global client. Tests use it to capture emitted metrics.
func SetClient(c ddstatsd.ClientInterface) {
	mu.Lock()
	defer mu.Unlock()
	if c == nil {
		c = &ddstatsd.NoOpClient{}
	}
	client = c
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("entitycore."),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrap(err, "failed to create statsd client")
	}
	SetClient(newClient)
	return nil
}

// Close flushes and closes the global client.
func Close() error {
	if err := Client().Close(); err != nil {
		return eris.Wrap(err, "failed to close statsd client")
	}
	return nil
}

// Gauge emits a gauge and logs, rather than returns, any emission failure.
func Gauge(name string, value float64, tags []string) {
	if err := Client().Gauge(name, value, tags, 1); err != nil {
		log.Logger.Warn().Err(err).Str("metric", name).Msg("failed to emit gauge")
	}
}

// Count emits a counter increment.
func Count(name string, value int64, tags []string) {
	if err := Client().Count(name, value, tags, 1); err != nil {
		log.Logger.Warn().Err(err).Str("metric", name).Msg("failed to emit count")
	}
}

// EmitPhaseStat records how long a manager phase took.
func EmitPhaseStat(start time.Time, phase string, tags []string) {
	duration := time.Since(start)
	err := Client().Timing("phase", duration, append([]string{"phase:" + phase}, tags...), 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit phase stat: %v", err)
	}
}
