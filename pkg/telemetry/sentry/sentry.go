// Package sentry reports fatal storage failures and frame errors to Sentry. Every function is a
// no-op until New is called with a DSN.
package sentry

import (
	"context"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/trace"
)

const flushTimeout = 5 * time.Second

type Options struct {
	Dsn         string
	Environment string
	Tags        map[string]string
}

// New sets up the Sentry client. An empty DSN leaves reporting disabled.
func New(opt Options) error {
	if opt.Dsn == "" {
		return nil
	}

	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:         opt.Dsn,
		Environment: opt.Environment,
		Tags:        opt.Tags,
	})
	if err != nil {
		return eris.Wrap(err, "failed to initialize sentry")
	}
	return nil
}

// RecoverAndFlush reports a panic, if any, and flushes buffered events. With repanic set the
// panic continues after the flush. It must be deferred directly.
func RecoverAndFlush(repanic bool) {
	if r := recover(); r != nil {
		ReportPanic(r)
		if repanic {
			panic(r)
		}
		return
	}
	Flush()
}

// ReportPanic reports a recovered panic value and flushes.
func ReportPanic(r any) {
	if !Enabled() {
		return
	}
	sentrygo.CurrentHub().Recover(r)
	sentrygo.Flush(flushTimeout)
}

// Flush waits for buffered events to be sent.
func Flush() {
	if !Enabled() {
		return
	}
	sentrygo.Flush(flushTimeout)
}

// CaptureException reports a handled error, tagged with the span in ctx when there is one.
func CaptureException(ctx context.Context, err error) {
	if !Enabled() || err == nil {
		return
	}
	sentrygo.WithScope(func(scope *sentrygo.Scope) {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			scope.SetTag("trace_id", spanCtx.TraceID().String())
			scope.SetTag("span_id", spanCtx.SpanID().String())
		}
		sentrygo.CaptureException(err)
	})
}

// CaptureFatal reports err at fatal level and flushes before returning, since the caller is about
// to stop the process.
func CaptureFatal(err error) {
	if !Enabled() || err == nil {
		return
	}
	sentrygo.WithScope(func(scope *sentrygo.Scope) {
		scope.SetLevel(sentrygo.LevelFatal)
		sentrygo.CaptureException(err)
	})
	sentrygo.Flush(flushTimeout)
}

// Shutdown flushes buffered events within timeout or the deadline of ctx, whichever is sooner.
func Shutdown(ctx context.Context, timeout time.Duration) {
	if !Enabled() {
		return
	}
	t := timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until > 0 && until < t {
			t = until
		}
	}
	if t <= 0 {
		t = time.Second
	}
	sentrygo.Flush(t)
}

// Enabled reports whether a Sentry client is configured.
func Enabled() bool {
	return sentrygo.CurrentHub().Client() != nil
}
