// Package errortracking reports failures to Sentry. Every function is a no-op
// until Init has been called with a DSN.
package errortracking

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/langsheet/pkg/logger"
	"go.uber.org/zap"
)

// Config holds Sentry settings.
type Config struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
	// Transport replaces the HTTP transport, for tests.
	Transport sentry.Transport
}

var enabled atomic.Bool

// Init configures the global Sentry client. An empty DSN leaves reporting off.
func Init(cfg Config) error {
	if cfg.DSN == "" {
		logger.Info("sentry disabled: no DSN configured")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       1.0,
		TracesSampleRate: cfg.SampleRate,
		AttachStacktrace: true,
		Transport:        cfg.Transport,
	})
	if err != nil {
		return fmt.Errorf("errortracking: init sentry: %w", err)
	}

	enabled.Store(true)
	logger.Info("sentry enabled", zap.String("environment", cfg.Environment))
	return nil
}

// Enabled reports whether Init configured a client.
func Enabled() bool {
	return enabled.Load()
}

// Middleware attaches a per-request Sentry hub. Panics are re-raised so the
// regular recovery middleware still answers the request.
func Middleware() gin.HandlerFunc {
	if !Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// CaptureError reports err with optional tags. The hub stored in ctx is used
// when present.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil || !Enabled() {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		hub.CaptureException(err)
	})
}

// Flush waits up to timeout for queued events to be sent.
func Flush(timeout time.Duration) bool {
	if !Enabled() {
		return true
	}
	return sentry.Flush(timeout)
}
