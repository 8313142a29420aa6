package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checker is a readiness probe. A nil error means healthy.
type Checker func() error

// CheckerConfig tunes the probes built by this package.
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig returns a 2s probe timeout.
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{Timeout: 2 * time.Second}
}

// Pinger is implemented by dependencies that can report their own liveness,
// such as the storage backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client *redis.Client) Checker {
	return RedisCheckerWithConfig(client, DefaultCheckerConfig())
}

// RedisCheckerWithConfig is RedisChecker with a custom timeout.
func RedisCheckerWithConfig(client *redis.Client, cfg CheckerConfig) Checker {
	return func() error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// PingChecker wraps any Pinger, e.g. the output storage.
func PingChecker(p Pinger) Checker {
	return PingCheckerWithConfig(p, DefaultCheckerConfig())
}

// PingCheckerWithConfig is PingChecker with a custom timeout.
func PingCheckerWithConfig(p Pinger, cfg CheckerConfig) Checker {
	return func() error {
		if p == nil {
			return errors.New("dependency is nil")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return p.Ping(ctx)
	}
}

// HTTPEndpointChecker returns a health check function for HTTP endpoints such
// as a self-hosted translation server. Any status below 400 is healthy.
func HTTPEndpointChecker(url string) Checker {
	return HTTPEndpointCheckerWithConfig(url, DefaultCheckerConfig())
}

// HTTPEndpointCheckerWithConfig is HTTPEndpointChecker with a custom timeout.
func HTTPEndpointCheckerWithConfig(url string, cfg CheckerConfig) Checker {
	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("invalid health check url: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
		}
		return nil
	}
}
