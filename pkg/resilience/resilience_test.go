package resilience

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUpstream     = errors.New("upstream unavailable")
	errRetryable    = errors.New("retryable error")
	errNonRetryable = errors.New("non-retryable error")
)

func fastConfig(attempts int) RetryConfig {
	config := DefaultRetryConfig()
	config.MaxAttempts = attempts
	config.InitialBackoff = 1 * time.Millisecond
	config.MaxBackoff = 5 * time.Millisecond
	return config
}

// ==================== Retry ====================

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	attemptCount := 0

	result, err := Retry(context.Background(), DefaultRetryConfig(), func(ctx context.Context) (interface{}, error) {
		attemptCount++
		return []string{"Hallo"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hallo"}, result)
	assert.Equal(t, 1, attemptCount, "should only attempt once on success")
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	attemptCount := 0

	result, err := Retry(context.Background(), fastConfig(3), func(ctx context.Context) (interface{}, error) {
		attemptCount++
		if attemptCount < 3 {
			return nil, errUpstream
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attemptCount)
}

func TestRetry_FailureAfterMaxAttempts(t *testing.T) {
	attemptCount := 0

	result, err := Retry(context.Background(), fastConfig(3), func(ctx context.Context) (interface{}, error) {
		attemptCount++
		return nil, errUpstream
	})

	assert.Nil(t, result)
	assert.Equal(t, errUpstream, err)
	assert.Equal(t, 3, attemptCount)
}

func TestRetry_ZeroMaxAttemptsStillRunsOnce(t *testing.T) {
	attemptCount := 0

	_, err := Retry(context.Background(), fastConfig(0), func(ctx context.Context) (interface{}, error) {
		attemptCount++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attemptCount)
}

func TestRetry_ContextCancellationStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig()
	config.InitialBackoff = time.Second
	config.EnableJitter = false
	attemptCount := 0

	_, err := Retry(ctx, config, func(ctx context.Context) (interface{}, error) {
		attemptCount++
		cancel()
		return nil, errUpstream
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attemptCount)
}

func TestRetry_NotRetried(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		config func() RetryConfig
	}{
		{"circuit open", ErrCircuitOpen, func() RetryConfig { return fastConfig(3) }},
		{"context canceled", context.Canceled, func() RetryConfig { return fastConfig(3) }},
		{"deadline exceeded", context.DeadlineExceeded, func() RetryConfig { return fastConfig(3) }},
		{"not in retryable list", errNonRetryable, func() RetryConfig {
			c := fastConfig(3)
			c.RetryableErrors = []error{errRetryable}
			return c
		}},
		{"checker says no", errUpstream, func() RetryConfig {
			c := fastConfig(3)
			c.RetryableChecker = func(error) bool { return false }
			return c
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attemptCount := 0
			_, err := Retry(context.Background(), tt.config(), func(ctx context.Context) (interface{}, error) {
				attemptCount++
				return nil, tt.err
			})

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, attemptCount)
		})
	}
}

func TestRetry_RetryableErrorList(t *testing.T) {
	config := fastConfig(4)
	config.RetryableErrors = []error{errRetryable}
	attemptCount := 0

	_, err := Retry(context.Background(), config, func(ctx context.Context) (interface{}, error) {
		attemptCount++
		return nil, errRetryable
	})

	assert.ErrorIs(t, err, errRetryable)
	assert.Equal(t, 4, attemptCount)
}

func TestCalculateBackoff_ExponentialGrowth(t *testing.T) {
	config := RetryConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateBackoff(tt.attempt, config))
		})
	}
}

func TestAddJitter(t *testing.T) {
	duration := 10 * time.Second
	results := make(map[time.Duration]bool)

	for i := 0; i < 10; i++ {
		jittered := addJitter(duration)
		results[jittered] = true
		assert.GreaterOrEqual(t, jittered, time.Duration(0))
		assert.LessOrEqual(t, jittered, duration)
	}

	assert.Greater(t, len(results), 1, "jitter should produce different values")
	assert.Equal(t, time.Duration(0), addJitter(0))
}

func TestRetryConfigs(t *testing.T) {
	assert.Equal(t, 3, DefaultRetryConfig().MaxAttempts)
	assert.Equal(t, 2, ConservativeRetryConfig().MaxAttempts)
	assert.Equal(t, 10*time.Second, ConservativeRetryConfig().MaxBackoff)
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503, 504}
	notRetryable := []int{200, 201, 400, 401, 403, 404}

	for _, code := range retryable {
		assert.True(t, IsRetryableHTTPStatus(code), "status %d", code)
	}
	for _, code := range notRetryable {
		assert.False(t, IsRetryableHTTPStatus(code), "status %d", code)
	}
}

// ==================== Circuit breaker ====================

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-translate-open",
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, GracefulDegradation("translate"))

	failing := func(ctx context.Context) (interface{}, error) { return nil, errUpstream }

	_, err := breaker.Execute(context.Background(), failing)
	assert.ErrorIs(t, err, errUpstream)
	_, err = breaker.Execute(context.Background(), failing)
	assert.ErrorIs(t, err, errUpstream)

	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	called := false
	_, err = breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		called = true
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not call the operation")
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "test-translate-cancel", FailureThreshold: 1}, nil)

	_, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, context.Canceled
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestCircuitBreaker_GeneratedName(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{}, nil)
	assert.Contains(t, breaker.Name(), "breaker-")
}

func TestRetryWithBreaker_Integration(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-translate-retry",
		Interval:         100 * time.Millisecond,
		Timeout:          time.Second,
		FailureThreshold: 2,
	}, NoopFallback)

	attemptCount := 0
	result, err := RetryWithBreaker(context.Background(), fastConfig(3), breaker, func(ctx context.Context) (interface{}, error) {
		attemptCount++
		if attemptCount < 2 {
			return nil, errUpstream
		}
		return "success", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 2, attemptCount)
}

func TestBuildSettings_Defaults(t *testing.T) {
	s := BuildSettings("translate", 0, -1, 0, 0)

	assert.Equal(t, "translate", s.Name)
	assert.Equal(t, time.Minute, s.Interval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, uint32(5), s.FailureThreshold)
	assert.Equal(t, uint32(1), s.SuccessThreshold)
}
