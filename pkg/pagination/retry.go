package pagination

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Sternrassler/release-attributes/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	pageRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "release_page_retries_total",
		Help: "Total number of page retry attempts by error class",
	}, []string{"error_class"})

	pageRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "release_page_retry_backoff_seconds",
		Help:    "Backoff duration for page retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	pageRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "release_page_retry_exhausted_total",
		Help: "Total number of times page retries were exhausted by error class",
	}, []string{"error_class"})
)

// Common errors returned by the walk.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// RetryConfig holds the configuration for per-page retries.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	// 1 disables retries.
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = 1
	}
	return c
}

// retryWithBackoff executes fn with exponential backoff for retryable
// client errors. It respects context cancellation and adds jitter.
func retryWithBackoff(ctx context.Context, config RetryConfig, logger zerolog.Logger, fn func() error) error {
	config = config.normalized()

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Page request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass := string(client.Classify(err))

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}

		// 4xx and malformed responses are final
		if !client.Retryable(err) {
			return lastErr
		}

		if attempt >= config.MaxAttempts {
			break
		}

		pageRetriesTotal.WithLabelValues(errorClass).Inc()

		// Add jitter (±20% randomness)
		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		if ra := client.RetryAfter(err); ra > wait {
			wait = ra
		}
		if wait > config.MaxBackoff {
			wait = config.MaxBackoff
		}
		pageRetryBackoffSeconds.WithLabelValues(errorClass).Observe(wait.Seconds())

		logger.Debug().
			Str("error_class", errorClass).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying page request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", errorClass).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	errorClass := string(client.Classify(lastErr))
	pageRetryExhaustedTotal.WithLabelValues(errorClass).Inc()
	logger.Warn().
		Str("error_class", errorClass).
		Int("max_attempts", config.MaxAttempts).
		Msg("Page retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
