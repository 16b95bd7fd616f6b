package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_function_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seo_function_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_function_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts includes the initial request.
	MaxAttempts int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass scales base for an error class. Rate limiting
// waits longest, network errors somewhat longer than server errors.
func RetryConfigForErrorClass(base RetryConfig, errorClass ErrorClass) RetryConfig {
	cfg := base
	switch errorClass {
	case ErrorClassRateLimit:
		cfg.InitialBackoff = base.InitialBackoff * 4
		cfg.MaxBackoff = base.MaxBackoff * 3
	case ErrorClassNetwork:
		cfg.InitialBackoff = base.InitialBackoff * 2
	}
	return cfg
}

// backoffFor returns the un-jittered wait before attempt+1.
func backoffFor(cfg RetryConfig, attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= cfg.BackoffMultiplier
	}
	if d := time.Duration(backoff); d < cfg.MaxBackoff {
		return d
	}
	return cfg.MaxBackoff
}

// retryWithBackoff runs fn until it succeeds, returns a non-retriable class,
// or attempts run out. fn reports the class of its failure alongside the error.
func retryWithBackoff(ctx context.Context, base RetryConfig, fn func() (ErrorClass, error)) error {
	maxAttempts := base.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		lastErr    error
		errorClass ErrorClass
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		errorClass, lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Function call succeeded after retry")
			}
			return nil
		}

		if !shouldRetry(errorClass) {
			return lastErr
		}
		if attempt >= maxAttempts {
			break
		}

		cfg := RetryConfigForErrorClass(base, errorClass)
		wait := time.Duration(float64(backoffFor(cfg, attempt)) * (0.8 + rand.Float64()*0.4))
		if fe, ok := lastErr.(*FunctionError); ok && fe.RetryAfter > wait {
			wait = fe.RetryAfter
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

		log.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying function call after backoff")

		select {
		case <-ctx.Done():
			log.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(wait):
		}
	}

	retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	log.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}
