package ai

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"idea-forge/internal/logging"
	"idea-forge/internal/metrics"
)

// RetryConfig controls the backoff behavior of a Retrier.
type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration // doubled per attempt, plus jitter
	RateLimitBase time.Duration // used instead of BaseDelay when the error is a rate limit
	MaxJitter     time.Duration

	// Sleep waits for the given duration or until the context is done.
	// Injectable so tests never wait on real time.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns the retry policy used for all remote calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   4,
		BaseDelay:     time.Second,
		RateLimitBase: 3 * time.Second,
		MaxJitter:     500 * time.Millisecond,
	}
}

// Retrier wraps a single remote call with bounded retries and
// exponential backoff. Attempts never run concurrently; the calling
// goroutine sleeps between them.
type Retrier struct {
	cfg RetryConfig
}

// NewRetrier creates a Retrier with the given config, filling defaults.
func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if cfg.RateLimitBase <= 0 {
		cfg.RateLimitBase = DefaultRetryConfig().RateLimitBase
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Retrier{cfg: cfg}
}

// Do invokes op up to MaxAttempts times. It returns the first successful
// result, or the last attempt's error unchanged once attempts are exhausted.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) (*Response, error)) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		resp, err := op(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == r.cfg.MaxAttempts-1 {
			break
		}

		delay := r.backoffDelay(attempt, err)
		reason := "other"
		if IsRateLimitError(err) {
			reason = "rate_limit"
		}
		metrics.Get().LLMRetriesTotal.WithLabelValues(reason).Inc()
		logging.L().Warn("remote call failed, backing off",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Duration("delay", delay),
			zap.String("reason", reason),
			zap.Error(err))

		if err := r.cfg.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// backoffDelay computes the wait before the next attempt: exponential in
// the attempt number, with a longer base when the provider is rate limiting.
func (r *Retrier) backoffDelay(attempt int, err error) time.Duration {
	base := r.cfg.BaseDelay
	if IsRateLimitError(err) {
		base = r.cfg.RateLimitBase
	}
	delay := base * (1 << attempt)
	if r.cfg.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(r.cfg.MaxJitter)))
	}
	return delay
}

// IsRateLimitError reports whether an error signals provider rate
// limiting or quota exhaustion. Detection is by message substring; the
// provider clients prefix these errors with RATE_LIMIT/QUOTA_EXCEEDED.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
