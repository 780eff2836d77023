package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryProvider retries transient failures with exponential backoff and
// jitter. An unusable reply gets one more try. Blocked and truncated
// replies are returned at once, as is a rate limit asking for longer than
// MaxWait.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{inner: p, config: cfg}
}

type retryKind int

const (
	retryNever retryKind = iota
	retryOnce
	retryBackoff
)

func classify(err error) retryKind {
	var (
		maxTok  *ErrMaxTokensExceeded
		blocked *ErrBlocked
		invalid *ErrInvalidResponse
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrNotConfigured), errors.As(err, &maxTok), errors.As(err, &blocked):
		return retryNever
	case errors.As(err, &invalid):
		return retryOnce
	default:
		return retryBackoff
	}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	retriedInvalid := false

	for attempt := range r.config.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		switch classify(err) {
		case retryNever:
			return nil, err
		case retryOnce:
			if retriedInvalid {
				return nil, err
			}
			retriedInvalid = true
		}

		wait, ok := r.wait(attempt, err)
		if !ok {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// wait is the pause before the next attempt. It reports false when a rate
// limit asks for longer than MaxWait.
func (r *RetryProvider) wait(attempt int, err error) (time.Duration, bool) {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		if r.config.MaxWait > 0 && rl.RetryAfter > r.config.MaxWait {
			return 0, false
		}
		return rl.RetryAfter, true
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.MaxWait > 0 {
		wait = min(wait, float64(r.config.MaxWait))
	}
	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(max(wait, 0)), true
}
