// Package retry runs an operation with bounded attempts and exponential
// backoff. It backs the remote fetch support, where transient network and
// server errors are worth a second try.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrAttemptsExhausted indicates every attempt failed.
var ErrAttemptsExhausted = errors.New("all attempts failed")

// Func is an operation that can be retried.
type Func func(ctx context.Context) error

// Condition reports whether an error is worth retrying.
type Condition func(err error) bool

// Config holds retry behaviour.
type Config struct {
	Attempts   int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64
	Retryable  Condition
}

// Option configures retry behaviour.
type Option func(*Config)

func defaults() Config {
	return Config{
		Attempts:   3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   15 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
	}
}

// WithAttempts sets the total number of attempts, including the first.
var WithAttempts = func(n int) Option {
	return func(c *Config) {
		c.Attempts = n
	}
}

// WithBaseDelay sets the delay before the first retry.
var WithBaseDelay = func(d time.Duration) Option {
	return func(c *Config) {
		if d < 0 {
			d = 0
		}
		c.BaseDelay = d
	}
}

// WithMaxDelay caps the delay between retries.
var WithMaxDelay = func(d time.Duration) Option {
	return func(c *Config) {
		if d < 0 {
			d = 0
		}
		c.MaxDelay = d
	}
}

// WithMultiplier sets the exponential backoff factor.
var WithMultiplier = func(m float64) Option {
	return func(c *Config) {
		if m < 1.0 {
			m = 1.0
		}
		c.Multiplier = m
	}
}

// WithJitter sets the random jitter fraction (0.0-1.0) applied to each delay.
var WithJitter = func(j float64) Option {
	return func(c *Config) {
		if j < 0 {
			j = 0
		} else if j > 1.0 {
			j = 1.0
		}
		c.Jitter = j
	}
}

// WithCondition limits retries to errors the condition accepts. Errors it
// rejects are returned immediately.
var WithCondition = func(cond Condition) Option {
	return func(c *Config) {
		c.Retryable = cond
	}
}

// Do runs fn until it succeeds, the attempts are exhausted, the condition
// rejects the error, or the context is cancelled while waiting.
var Do = func(ctx context.Context, fn Func, opts ...Option) error {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Attempts <= 0 {
		return fmt.Errorf("%w: no attempts configured", ErrAttemptsExhausted)
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt == cfg.Attempts {
			break
		}

		timer := time.NewTimer(jittered(delay, cfg.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = nextDelay(delay, cfg.Multiplier, cfg.MaxDelay)
	}

	return fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr)
}

func nextDelay(delay time.Duration, multiplier float64, maxDelay time.Duration) time.Duration {
	if multiplier <= 1.0 {
		return min(delay, maxDelay)
	}
	grown := float64(delay) * multiplier
	if math.IsInf(grown, 0) || math.IsNaN(grown) || grown > float64(math.MaxInt64) {
		return maxDelay
	}
	next := time.Duration(grown)
	if next < 0 {
		return maxDelay
	}
	return min(next, maxDelay)
}

func jittered(d time.Duration, factor float64) time.Duration {
	if factor <= 0 || d <= 0 {
		return d
	}
	if factor > 1.0 {
		factor = 1.0
	}
	spread := float64(d) * factor
	result := d + time.Duration(spread*(2*rand.Float64()-1)) //nolint:gosec // math/rand is fine for jitter
	if result < 0 {
		return 0
	}
	return result
}
