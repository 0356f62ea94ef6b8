// Package retry provides utilities for retrying operations with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns the reconnect policy used when nothing is configured:
// 1s, doubling, capped at 5m, 10 attempts.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 1 * time.Second,
		MaxDelay:     5 * time.Minute,
		Multiplier:   2.0,
	}
}

// Option is a functional option for retry configuration.
type Option func(*Config)

// WithMaxAttempts sets the maximum number of attempts per episode.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithInitialDelay sets the delay before the first attempt.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = d
	}
}

// WithMaxDelay sets the upper bound for any single delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDelay = d
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		c.Multiplier = m
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// Backoff tracks one retry episode. It is not safe for concurrent use.
type Backoff struct {
	cfg      Config
	exp      *backoff.ExponentialBackOff
	attempts int
}

// NewBackoff creates a Backoff starting at the initial delay.
func NewBackoff(opts ...Option) *Backoff {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxDelay <= 0 {
		// backoff.ExponentialBackOff collapses to zero without an upper bound
		cfg.MaxDelay = time.Duration(1<<63 - 1)
	}

	exp := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          cfg.Multiplier,
		MaxInterval:         cfg.MaxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()

	return &Backoff{cfg: cfg, exp: exp}
}

// Next returns the delay to wait before the next attempt. It returns false
// once MaxAttempts attempts have been handed out in the current episode.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.attempts >= b.cfg.MaxAttempts {
		return 0, false
	}
	b.attempts++
	return b.exp.NextBackOff(), true
}

// Attempts returns how many attempts the current episode has used.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Reset starts a new episode at the initial delay.
func (b *Backoff) Reset() {
	b.attempts = 0
	b.exp.Reset()
}

// Config returns the effective configuration.
func (b *Backoff) Config() Config {
	return b.cfg
}

// Wait sleeps for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WithExponentialBackoff executes the operation until it succeeds, returns a
// fatal error, the context is done, or MaxAttempts is reached. The first
// attempt runs immediately; the policy delays apply between attempts.
//
// Errors wrapped with Fatal() are not retried.
func WithExponentialBackoff(ctx context.Context, operation func() error, opts ...Option) error {
	b := NewBackoff(opts...)
	if b.cfg.MaxAttempts < 1 {
		b.cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}

		delay, ok := b.Next()
		if !ok || attempt >= b.cfg.MaxAttempts {
			break
		}
		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt, err)
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", b.cfg.MaxAttempts, lastErr)
}

// FatalError wraps an error to mark it as fatal (non-retryable).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as fatal (non-retryable).
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal checks if an error is fatal (non-retryable).
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
