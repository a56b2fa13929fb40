// Package retrier implements bounded retry with exponential backoff.
package retrier

import (
	"context"
	"time"
)

const (
	defaultInitialInterval = 2 * time.Second
	defaultMaxInterval     = 30 * time.Second
	defaultMultiplier      = 2.0
)

// Retrier executes a call up to 1+maxRetries times, backing off between
// attempts. With maxRetries zero it degrades to a single attempt, which is
// the bot's documented baseline.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	maxRetries      int
}

// Option defines a function to configure the Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the initial retry interval.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = d
	}
}

// WithMaxInterval sets the maximum retry interval.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.maxInterval = d
	}
}

// New creates a Retrier allowing maxRetries additional attempts.
func New(maxRetries int, opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		multiplier:      defaultMultiplier,
		maxRetries:      maxRetries,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do executes fn, retrying while shouldRetry approves the returned error and
// the attempt budget lasts.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error, shouldRetry func(error) bool) error {
	interval := r.initialInterval

	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || attempt >= r.maxRetries || !shouldRetry(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * r.multiplier)
		if interval > r.maxInterval {
			interval = r.maxInterval
		}
	}
}

// DoWithData executes fn with retries and returns its value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error), shouldRetry func(error) bool) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	}, shouldRetry)
	return result, err
}
