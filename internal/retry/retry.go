// Package retry wraps a single operation with bounded retries and exponential
// backoff. There is no jitter and no state shared between calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pai/internal/domain"
)

const (
	DefaultMaxAttempts       = 3
	DefaultInitialDelay      = 200 * time.Millisecond
	DefaultBackoffMultiplier = 2.0
)

// Options configures one retried call. Zero values take the defaults.
type Options struct {
	// MaxAttempts counts the first call, so 3 means up to two retries
	MaxAttempts int
	// InitialDelay is the sleep after the first failure. Zero takes the
	// default; a negative value retries immediately with no sleep.
	InitialDelay time.Duration
	// BackoffMultiplier scales the delay after every failure
	BackoffMultiplier float64
	// MaxDelay caps a single sleep; zero means uncapped
	MaxDelay time.Duration
	// Retryable decides whether an error is worth another attempt; nil retries everything
	Retryable func(error) bool
	// Notify is called before each sleep
	Notify func(err error, delay time.Duration)
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialDelay == 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.BackoffMultiplier < 1 {
		o.BackoffMultiplier = DefaultBackoffMultiplier
	}
	return o
}

// ExhaustedError is returned when every attempt failed
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs op until it succeeds, a non-retryable error occurs, attempts run
// out, or ctx is cancelled. A non-retryable error is returned unchanged.
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	opts = opts.withDefaults()

	policy := backoff.WithContext(backoff.WithMaxRetries(schedule(opts), uint64(opts.MaxAttempts-1)), ctx)

	attempts := 0
	permanent := false
	err := backoff.RetryNotify(func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if opts.Retryable != nil && !opts.Retryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}, policy, opts.Notify)

	if err == nil || permanent || ctx.Err() != nil || attempts < opts.MaxAttempts {
		return err
	}
	return &ExhaustedError{Attempts: attempts, Err: err}
}

func schedule(opts Options) backoff.BackOff {
	if opts.InitialDelay < 0 {
		return &backoff.ZeroBackOff{}
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = opts.InitialDelay
	exp.Multiplier = opts.BackoffMultiplier
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.MaxInterval = time.Duration(math.MaxInt64)
	if opts.MaxDelay > 0 {
		exp.MaxInterval = opts.MaxDelay
	}
	exp.Reset()
	return exp
}

// Value is Do for operations that produce a result
func Value[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}, opts)
	return result, err
}

// Transient is a Retryable predicate that refuses errors retrying cannot fix:
// configuration, discovery, authentication and missing entities.
func Transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch domain.KindOf(err) {
	case domain.KindConfiguration, domain.KindAdapterNotFound, domain.KindAdapterLoad,
		domain.KindAuthentication, domain.KindNotFound:
		return false
	}
	return true
}
