package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Options bounds the retry loop. Zero values fall back to the defaults used
// for external collaborator calls.
type Options struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64

	// Retryable, when set, is consulted after each failure. A failure it
	// rejects is returned immediately without consuming the remaining
	// budget; nil means every failure is retried up to MaxRetries.
	Retryable func(error) bool
}

// DefaultOptions matches the collaborator retry policy: three retries with
// 1s/2s/4s backoff capped at 30s.
func DefaultOptions() Options {
	return Options{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
	}
}

func (o Options) withDefaults() Options {
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.BackoffMultiplier <= 0 {
		o.BackoffMultiplier = 2
	}
	return o
}

// Do invokes op until it succeeds, the retry budget is exhausted, a
// non-retryable failure occurs, or ctx is cancelled. The last failure is
// returned unchanged so callers keep its kind; backoff sleeps abort as soon
// as ctx is done.
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	opts = opts.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == opts.MaxRetries {
			break
		}
		if opts.Retryable != nil && !opts.Retryable(lastErr) {
			return lastErr
		}

		delay := time.Duration(float64(opts.InitialDelay) * math.Pow(opts.BackoffMultiplier, float64(attempt)))
		if delay > opts.MaxDelay || delay <= 0 {
			delay = opts.MaxDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// ──────── Error taxonomy ────────

// TransientError marks a failure as worth retrying: network resets,
// timeouts, rate limits and the like from external collaborators.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Transientf formats a transient error.
func Transientf(format string, args ...interface{}) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

// transientSignatures are substrings of collaborator error text that signal
// a transient condition even when the error is not wrapped explicitly.
var transientSignatures = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"deadline exceeded",
	"temporarily unavailable",
	"429",
	"503",
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	msg := err.Error()
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
