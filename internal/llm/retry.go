package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}
}

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// MarkRetryable flags err as worth another attempt, e.g. malformed model output.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether another attempt could succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var marked *retryableError
	if errors.As(err, &marked) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case ErrCodeRateLimit, ErrCodeServiceDown, ErrCodeTimeout, ErrCodeEmpty:
			return true
		}
		return false
	}
	return false
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. Delays grow exponentially with full jitter.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == attempts-1 {
			return err
		}
		timer := time.NewTimer(backoff(policy, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}

func backoff(policy RetryPolicy, attempt int) time.Duration {
	if policy.BaseDelay <= 0 {
		return 0
	}
	d := policy.BaseDelay << attempt
	if policy.MaxDelay > 0 && (d > policy.MaxDelay || d <= 0) {
		d = policy.MaxDelay
	}
	return time.Duration(rand.Int64N(int64(d)) + 1)
}
