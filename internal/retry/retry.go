// Package retry provides the single bounded-retry loop shared by every
// network-facing component.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when every attempt failed the retryable check.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes a bounded retry loop with a fixed delay between attempts.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Do runs op up to p.Attempts times, retrying whenever retryable reports the
// outcome as transient. A nil retryable retries on any non-nil error. The
// last observed value and error are returned alongside ErrExhausted when the
// budget runs out.
func Do[T any](ctx context.Context, p Policy, op func() (T, error), retryable func(T, error) bool) (T, error) {
	var (
		value T
		err   error
	)
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if retryable == nil {
		retryable = func(_ T, err error) bool { return err != nil }
	}

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		value, err = op()
		if !retryable(value, err) {
			return value, err
		}
		if attempt == p.Attempts {
			break
		}
		if sleepErr := Sleep(ctx, p.Delay); sleepErr != nil {
			return value, sleepErr
		}
	}

	if err != nil {
		return value, errors.Join(ErrExhausted, err)
	}
	return value, ErrExhausted
}

// Sleep waits for d unless the context finishes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
