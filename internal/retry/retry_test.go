package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoReturnsFirstSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	value, err := Do(context.Background(), Policy{Attempts: 3}, func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}, nil)
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if value != "ok" {
		t.Fatalf("unexpected value: %q", value)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	t.Parallel()

	calls := 0
	boom := errors.New("boom")
	_, err := Do(context.Background(), Policy{Attempts: 3}, func() (int, error) {
		calls++
		return 0, boom
	}, nil)
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
}

func TestDoCustomRetryable(t *testing.T) {
	t.Parallel()

	calls := 0
	value, err := Do(context.Background(), Policy{Attempts: 5}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", nil
		}
		return "filled", nil
	}, func(v string, err error) bool {
		return err != nil || v == ""
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if value != "filled" || calls != 3 {
		t.Fatalf("unexpected outcome: value=%q calls=%d", value, calls)
	}
}

func TestDoNonRetryableStops(t *testing.T) {
	t.Parallel()

	calls := 0
	fatal := errors.New("fatal")
	_, err := Do(context.Background(), Policy{Attempts: 5}, func() (int, error) {
		calls++
		return 0, fatal
	}, func(_ int, err error) bool {
		return false
	})
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	if !errors.Is(err, fatal) || errors.Is(err, ErrExhausted) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSleepCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
