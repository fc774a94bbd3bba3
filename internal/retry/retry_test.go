package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoWithRetryRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := DoWithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoWithRetryReturnsLastError(t *testing.T) {
	want := errors.New("still failing")
	calls := 0
	err := DoWithRetry(context.Background(), 4, 0, func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 4 calls, got %d", calls)
	}
}

func TestDoWithRetryStopIsPermanent(t *testing.T) {
	want := errors.New("bad input")
	calls := 0
	err := DoWithRetry(context.Background(), 5, 0, func() error {
		calls++
		return Stop(want)
	})
	if err != want {
		t.Fatalf("expected unwrapped stop error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestDoWithRetryHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DoWithRetry(ctx, 3, time.Millisecond, func() error {
		t.Fatal("fn must not run on a canceled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
