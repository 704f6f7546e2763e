package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/consigline/crm-api-go/internal/infra/resilience"
)

func testConfig() resilience.Config {
	return resilience.Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 2,
	}
}

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), testConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), testConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	calls := 0
	wantErr := errors.New("always fails")
	err := resilience.RetryWithBackoff(context.Background(), testConfig(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls (1 + 3 retries), got %d", calls)
	}
}

func TestRetryWithBackoff_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	wantErr := errors.New("bad request")
	err := resilience.RetryWithBackoff(context.Background(), testConfig(), func() error {
		calls++
		return resilience.Permanent(wantErr)
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if err.Error() != wantErr.Error() {
		t.Errorf("expected unwrapped error message %q, got %q", wantErr.Error(), err.Error())
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := resilience.RetryWithBackoff(ctx, testConfig(), func() error {
		t.Fatal("fn should not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBulkhead_LimitsConcurrency(t *testing.T) {
	b := resilience.NewBulkhead(2)
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	full, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := b.Acquire(full); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded with full bulkhead, got %v", err)
	}

	b.Release()
	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}
