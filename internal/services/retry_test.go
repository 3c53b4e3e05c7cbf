package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shellac/internal/services"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := services.RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Retryable:      func(error) bool { return true },
	}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	policy := services.RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		Retryable:      func(err error) bool { return !errors.Is(err, permanent) },
	}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	policy := services.RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		Retryable:      func(error) bool { return true },
	}

	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return errors.New("still failing")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := services.RetryPolicy{
		MaxAttempts:    10,
		InitialBackoff: 50 * time.Millisecond,
		Retryable:      func(error) bool { return true },
	}

	err := policy.Do(ctx, func() error {
		cancel()
		return errors.New("busy")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsSQLiteBusy(t *testing.T) {
	if services.IsSQLiteBusy(nil) {
		t.Fatal("nil error must not be busy")
	}
	if !services.IsSQLiteBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("expected busy detection from message")
	}
	if services.IsSQLiteBusy(errors.New("no such table")) {
		t.Fatal("unrelated error must not be busy")
	}
}
