package services

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RetryPolicy describes how an operation is retried: attempt budget, backoff
// schedule, and the predicate deciding which errors are worth another try.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Retryable      func(error) bool
}

// SQLiteBusyPolicy retries short SQLite lock contention during batch writes.
func SQLiteBusyPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     200 * time.Millisecond,
		Retryable:      IsSQLiteBusy,
	}
}

// FileReadPolicy retries transient file reads a small number of times.
func FileReadPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 25 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		Retryable:      func(err error) bool { return err != nil },
	}
}

// Do runs op under the policy, sleeping between attempts and honoring ctx
// cancellation. The last error is returned when attempts are exhausted or the
// error is not retryable.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.InitialBackoff
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			break
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; p.MaxBackoff <= 0 || next <= p.MaxBackoff {
			delay = next
		}
	}
	return lastErr
}

const sqliteBusyCode = 5

// IsSQLiteBusy reports whether an error is SQLite lock contention.
func IsSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
