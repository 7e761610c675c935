package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, Multiplier: 1, MaxInterval: time.Millisecond}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	var notified []int
	value, err := Do(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", domain.ProviderTransient(nil, "rate limited")
		}
		return "ok", nil
	}, func(attempt int, err error, wait time.Duration) {
		notified = append(notified, attempt)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "ok" || calls != 3 {
		t.Fatalf("expected success on third call, got %q after %d calls", value, calls)
	}
	if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
		t.Fatalf("unexpected notifications %v", notified)
	}
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "", domain.ProviderTransient(nil, "unavailable")
	}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !domain.IsRetryable(err) {
		t.Fatalf("expected last error to be returned unchanged, got %v", err)
	}
}

func TestDoDoesNotRetryTerminalErrors(t *testing.T) {
	calls := 0
	rejected := domain.ProviderRejected(errors.New("bad request"), "rejected")
	_, err := Do(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		return 0, rejected
	}, nil)
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if !errors.Is(err, rejected) {
		t.Fatalf("expected rejected error, got %v", err)
	}
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastPolicy(5), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, domain.ProviderTransient(nil, "timeout")
	}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected cancellation to stop retries, got %d calls", calls)
	}
}

func TestAttemptsFloor(t *testing.T) {
	if (Policy{}).Attempts() != 1 {
		t.Fatalf("expected zero policy to run once")
	}
}
