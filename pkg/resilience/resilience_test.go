package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var errBackend = errors.New("backend unavailable")

func TestCircuitBreakerLifecycle(t *testing.T) {
	now := time.Unix(1000, 0)
	var transitions []string
	cb := NewCircuitBreaker("blobs", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     10 * time.Second,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})
	cb.now = func() time.Time { return now }
	fail := func() error { return errBackend }
	ok := func() error { return nil }

	for i := 0; i < 2; i++ {
		if err := cb.Execute(fail); !errors.Is(err, errBackend) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	if err := cb.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open circuit let a call through: %v", err)
	}

	now = now.Add(10 * time.Second)
	if err := cb.Execute(fail); !errors.Is(err, errBackend) {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("failed probe left state %v", cb.State())
	}

	now = now.Add(10 * time.Second)
	if err := cb.Execute(ok); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.State())
	}
	want := "closed>open open>half-open half-open>open open>half-open half-open>closed"
	if got := strings.Join(transitions, " "); got != want {
		t.Errorf("transitions = %q, want %q", got, want)
	}
}

func TestCircuitBreakerIgnoresExcludedErrors(t *testing.T) {
	notFound := errors.New("not found")
	cb := NewCircuitBreaker("blobs", CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, notFound) },
	})
	for i := 0; i < 5; i++ {
		if err := cb.Execute(func() error { return notFound }); !errors.Is(err, notFound) {
			t.Fatalf("err = %v", err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v", cb.State())
	}
}

func TestRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 4, InitialDelay: time.Microsecond, MaxDelay: time.Microsecond}

	calls := 0
	err := Retry(context.Background(), "get", cfg, func() error {
		calls++
		if calls < 3 {
			return errBackend
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}

	calls = 0
	err = Retry(context.Background(), "get", cfg, func() error { calls++; return errBackend })
	if !errors.Is(err, errBackend) || calls != 4 {
		t.Fatalf("exhausted: err=%v calls=%d", err, calls)
	}

	calls = 0
	cfg.Retryable = func(error) bool { return false }
	Retry(context.Background(), "get", cfg, func() error { calls++; return errBackend })
	if calls != 1 {
		t.Fatalf("non-retryable error retried %d times", calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 10, InitialDelay: time.Hour}
	err := Retry(ctx, "get", cfg, func() error { cancel(); return errBackend })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond, JitterFraction: 0.1}.withDefaults()
	for attempt := 1; attempt <= 8; attempt++ {
		if d := cfg.backoff(attempt); d > 44*time.Millisecond {
			t.Fatalf("attempt %d waits %v", attempt, d)
		}
	}
}

func TestWithTimeout(t *testing.T) {
	v, err := WithTimeout(context.Background(), time.Second, "load", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("v=%d err=%v", v, err)
	}

	block := make(chan struct{})
	defer close(block)
	_, err = WithTimeout(context.Background(), 10*time.Millisecond, "load", func(context.Context) (int, error) {
		<-block
		return 0, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}
