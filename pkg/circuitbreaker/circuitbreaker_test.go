package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(func() error { return errBoom })
	}
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1})
	failN(cb, 3)

	err := cb.Execute(func() error { return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if cb.GetState() != StateOpen {
		t.Errorf("state = %v, want open", cb.GetState())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1})
	failN(cb, 2)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("err = %v", err)
	}
	failN(cb, 2)

	// 2 failures, success, 2 failures: threshold never reached.
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestHalfOpenProbeAndClose(t *testing.T) {
	t.Parallel()

	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 5 * time.Millisecond, HalfOpenMaxRequests: 3})
	failN(cb, 1)

	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen while open", err)
	}

	time.Sleep(10 * time.Millisecond)

	// Probes are let through half-open; enough successes close it.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("err after closing = %v, want nil", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed", cb.GetState())
	}
}

func TestFailedProbeReopens(t *testing.T) {
	t.Parallel()

	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 5 * time.Millisecond, HalfOpenMaxRequests: 3})
	failN(cb, 1)
	cb.Execute(func() error { return nil }) // trips the open transition
	time.Sleep(10 * time.Millisecond)

	cb.Execute(func() error { return errBoom })
	if cb.GetState() != StateOpen {
		t.Errorf("state = %v, want open after a failed probe", cb.GetState())
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1})
	failN(cb, 1)
	cb.Execute(func() error { return nil })
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed after reset", cb.GetState())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("err = %v, want nil after reset", err)
	}
}
