package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/verivote/verivote/internal/resilience"
)

var errBoom = errors.New("boom")

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	t.Parallel()

	cb := resilience.New(resilience.Config{Name: "test"})
	for i := 0; i < 20; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("Execute %d: unexpected error: %v", i, err)
		}
	}
	if cb.State() != resilience.StateClosed {
		t.Fatalf("State: expected closed, got %v", cb.State())
	}
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	t.Parallel()

	cb := resilience.New(resilience.Config{Name: "test", MaxFailures: 3, ResetTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Execute %d: expected errBoom, got %v", i, err)
		}
	}
	if cb.State() != resilience.StateOpen {
		t.Fatalf("State: expected open, got %v", cb.State())
	}

	// The wrapped call is no longer reached.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("Execute: expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Fatal("Execute: open breaker must not call fn")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := resilience.New(resilience.Config{Name: "test", MaxFailures: 3})

	// Two failures, a success, two more failures: never reaches three
	// consecutive.
	for _, fail := range []bool{true, true, false, true, true} {
		_ = cb.Execute(func() error {
			if fail {
				return errBoom
			}
			return nil
		})
	}
	if cb.State() != resilience.StateClosed {
		t.Fatalf("State: expected closed, got %v", cb.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	t.Parallel()

	cb := resilience.New(resilience.Config{
		Name:         "test",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	if cb.State() != resilience.StateOpen {
		t.Fatalf("State: expected open, got %v", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if cb.State() != resilience.StateHalfOpen {
		t.Fatalf("State after reset timeout: expected half-open, got %v", cb.State())
	}

	// Enough successful probes close the breaker again.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: unexpected error: %v", i, err)
		}
	}
	if cb.State() != resilience.StateClosed {
		t.Fatalf("State after probes: expected closed, got %v", cb.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	cb := resilience.New(resilience.Config{
		Name:         "test",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	time.Sleep(20 * time.Millisecond)

	// The first probe fails; the breaker re-opens immediately.
	_ = cb.Execute(func() error { return errBoom })
	if cb.State() != resilience.StateOpen {
		t.Fatalf("State: expected open after failed probe, got %v", cb.State())
	}
}

func TestBreakerFailurePredicate(t *testing.T) {
	t.Parallel()

	errTerminal := errors.New("terminal outcome")
	cb := resilience.New(resilience.Config{
		Name:        "test",
		MaxFailures: 2,
		Failure: func(err error) bool {
			return err != nil && !errors.Is(err, errTerminal)
		},
	})

	// Exempted errors pass through unchanged and never trip the breaker.
	for i := 0; i < 10; i++ {
		if err := cb.Execute(func() error { return errTerminal }); !errors.Is(err, errTerminal) {
			t.Fatalf("Execute %d: expected errTerminal, got %v", i, err)
		}
	}
	if cb.State() != resilience.StateClosed {
		t.Fatalf("State: expected closed, got %v", cb.State())
	}

	// Non-exempt errors still count.
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	if cb.State() != resilience.StateOpen {
		t.Fatalf("State: expected open, got %v", cb.State())
	}
}

func TestBreakerReset(t *testing.T) {
	t.Parallel()

	cb := resilience.New(resilience.Config{Name: "test", MaxFailures: 1, ResetTimeout: time.Hour})
	_ = cb.Execute(func() error { return errBoom })
	if cb.State() != resilience.StateOpen {
		t.Fatalf("State: expected open, got %v", cb.State())
	}

	cb.Reset()
	if cb.State() != resilience.StateClosed {
		t.Fatalf("State after Reset: expected closed, got %v", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after Reset: unexpected error: %v", err)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state resilience.State
		want  string
	}{
		{resilience.StateClosed, "closed"},
		{resilience.StateOpen, "open"},
		{resilience.StateHalfOpen, "half-open"},
		{resilience.State(42), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}
