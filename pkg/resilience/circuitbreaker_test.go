package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PitchlineAI/pitchline-mvp/pkg/fn"
)

func newTestBreaker(opts BreakerOpts) (*Breaker, *time.Time) {
	b := NewBreaker(opts)
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now
}

func failing(_ context.Context) error { return errors.New("downstream error") }
func succeeding(_ context.Context) error { return nil }

func TestBreaker_StaysClosed(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	for i := 0; i < 10; i++ {
		if err := b.Call(context.Background(), succeeding); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	for i := 0; i < 3; i++ {
		b.Call(context.Background(), failing)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Call(context.Background(), succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	b.Call(context.Background(), failing)
	b.Call(context.Background(), failing)
	b.Call(context.Background(), succeeding)
	b.Call(context.Background(), failing)
	b.Call(context.Background(), failing)
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after reset", b.State())
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: 30 * time.Second, HalfOpenMax: 1})
	b.Call(context.Background(), failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	*now = now.Add(31 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after timeout", b.State())
	}
	if err := b.Call(context.Background(), succeeding); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after successful probe", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: 30 * time.Second, HalfOpenMax: 1})
	b.Call(context.Background(), failing)
	*now = now.Add(31 * time.Second)
	b.Call(context.Background(), failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open after failed probe", b.State())
	}
}

func TestCallResult_OpenShortCircuits(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	b.Call(context.Background(), failing)

	called := false
	r := CallResult(b, context.Background(), func(context.Context) fn.Result[int] {
		called = true
		return fn.Ok(1)
	})
	if _, err := r.Unwrap(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Fatal("function should not run while the breaker is open")
	}
}

func TestCallResult_PassesValue(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	r := CallResult(b, context.Background(), func(context.Context) fn.Result[string] {
		return fn.Ok("hit")
	})
	v, err := r.Unwrap()
	if err != nil || v != "hit" {
		t.Fatalf("got (%v, %v)", v, err)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown"}
	for st, want := range cases {
		if st.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", st, st.String(), want)
		}
	}
}
