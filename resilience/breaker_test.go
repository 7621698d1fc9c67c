package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 3, OpenInterval: time.Minute})

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}

	if b.State() != BreakerOpen {
		t.Fatalf("expected open state, got %s", b.State())
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 2, OpenInterval: time.Minute})

	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errBoom })

	if b.State() != BreakerClosed {
		t.Errorf("expected closed after interleaved success, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, OpenInterval: 10 * time.Millisecond})

	_ = b.Execute(func() error { return errBoom })
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(20 * time.Millisecond)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open after interval, got %s", b.State())
	}

	// Probe succeeds: breaker closes.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, OpenInterval: 10 * time.Millisecond})

	_ = b.Execute(func() error { return errBoom })
	time.Sleep(20 * time.Millisecond)

	_ = b.Execute(func() error { return errBoom })
	if b.State() != BreakerOpen {
		t.Errorf("expected re-open after failed probe, got %s", b.State())
	}
}

func TestBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, OpenInterval: 5 * time.Millisecond})
	_ = b.Execute(func() error { return errBoom })
	time.Sleep(10 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("expected first probe to be admitted")
	}
	if b.Allow() {
		t.Error("expected second call to be rejected while probe in flight")
	}
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	b := NewBreaker(BreakerConfig{
		Name:         "api",
		MaxFailures:  1,
		OpenInterval: time.Minute,
		OnStateChange: func(name string, from, to BreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = b.Execute(func() error { return errBoom })
	b.Reset()

	if len(transitions) != 2 || transitions[0] != "closed->open" || transitions[1] != "open->closed" {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}
