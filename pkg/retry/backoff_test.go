package retry

import (
	"context"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0,
	}

	if got := eb.NextDelay(1); got != time.Second {
		t.Errorf("attempt 1: expected 1s, got %v", got)
	}
	if got := eb.NextDelay(2); got != 2*time.Second {
		t.Errorf("attempt 2: expected 2s, got %v", got)
	}
	if got := eb.NextDelay(3); got != 4*time.Second {
		t.Errorf("attempt 3: expected 4s, got %v", got)
	}

	// Capped at MaxDelay
	if got := eb.NextDelay(10); got != 10*time.Second {
		t.Errorf("attempt 10: expected cap at 10s, got %v", got)
	}

	if got := eb.NextDelay(0); got != 0 {
		t.Errorf("attempt 0: expected 0, got %v", got)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 100; i++ {
		d := eb.NextDelay(1)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("jittered delay %v out of [0.5s, 1.5s]", d)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 3 * time.Second}

	for attempt := 1; attempt <= 5; attempt++ {
		if got := cb.NextDelay(attempt); got != 3*time.Second {
			t.Errorf("attempt %d: expected 3s, got %v", attempt, got)
		}
	}
}

func TestWaitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Wait(ctx, time.Minute); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestWaitZeroDelay(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("expected nil for zero delay, got %v", err)
	}
}
