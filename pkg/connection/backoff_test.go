package connection

import (
	"context"
	"testing"
	"time"
)

func TestBackoffSequenceWithoutJitter(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{})

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("step %d: got %v, want %v", i, got, w)
		}
	}
	if b.Attempts() != len(want) {
		t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(want))
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff()
	for i := 0; i < 50; i++ {
		base := b.Current()
		got := b.Next()
		maxDelay := base + time.Duration(float64(base)*JitterFactor)
		if got < base || got > maxDelay {
			t.Fatalf("delay %v outside [%v, %v]", got, base, maxDelay)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond})
	b.Next()
	b.Next()
	b.Reset()

	if b.Current() != 10*time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 10ms", b.Current())
	}
	if b.Attempts() != 0 {
		t.Errorf("Attempts() after Reset = %d, want 0", b.Attempts())
	}
}

func TestBackoffMaxBelowInitial(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Initial: 5 * time.Second, Max: time.Second})
	if got := b.Next(); got != 5*time.Second {
		t.Errorf("first delay = %v, want 5s", got)
	}
	if got := b.Next(); got != 5*time.Second {
		t.Errorf("second delay = %v, want 5s", got)
	}
}

func TestBackoffWaitCancelled(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Initial: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}

func TestBackoffWaitElapses(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Initial: time.Millisecond})
	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
