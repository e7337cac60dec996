package scheduler

import (
	"testing"
	"time"
)

func TestBackoff_GrowthAndReset(t *testing.T) {
	b := NewBackoff(15*time.Minute, 30*time.Minute)

	delays := []time.Duration{b.Fail(), b.Fail(), b.Fail()}
	want := []time.Duration{15 * time.Minute, 30 * time.Minute, 30 * time.Minute}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("failure %d delay = %v, want %v", i+1, delays[i], want[i])
		}
	}

	b.Reset()
	if got := b.Fail(); got != 15*time.Minute {
		t.Errorf("delay after reset = %v, want 15m", got)
	}
}

func TestBackoff_CeilingBindsBeforeDoubledBase(t *testing.T) {
	b := NewBackoff(20*time.Minute, 30*time.Minute)

	if got := b.Fail(); got != 20*time.Minute {
		t.Errorf("first delay = %v, want 20m", got)
	}
	if got := b.Fail(); got != 30*time.Minute {
		t.Errorf("second delay = %v, want ceiling 30m", got)
	}
}
