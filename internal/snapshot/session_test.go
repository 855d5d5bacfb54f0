// SPDX-License-Identifier: MIT
package snapshot

import (
	"context"
	"errors"
	"testing"
)

type captureResult struct {
	snap FrequencySnapshot
	err  error
}

func captureAsync(s *Session, blob Blob) <-chan captureResult {
	out := make(chan captureResult, 1)
	go func() {
		snap, err := s.Capture(context.Background(), blob)
		out <- captureResult{snap, err}
	}()
	return out
}

func TestSessionReplacesInFlightCapture(t *testing.T) {
	clock := newHeldClock()
	c, host := newCapturer(t, clock) // one context allowed
	s := NewSession(c)
	defer s.Close()

	first := captureAsync(s, toneBlob(440, 0.5))
	<-clock.waiting
	if host.Live() != 1 {
		t.Fatalf("live = %d, want 1", host.Live())
	}

	second := captureAsync(s, toneBlob(2000, 0.5))

	r1 := <-first
	if !errors.Is(r1.err, ErrSkipped) {
		t.Fatalf("replaced capture error = %v, want ErrSkipped", r1.err)
	}

	<-clock.waiting
	clock.Release()
	r2 := <-second
	if r2.err != nil {
		t.Fatalf("second capture: %v", r2.err)
	}
	if !r2.snap.Usable() {
		t.Fatalf("second capture not usable: %s", r2.snap)
	}
	bin, _ := r2.snap.Peak()
	if f := r2.snap.BinFrequency(bin); f < 1900 || f > 2100 {
		t.Errorf("peak at %.0f Hz, want the second blob's 2000 Hz", f)
	}
	if host.Live() != 0 {
		t.Errorf("live = %d after both captures, want 0", host.Live())
	}
}

func TestSessionSequentialCaptures(t *testing.T) {
	c, host := newCapturer(t, &instantClock{})
	s := NewSession(c)
	defer s.Close()

	for i := range 3 {
		snap, err := s.Capture(context.Background(), toneBlob(1000, 0.5))
		if err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
		if !snap.Usable() {
			t.Errorf("capture %d not usable", i)
		}
	}
	if host.Live() != 0 {
		t.Errorf("live = %d, want 0", host.Live())
	}
}

func TestSessionCloseDisposes(t *testing.T) {
	clock := newHeldClock()
	c, host := newCapturer(t, clock)
	s := NewSession(c)

	pending := captureAsync(s, toneBlob(1000, 0.5))
	<-clock.waiting

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if host.Live() != 0 {
		t.Errorf("live = %d after Close, want 0", host.Live())
	}
	if r := <-pending; !errors.Is(r.err, ErrSkipped) {
		t.Errorf("pending capture error = %v, want ErrSkipped", r.err)
	}

	if _, err := s.Capture(context.Background(), toneBlob(1000, 0.5)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("capture after Close error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	clock.Release()
}
