// SPDX-License-Identifier: MIT
package snapshot

import (
	"context"
	"sync"
)

// Session serialises captures for one logical owner. Starting a capture
// cancels the one in flight and waits until it has released its context,
// so at most one context per session is ever open.
type Session struct {
	capturer *Capturer

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession returns a session backed by capturer.
func NewSession(capturer *Capturer) *Session {
	return &Session{capturer: capturer}
}

// Capture replaces any in-flight capture with a new one for blob. The
// replaced call returns ErrSkipped.
func (s *Session) Capture(ctx context.Context, blob Blob) (FrequencySnapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return FrequencySnapshot{}, ErrSessionClosed
	}
	prevCancel, prevDone := s.cancel, s.done

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	defer func() {
		cancel()
		close(done)
		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
	}()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}
	if cctx.Err() != nil {
		return FrequencySnapshot{}, ErrSkipped
	}
	return s.capturer.Capture(cctx, blob)
}

// Close disposes the session: the in-flight capture, if any, is cancelled
// and Close returns once its context is released. Further captures fail
// with ErrSessionClosed. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
