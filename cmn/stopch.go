package cmn

import "sync"

// StopCh is a close-once broadcast channel: Close is idempotent and every
// call to Listen observes the same closed channel, so any number of
// goroutines can select on it and all wake up together. Adapted from the
// *cmn.StopCh fields (lastCh, stopCh) threaded through transport.Stream's
// send/completion loops.
type StopCh struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

func NewStopCh() *StopCh {
	return &StopCh{ch: make(chan struct{})}
}

// Close closes the channel if it isn't already closed. Safe to call from
// multiple goroutines and safe to call more than once.
func (s *StopCh) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Listen returns the channel to select on; it is closed exactly once.
func (s *StopCh) Listen() <-chan struct{} {
	return s.ch
}

func (s *StopCh) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
