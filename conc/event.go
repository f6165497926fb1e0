// Package conc implements the synchronization primitives (§4.O, §4.P,
// §4.Q): a timeout-capable mutex (optionally recursive), a single-writer
// multi-reader lock built from that mutex plus a reader mutex and an
// event, a monitor, and a joinable thread. Timeouts are why these are
// hand-rolled instead of sync.Mutex/sync.Cond directly — matching the
// teacher's atomic-counter idiom (go.uber.org/atomic) wherever a count
// needs to be observed without a lock.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package conc

import "sync"

// event is a manual-reset signal: set() wakes every goroutine currently
// parked on c(), reset() re-arms it. Used for the RW-lock's
// "no readers" signal and the monitor's notify-all signal, both of
// which are genuinely broadcast-to-current-waiters semantics.
type event struct {
	mu sync.Mutex
	ch chan struct{}
}

func newEvent(initiallySet bool) *event {
	e := &event{ch: make(chan struct{})}
	if initiallySet {
		close(e.ch)
	}
	return e
}

func (e *event) set() {
	e.mu.Lock()
	select {
	case <-e.ch:
	default:
		close(e.ch)
	}
	e.mu.Unlock()
}

func (e *event) reset() {
	e.mu.Lock()
	select {
	case <-e.ch:
		e.ch = make(chan struct{})
	default:
	}
	e.mu.Unlock()
}

func (e *event) c() <-chan struct{} {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()
	return ch
}

func (e *event) wait() {
	<-e.c()
}
