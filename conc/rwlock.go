package conc

import "sync"

// RWLock is the single-writer multi-reader lock built from a mutex, a
// reader mutex, and an event (§4.O) — not sync.RWMutex. A reader
// acquires the reader mutex, increments the reader count, resets the
// "no readers" event, then releases the reader mutex. A writer acquires
// the reader mutex (blocking new readers and other writers for its
// duration), waits for the event to signal no readers are active, then
// takes the underlying mutex for the critical section.
type RWLock struct {
	mu       *Mutex // held by the writer for the duration of the critical section
	readerMu *Mutex // serializes "become a reader" / "become the writer" attempts
	noReaders *event

	countMu sync.Mutex
	readers int
}

func NewRWLock() *RWLock {
	return &RWLock{
		mu:        NewMutex(false),
		readerMu:  NewMutex(false),
		noReaders: newEvent(true),
	}
}

func (r *RWLock) RLock() {
	r.readerMu.Lock(0)
	r.countMu.Lock()
	r.readers++
	if r.readers == 1 {
		r.noReaders.reset()
	}
	r.countMu.Unlock()
	r.readerMu.Unlock()
}

func (r *RWLock) RUnlock() {
	r.countMu.Lock()
	r.readers--
	last := r.readers == 0
	r.countMu.Unlock()
	if last {
		r.noReaders.set()
	}
}

func (r *RWLock) Lock() {
	r.readerMu.Lock(0)
	r.noReaders.wait()
	r.mu.Lock(0)
}

func (r *RWLock) Unlock() {
	r.mu.Unlock()
	r.readerMu.Unlock()
}
