package conc

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ThreadState is the lifecycle of a spawned Thread (§4.Q).
type ThreadState int32

const (
	Pending ThreadState = iota
	Running
	Terminated
)

// Thread wraps a goroutine with the join/return-value/state semantics
// the core core contract expects, since a bare goroutine offers none of
// those observably.
type Thread struct {
	state atomic.Int32
	done  chan struct{}

	mu     sync.Mutex
	retVal interface{}
}

// SpawnThread runs fn(arg) on a new goroutine. The worker sets
// state=Running on entry and, on return, stores the return value under
// lock and sets state=Terminated before closing the done channel that
// Join waits on.
func SpawnThread(fn func(arg interface{}) interface{}, arg interface{}) *Thread {
	t := &Thread{done: make(chan struct{})}
	go func() {
		t.state.Store(int32(Running))
		rv := fn(arg)
		t.mu.Lock()
		t.retVal = rv
		t.mu.Unlock()
		t.state.Store(int32(Terminated))
		close(t.done)
	}()
	return t
}

func (t *Thread) State() ThreadState { return ThreadState(t.state.Load()) }

// Join waits for Terminated; timeout<=0 waits forever.
func (t *Thread) Join(timeout time.Duration) bool {
	if timeout <= 0 {
		<-t.done
		return true
	}
	select {
	case <-t.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ReturnValue is safe to call at any time; it returns nil until the
// thread has terminated.
func (t *Thread) ReturnValue() interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retVal
}

// Destroy transfers ownership of the Thread value to the running
// goroutine if it hasn't terminated yet — there is no native handle to
// release, so once the caller drops its reference the Go runtime
// reclaims the Thread when the goroutine itself exits and nothing else
// still refers to it.
func (t *Thread) Destroy() {}
