package conc

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Mutex is a lock with a timed acquire (§4.O): lock(timeout) returns
// true on acquisition, false on timeout; timeout<=0 waits forever.
// Optionally recursive — the holding goroutine may re-enter and must
// release the same number of times.
type Mutex struct {
	recursive bool
	sem       chan struct{}

	ownerMu sync.Mutex
	owner   uint64
	depth   int
}

func NewMutex(recursive bool) *Mutex {
	return &Mutex{recursive: recursive, sem: make(chan struct{}, 1)}
}

// goroutineID parses it out of runtime.Stack's header line. Recursive
// locks are foreign to Go's usual goroutine-agnostic style, but the
// contract here is owner-tracked by design, so this is the only way to
// tell "same holder re-entering" from "different goroutine contending".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(fields[1], 10, 64)
	return id
}

func (m *Mutex) Lock(timeout time.Duration) bool {
	if m.recursive {
		gid := goroutineID()
		m.ownerMu.Lock()
		if m.depth > 0 && m.owner == gid {
			m.depth++
			m.ownerMu.Unlock()
			return true
		}
		m.ownerMu.Unlock()
	}

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case m.sem <- struct{}{}:
		if m.recursive {
			m.ownerMu.Lock()
			m.owner = goroutineID()
			m.depth = 1
			m.ownerMu.Unlock()
		}
		return true
	case <-timer:
		return false
	}
}

// Unlock releases one level of ownership.
func (m *Mutex) Unlock() {
	if m.recursive {
		m.ownerMu.Lock()
		m.depth--
		stillHeld := m.depth > 0
		m.ownerMu.Unlock()
		if stillHeld {
			return
		}
	}
	<-m.sem
}
