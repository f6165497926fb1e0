// Package wpool implements the bounded thread pool (§4.R): a FIFO task
// queue guarded by a mutex and condition variable, N persistent
// workers, and submission-time choice between borrowing the caller's
// payload and cloning it into an owned copy. Counters are
// go.uber.org/atomic, the same style the teacher uses for stream and
// session bookkeeping (transport/send.go).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package wpool

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/hk"
)

// statsLogInterval is how often a pool with logging enabled reports its
// submitted/completed counters via hk.
const statsLogInterval = time.Minute

// task is a queued unit of work. When owned is true, data is a payload
// wpool allocated for this task (via allocator.Clone, or a byte copy
// when no allocator was supplied) and must be released through
// allocator.Cleanup if the task is drained unrun at shutdown.
type task struct {
	fn        func(data interface{})
	data      interface{}
	owned     bool
	allocator cmn.Allocator
}

func (t *task) release() {
	if !t.owned {
		return
	}
	if buf, ok := t.data.([]byte); ok && t.allocator != nil {
		t.allocator.Cleanup(buf)
	}
}

// Pool is the bounded worker pool.
type Pool struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	empty    *sync.Cond
	queue    []*task
	shutdown bool

	wg sync.WaitGroup

	submitted atomic.Int64
	completed atomic.Int64

	hkName string
}

// New starts n workers (n must be ≥ 1), each running init(arg) once on
// entry and cleanup(arg) once on exit, if given.
func New(n int, init, cleanup func(arg interface{}), arg interface{}) (*Pool, cmn.ErrorCode) {
	if n < 1 {
		return nil, cmn.BadArg
	}
	p := &Pool{}
	p.notEmpty = sync.NewCond(&p.mu)
	p.empty = sync.NewCond(&p.mu)

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(init, cleanup, arg)
	}
	return p, cmn.Ok
}

// EnableStatsLog registers an hk callback that logs the pool's
// submitted/completed counters once per statsLogInterval, at glog
// verbosity 4, matching the teacher's transport package's own periodic
// stats reporting.
func (p *Pool) EnableStatsLog() {
	p.hkName = fmt.Sprintf("wpool-%p", p)
	hk.Reg(p.hkName, func() time.Duration {
		if glog.V(4) {
			submitted, completed := p.Stats()
			glog.Infof("%s: submitted=%d completed=%d", p.hkName, submitted, completed)
		}
		return statsLogInterval
	}, statsLogInterval)
}

func (p *Pool) worker(init, cleanup func(interface{}), arg interface{}) {
	defer p.wg.Done()
	if init != nil {
		init(arg)
	}
	if cleanup != nil {
		defer cleanup(arg)
	}

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.shutdown {
			p.notEmpty.Wait()
		}
		if p.shutdown || len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		t.fn(t.data)
		p.completed.Inc()

		p.mu.Lock()
		if len(p.queue) == 0 {
			p.empty.Broadcast()
		}
		p.mu.Unlock()
	}
}

// AddTask submits fn(data) for execution. When tasksize is zero, the
// pool borrows data as-is (the caller retains ownership and must keep it
// alive until fn runs); otherwise the pool clones it into a freshly
// allocated []byte of that size — via allocator.Clone if allocator is
// non-nil, or a plain copy if it is nil — and owns the copy, releasing it
// through allocator.Cleanup if the task is drained unrun at Shutdown.
// Only a []byte data is copied: any other data is dropped and fn
// receives a zero-filled []byte of tasksize bytes.
func (p *Pool) AddTask(fn func(data interface{}), data interface{}, tasksize int, allocator cmn.Allocator) cmn.ErrorCode {
	if fn == nil {
		return cmn.BadArg
	}

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return cmn.Closed
	}

	t := &task{fn: fn}
	if tasksize > 0 {
		buf := make([]byte, tasksize)
		if src, ok := data.([]byte); ok {
			if allocator != nil {
				allocator.Clone(buf, src)
			} else {
				copy(buf, src)
			}
		}
		t.data = buf
		t.owned = true
		t.allocator = allocator
	} else {
		t.data = data
	}

	p.queue = append(p.queue, t)
	p.submitted.Inc()
	p.mu.Unlock()
	p.notEmpty.Signal()
	return cmn.Ok
}

// Shutdown stops accepting new tasks, wakes every worker so it observes
// shutdown, joins them all, then drains whatever remains in the queue,
// releasing owned payloads without running them.
func (p *Pool) Shutdown() {
	if p.hkName != "" {
		hk.Unreg(p.hkName)
	}

	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
	p.notEmpty.Broadcast()

	p.wg.Wait()

	p.mu.Lock()
	remaining := p.queue
	p.queue = nil
	p.empty.Broadcast()
	p.mu.Unlock()

	for _, t := range remaining {
		t.release()
	}
}

// Wait blocks until the queue goes empty or timeout elapses (timeout<=0
// waits forever). The caller is responsible for ensuring no one else is
// still submitting if a deterministic drain is required.
func (p *Pool) Wait(timeout time.Duration) bool {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	done := make(chan struct{})
	go func() {
		p.mu.Lock()
		for len(p.queue) != 0 {
			p.empty.Wait()
		}
		p.mu.Unlock()
		close(done)
	}()

	if deadline.IsZero() {
		<-done
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(time.Until(deadline)):
		return false
	}
}

// Stats reads the submitted/completed counters.
func (p *Pool) Stats() (submitted, completed int64) {
	return p.submitted.Load(), p.completed.Load()
}
