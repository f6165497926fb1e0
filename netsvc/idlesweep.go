// Idle-connection sweeping for TCPServer: an accepted stream that has
// gone quiet past a configurable timeout is closed by a periodic hk
// callback, mirroring xaction/demand's idle-detection pattern
// (last-access timestamp + periodic sweep) applied to live connections
// instead of xactions.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package netsvc

import (
	"fmt"
	"time"

	"go.uber.org/atomic"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/hk"
	"github.com/AgentD/ctools/stream"
)

// sweepInterval is how often EnableIdleSweep's hk callback runs to scan
// for streams idle past the configured timeout.
const sweepInterval = 10 * time.Second

// trackedStream wraps an accepted connection with the timestamp of its
// last Read or Write, so the sweep can tell how long it has sat idle.
type trackedStream struct {
	stream.Stream
	lastActive atomic.Int64 // unix nanos
}

func wrapTracked(s stream.Stream) *trackedStream {
	ts := &trackedStream{Stream: s}
	ts.touch()
	return ts
}

func (ts *trackedStream) touch() { ts.lastActive.Store(time.Now().UnixNano()) }

func (ts *trackedStream) Read(buf []byte) (int, cmn.ErrorCode) {
	n, code := ts.Stream.Read(buf)
	ts.touch()
	return n, code
}

func (ts *trackedStream) Write(buf []byte) (int, cmn.ErrorCode) {
	n, code := ts.Stream.Write(buf)
	ts.touch()
	return n, code
}

func (ts *trackedStream) idleFor() time.Duration {
	return time.Since(time.Unix(0, ts.lastActive.Load()))
}

// EnableIdleSweep turns on idle tracking for connections accepted from
// this point on: every sweepInterval, accepted streams idle longer than
// timeout are destroyed and dropped. Must be called before Accept, at
// most once per server; a timeout of zero disables sweeping again.
func (s *TCPServer) EnableIdleSweep(timeout time.Duration) {
	s.mu.Lock()
	s.idleTimeout = timeout
	name := s.hkName
	s.mu.Unlock()

	if timeout <= 0 {
		if name != "" {
			hk.Unreg(name)
		}
		return
	}

	s.mu.Lock()
	if s.hkName == "" {
		s.hkName = fmt.Sprintf("netsvc-tcp-idle-%p", s)
	}
	name = s.hkName
	s.mu.Unlock()

	hk.Reg(name, func() time.Duration {
		s.sweepIdle()
		return sweepInterval
	}, sweepInterval)
}

func (s *TCPServer) sweepIdle() {
	s.mu.Lock()
	timeout := s.idleTimeout
	if timeout <= 0 {
		s.mu.Unlock()
		return
	}
	live := s.tracked[:0]
	for _, ts := range s.tracked {
		if ts.idleFor() > timeout {
			ts.Stream.Destroy()
			continue
		}
		live = append(live, ts)
	}
	s.tracked = live
	s.mu.Unlock()
}
