package stream

import (
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/AgentD/ctools/cmn"
)

// PipeStream wraps one or two byte-oriented descriptors: separate read
// and write files for a process pipe, or the same file for a full-duplex
// socket-like descriptor (§4.F). Each Read/Write polls its descriptor for
// readiness under the current timeout before issuing the syscall.
// Interrupted system calls are retried up to three times before being
// reported as Internal.
type PipeStream struct {
	mu          sync.Mutex
	r, w        *os.File
	timeout     time.Duration
	closeOnDone bool
}

// NewPipeStream wraps r and/or w. Passing the same *os.File for both
// models a full-duplex descriptor; passing nil for one models a
// unidirectional stream.
func NewPipeStream(r, w *os.File) *PipeStream {
	return &PipeStream{r: r, w: w}
}

func (p *PipeStream) Type() Type {
	t := TypePipe
	if p.r != nil {
		t |= FlagRead
	}
	if p.w != nil {
		t |= FlagWrite
	}
	return t
}

func (p *PipeStream) SetTimeout(d time.Duration) {
	p.mu.Lock()
	p.timeout = d
	p.mu.Unlock()
}

func (p *PipeStream) Read(buf []byte) (int, cmn.ErrorCode) {
	if p.r == nil {
		return 0, cmn.BadArg
	}
	if code := p.pollReady(int(p.r.Fd()), unix.POLLIN); code != cmn.Ok {
		return 0, code
	}
	return retryRW(func() (int, error) { return p.r.Read(buf) }, true)
}

func (p *PipeStream) Write(buf []byte) (int, cmn.ErrorCode) {
	if p.w == nil {
		return 0, cmn.BadArg
	}
	if code := p.pollReady(int(p.w.Fd()), unix.POLLOUT); code != cmn.Ok {
		return 0, code
	}
	return retryRW(func() (int, error) { return p.w.Write(buf) }, false)
}

func (p *PipeStream) Destroy() cmn.ErrorCode {
	var code cmn.ErrorCode = cmn.Ok
	if p.w != nil {
		if err := p.w.Close(); err != nil {
			code = mapOSError(err)
		}
	}
	if p.r != nil && p.r != p.w {
		if err := p.r.Close(); err != nil && code == cmn.Ok {
			code = mapOSError(err)
		}
	}
	return code
}

// pollReady blocks until fd is ready for the requested event or the
// configured timeout elapses.
func (p *PipeStream) pollReady(fd int, events int16) cmn.ErrorCode {
	p.mu.Lock()
	timeout := p.timeout
	p.mu.Unlock()

	millis := -1
	if timeout > 0 {
		millis = int(timeout.Milliseconds())
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for attempt := 0; attempt < maxInterruptRetries+1; attempt++ {
		n, err := unix.Poll(fds, millis)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return mapOSError(err)
		}
		if n == 0 {
			return cmn.Timeout
		}
		if fds[0].Revents&events != 0 {
			// still ready (e.g. data buffered after the peer hung up)
			return cmn.Ok
		}
		if fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return cmn.Closed
		}
		return cmn.Ok
	}
	return cmn.Internal
}

// retryRW retries the syscall up to three times on EINTR; on genuine EOF
// from a read it reports cmn.Eof, and on zero-byte non-error reads it
// reports cmn.Eof too (the stream contract forbids a bare 0-byte cmn.Ok).
func retryRW(fn func() (int, error), isRead bool) (int, cmn.ErrorCode) {
	for attempt := 0; attempt < maxInterruptRetries+1; attempt++ {
		n, err := fn()
		if err == nil {
			if isRead && n == 0 {
				return 0, cmn.Eof
			}
			return n, cmn.Ok
		}
		if err == unix.EINTR {
			continue
		}
		if isRead && err == io.EOF {
			return n, cmn.Eof
		}
		return n, mapOSError(err)
	}
	return 0, cmn.Internal
}
