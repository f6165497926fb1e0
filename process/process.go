// Package process implements child-process spawning, stdio plumbing,
// and lifecycle control (§4.N) on top of the stream contract: a
// process's redirected stdin/stdout are exposed as a single
// bidirectional stream.PipeStream, the way a pipe-backed Stream already
// models two independent descriptors.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package process

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/stream"
)

// Flags select which of the child's standard descriptors are redirected
// through a pipe back to the parent.
type Flags int

const (
	PipeStdin Flags = 1 << iota
	PipeStdout
	PipeStderr
	// StderrToStdout merges the child's stderr into its stdout pipe;
	// it implies PipeStdout and cannot be combined with PipeStderr.
	StderrToStdout
)

// Process is a spawned child with whatever pipes its Flags requested.
type Process struct {
	cmd          *exec.Cmd
	stdio        *stream.PipeStream
	stderrStream *stream.PipeStream

	once     sync.Once
	doneCh   chan struct{}
	exitCode int
	waitErr  error
}

// Spawn starts executable with argv (argv[0] is conventionally the
// program name, matching exec.Cmd.Args semantics) and env (nil inherits
// the parent's environment). Pipes are created before Start and the
// child-side ends are closed in the parent immediately after.
func Spawn(executable string, argv []string, env []string, flags Flags) (*Process, cmn.ErrorCode) {
	if flags&StderrToStdout != 0 {
		if flags&PipeStderr != 0 {
			return nil, cmn.BadArg
		}
		flags |= PipeStdout
	}

	cmd := exec.Command(executable, argv...)
	if env != nil {
		cmd.Env = env
	}

	var stdinR, stdinW, stdoutR, stdoutW, stderrR, stderrW *os.File
	var err error

	cleanup := func() {
		for _, f := range []*os.File{stdinR, stdinW, stdoutR, stdoutW, stderrR, stderrW} {
			if f != nil {
				f.Close()
			}
		}
	}

	if flags&PipeStdin != 0 {
		if stdinR, stdinW, err = os.Pipe(); err != nil {
			cleanup()
			return nil, cmn.MapOSError(err)
		}
		cmd.Stdin = stdinR
	}
	if flags&PipeStdout != 0 {
		if stdoutR, stdoutW, err = os.Pipe(); err != nil {
			cleanup()
			return nil, cmn.MapOSError(err)
		}
		cmd.Stdout = stdoutW
	}
	if flags&PipeStderr != 0 {
		if stderrR, stderrW, err = os.Pipe(); err != nil {
			cleanup()
			return nil, cmn.MapOSError(err)
		}
		cmd.Stderr = stderrW
	} else if flags&StderrToStdout != 0 {
		cmd.Stderr = stdoutW
	}

	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, cmn.MapOSError(err)
	}

	// Close the child's ends in the parent; only the parent's ends
	// (the ones handed to the caller) survive past this point.
	if stdinR != nil {
		stdinR.Close()
	}
	if stdoutW != nil {
		stdoutW.Close()
	}
	if stderrW != nil && flags&StderrToStdout == 0 {
		stderrW.Close()
	}

	p := &Process{cmd: cmd, doneCh: make(chan struct{})}
	if stdinW != nil || stdoutR != nil {
		p.stdio = stream.NewPipeStream(stdoutR, stdinW)
	}
	if stderrR != nil {
		p.stderrStream = stream.NewPipeStream(stderrR, nil)
	}

	go p.reap()
	return p, cmn.Ok
}

func (p *Process) reap() {
	err := p.cmd.Wait()
	p.waitErr = err
	if err == nil {
		p.exitCode = 0
	} else if ee, ok := err.(*exec.ExitError); ok {
		p.exitCode = ee.ExitCode()
	}
	close(p.doneCh)
}

// Stdio returns the stream whose writes feed the child's stdin and whose
// reads drain the child's stdout, whichever of those were redirected. It
// returns nil if neither was.
func (p *Process) Stdio() stream.Stream {
	if p.stdio == nil {
		return nil
	}
	return p.stdio
}

// Stderr returns the stream draining the child's stderr, or nil if it
// was not redirected separately (absent, or merged via StderrToStdout).
func (p *Process) Stderr() stream.Stream {
	if p.stderrStream == nil {
		return nil
	}
	return p.stderrStream
}

// ParentStdio wraps the calling process's own stdin/stdout as a stream,
// matching the "no process" form of stdio() in §4.N.
func ParentStdio() stream.Stream {
	return stream.NewPipeStream(os.Stdin, os.Stdout)
}

// Kill sends the platform's unconditional-termination signal.
func (p *Process) Kill() cmn.ErrorCode {
	if err := p.cmd.Process.Kill(); err != nil {
		return cmn.MapOSError(err)
	}
	return cmn.Ok
}

// Terminate sends the polite signal, asking the child to clean up with
// no guarantee it will.
func (p *Process) Terminate() cmn.ErrorCode {
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return cmn.MapOSError(err)
	}
	return cmn.Ok
}

// Wait blocks up to timeout for the child to exit. timeout=0 waits
// forever. NotExist is returned if the child was already reaped outside
// this call (e.g. a SIGCHLD handler elsewhere beat this Wait to it).
func (p *Process) Wait(timeout time.Duration) (int, cmn.ErrorCode) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-p.doneCh:
		if p.waitErr != nil {
			var exitErr *exec.ExitError
			if !errors.As(p.waitErr, &exitErr) {
				return 0, cmn.NotExist
			}
		}
		return p.exitCode, cmn.Ok
	case <-timer:
		return 0, cmn.Timeout
	}
}

// Sleep suspends the calling goroutine for at least ms milliseconds.
// Go's runtime sleep is not signal-interruptible the way a blocking OS
// syscall is, so unlike a native implementation this always runs the
// full duration.
func Sleep(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
