// Package netsvc implements the TCP and UDP server realizations (§4.L,
// §4.M) that accept or exchange datagrams and hand back stream.Stream
// values wrapping the resulting sockets.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package netsvc

import (
	"context"
	"sync"
	"time"

	mdsocket "github.com/mdlayher/socket"
	"golang.org/x/sys/unix"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/hk"
	"github.com/AgentD/ctools/netaddr"
	"github.com/AgentD/ctools/stream"
)

// ServerFlags control server construction.
type ServerFlags int

const (
	// IPv6Only rejects IPv4-mapped peers (::ffff:0:0/96) on accept and
	// restricts binding to the IPv6 family.
	IPv6Only ServerFlags = 1 << iota
)

// TCPServer listens on a bound socket and accepts connections as
// stream.SocketStream values.
type TCPServer struct {
	mu     sync.Mutex
	conn   *mdsocket.Conn
	flags  ServerFlags
	closed bool

	idleTimeout time.Duration
	hkName      string
	tracked     []*trackedStream
}

// ListenTCP binds local, sets SO_REUSEADDR, and begins listening with the
// given backlog.
func ListenTCP(local netaddr.Addr, backlog int, flags ServerFlags) (*TCPServer, cmn.ErrorCode) {
	domain := unix.AF_INET
	if local.Family == netaddr.IPv6 {
		domain = unix.AF_INET6
	}
	conn, err := mdsocket.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP, "ctools-tcp", nil)
	if err != nil {
		return nil, mapOSError(err)
	}
	if rc, rcErr := conn.SyscallConn(); rcErr == nil {
		rc.Control(func(fd uintptr) {
			unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			if flags&IPv6Only != 0 && domain == unix.AF_INET6 {
				unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1)
			}
		})
	}

	sa, code := local.ToSockaddr()
	if code != cmn.Ok {
		conn.Close()
		return nil, code
	}
	if err := conn.Bind(sa); err != nil {
		conn.Close()
		return nil, mapOSError(err)
	}
	if err := conn.Listen(backlog); err != nil {
		conn.Close()
		return nil, mapOSError(err)
	}
	return &TCPServer{conn: conn, flags: flags}, cmn.Ok
}

// Accept polls for readability up to timeout, accepts, and wraps the new
// descriptor as a socket stream. If IPv6Only is set and the peer address
// is an IPv4-mapped address, the new connection is closed and accept
// retries until timeout elapses.
func (s *TCPServer) Accept(timeout time.Duration) (stream.Stream, cmn.ErrorCode) {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		ctx := context.Background()
		var cancel context.CancelFunc
		if !deadline.IsZero() {
			ctx, cancel = context.WithDeadline(ctx, deadline)
		}
		nc, sa, err := s.conn.Accept(ctx, 0)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, cmn.Timeout
			}
			return nil, mapOSError(err)
		}

		peer, code := netaddr.FromSockaddr(sa, netaddr.TCP)
		if code == cmn.Ok && s.flags&IPv6Only != 0 && peer.IsIPv4MappedIPv6() {
			nc.Close()
			if !deadline.IsZero() && time.Now().After(deadline) {
				return nil, cmn.Timeout
			}
			continue
		}

		ss := stream.WrapSocket(nc, netaddr.TCP)

		s.mu.Lock()
		sweeping := s.idleTimeout > 0
		s.mu.Unlock()
		if sweeping {
			ts := wrapTracked(ss)
			s.mu.Lock()
			s.tracked = append(s.tracked, ts)
			s.mu.Unlock()
			return ts, cmn.Ok
		}
		return ss, cmn.Ok
	}
}

func (s *TCPServer) Destroy() cmn.ErrorCode {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return cmn.Ok
	}
	s.closed = true
	name := s.hkName
	s.mu.Unlock()

	if name != "" {
		hk.Unreg(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Close(); err != nil {
		return mapOSError(err)
	}
	return cmn.Ok
}

// LocalAddr reports the address the server is bound to.
func (s *TCPServer) LocalAddr() (netaddr.Addr, cmn.ErrorCode) {
	sa, err := s.conn.Getsockname()
	if err != nil {
		return netaddr.Addr{}, mapOSError(err)
	}
	return netaddr.FromSockaddr(sa, netaddr.TCP)
}
