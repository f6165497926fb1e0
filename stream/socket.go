package stream

import (
	"context"
	"sync"
	"time"

	mdsocket "github.com/mdlayher/socket"
	"golang.org/x/sys/unix"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/netaddr"
)

// SocketStream is Stream over a connected TCP or UDP socket (§4.G). It
// wraps a github.com/mdlayher/socket.Conn so that timeouts are applied as
// per-call deadlines rather than accumulating across calls, and so socket
// options (e.g. IPv6-only) remain reachable via SetsockoptInt.
type SocketStream struct {
	mu        sync.Mutex
	conn      *mdsocket.Conn
	transport netaddr.Transport
	timeout   time.Duration
}

func newSocketStream(conn *mdsocket.Conn, tr netaddr.Transport) *SocketStream {
	return &SocketStream{conn: conn, transport: tr}
}

// WrapSocket adopts an already-connected or already-accepted socket
// connection (e.g. one returned by a TCP/UDP server's accept) as a
// SocketStream.
func WrapSocket(conn *mdsocket.Conn, tr netaddr.Transport) *SocketStream {
	return newSocketStream(conn, tr)
}

// DialTCP connects a TCP socket to an already-resolved addr.
func DialTCP(ctx context.Context, addr netaddr.Addr) (*SocketStream, cmn.ErrorCode) {
	return dial(ctx, addr, unix.SOCK_STREAM, unix.IPPROTO_TCP)
}

// DialUDP "connects" a UDP socket, fixing the peer for subsequent
// Read/Write without per-call addressing.
func DialUDP(ctx context.Context, addr netaddr.Addr) (*SocketStream, cmn.ErrorCode) {
	return dial(ctx, addr, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
}

func dial(ctx context.Context, addr netaddr.Addr, typ, proto int) (*SocketStream, cmn.ErrorCode) {
	domain := unix.AF_INET
	if addr.Family == netaddr.IPv6 {
		domain = unix.AF_INET6
	}
	conn, err := mdsocket.Socket(domain, typ, proto, "ctools", nil)
	if err != nil {
		return nil, mapOSError(err)
	}
	sa, code := addr.ToSockaddr()
	if code != cmn.Ok {
		conn.Close()
		return nil, code
	}
	if _, err := conn.Connect(ctx, sa); err != nil {
		conn.Close()
		return nil, mapOSError(err)
	}
	tr := addr.Transport
	return newSocketStream(conn, tr), cmn.Ok
}

func (s *SocketStream) Type() Type {
	t := TypeSocket
	if s.transport == netaddr.UDP {
		t |= FlagUDP
	} else {
		t |= FlagTCP
	}
	return t
}

func (s *SocketStream) SetTimeout(d time.Duration) {
	s.mu.Lock()
	s.timeout = d
	s.mu.Unlock()
}

func (s *SocketStream) deadline() time.Time {
	s.mu.Lock()
	d := s.timeout
	s.mu.Unlock()
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

func (s *SocketStream) Read(buf []byte) (int, cmn.ErrorCode) {
	_ = s.conn.SetReadDeadline(s.deadline())
	n, err := s.conn.Read(buf)
	if err != nil {
		code := mapOSError(err)
		if isDeadlineErr(err) {
			code = cmn.Timeout
		}
		return n, code
	}
	if n == 0 {
		return 0, cmn.Eof
	}
	return n, cmn.Ok
}

func (s *SocketStream) Write(buf []byte) (int, cmn.ErrorCode) {
	_ = s.conn.SetWriteDeadline(s.deadline())
	n, err := s.conn.Write(buf)
	if err != nil {
		code := mapOSError(err)
		if isDeadlineErr(err) {
			code = cmn.Timeout
		}
		if s.transport == netaddr.UDP && code == cmn.Internal {
			code = cmn.TooLarge
		}
		return n, code
	}
	return n, cmn.Ok
}

func (s *SocketStream) Destroy() cmn.ErrorCode {
	if err := s.conn.Close(); err != nil {
		return mapOSError(err)
	}
	return cmn.Ok
}

func (s *SocketStream) LocalAddr() (netaddr.Addr, cmn.ErrorCode) {
	sa, err := s.conn.Getsockname()
	if err != nil {
		return netaddr.Addr{}, mapOSError(err)
	}
	return netaddr.FromSockaddr(sa, s.transport)
}

func (s *SocketStream) PeerAddr() (netaddr.Addr, cmn.ErrorCode) {
	sa, err := s.conn.Getpeername()
	if err != nil {
		return netaddr.Addr{}, mapOSError(err)
	}
	return netaddr.FromSockaddr(sa, s.transport)
}

// fd exposes the raw descriptor for the splice fast path.
func (s *SocketStream) fd() (int, error) {
	var fd int
	rc, err := s.conn.SyscallConn()
	if err != nil {
		return -1, err
	}
	cerr := rc.Control(func(p uintptr) { fd = int(p) })
	if cerr != nil {
		return -1, cerr
	}
	return fd, err
}

func isDeadlineErr(err error) bool {
	type timeout interface{ Timeout() bool }
	te, ok := err.(timeout)
	return ok && te.Timeout()
}
