package netsvc

import (
	"context"
	"sync"
	"time"

	mdsocket "github.com/mdlayher/socket"
	"golang.org/x/sys/unix"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/netaddr"
)

// PacketServer wraps a UDP socket that may be bound, connected, or both
// (§4.M). At least one of local/remote must be given to NewPacketServer;
// bind happens when local is set, connect when remote is set.
type PacketServer struct {
	mu        sync.Mutex
	conn      *mdsocket.Conn
	connected bool
	flags     ServerFlags
	timeout   time.Duration
}

// NewPacketServer constructs the socket, binding to local (if non-nil)
// and connecting to remote (if non-nil). If both are given, their
// families must agree.
func NewPacketServer(local, remote *netaddr.Addr, flags ServerFlags) (*PacketServer, cmn.ErrorCode) {
	if local == nil && remote == nil {
		return nil, cmn.BadArg
	}
	if local != nil && remote != nil && local.Family != remote.Family {
		return nil, cmn.BadNetAddr
	}

	fam := netaddr.IPv4
	switch {
	case local != nil:
		fam = local.Family
	case remote != nil:
		fam = remote.Family
	}
	domain := unix.AF_INET
	if fam == netaddr.IPv6 {
		domain = unix.AF_INET6
	}

	conn, err := mdsocket.Socket(domain, unix.SOCK_DGRAM, unix.IPPROTO_UDP, "ctools-udp", nil)
	if err != nil {
		return nil, mapOSError(err)
	}

	if flags&IPv6Only != 0 && domain == unix.AF_INET6 {
		if rc, rcErr := conn.SyscallConn(); rcErr == nil {
			rc.Control(func(fd uintptr) {
				unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1)
			})
		}
	}

	if local != nil {
		sa, code := local.ToSockaddr()
		if code != cmn.Ok {
			conn.Close()
			return nil, code
		}
		if err := conn.Bind(sa); err != nil {
			conn.Close()
			return nil, mapOSError(err)
		}
	}

	ps := &PacketServer{conn: conn, flags: flags}
	if remote != nil {
		sa, code := remote.ToSockaddr()
		if code != cmn.Ok {
			conn.Close()
			return nil, code
		}
		if _, err := conn.Connect(context.Background(), sa); err != nil {
			conn.Close()
			return nil, mapOSError(err)
		}
		ps.connected = true
	}
	return ps, cmn.Ok
}

func (p *PacketServer) SetTimeout(d time.Duration) {
	p.mu.Lock()
	p.timeout = d
	p.mu.Unlock()
}

func (p *PacketServer) deadline() time.Time {
	p.mu.Lock()
	d := p.timeout
	p.mu.Unlock()
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

// Send writes buf as a single datagram. addr is required on an
// unconnected socket and ignored on a connected one.
func (p *PacketServer) Send(buf []byte, addr *netaddr.Addr) (int, cmn.ErrorCode) {
	_ = p.conn.SetWriteDeadline(p.deadline())

	if p.connected {
		n, err := retrySyscall(func() (int, error) { return p.conn.Write(buf) })
		if err != nil {
			return n, classifySendErr(err)
		}
		return n, cmn.Ok
	}
	if addr == nil {
		return 0, cmn.BadArg
	}
	sa, code := addr.ToSockaddr()
	if code != cmn.Ok {
		return 0, code
	}
	n, err := retrySyscall(func() (int, error) {
		if err := p.conn.Sendto(buf, 0, sa); err != nil {
			return 0, err
		}
		return len(buf), nil
	})
	if err != nil {
		return n, classifySendErr(err)
	}
	return n, cmn.Ok
}

// Receive reads one datagram into buf. When the socket is unconnected
// and addrOut is non-nil, the sender's address is stored there.
func (p *PacketServer) Receive(buf []byte, addrOut *netaddr.Addr) (int, cmn.ErrorCode) {
	_ = p.conn.SetReadDeadline(p.deadline())

	if p.connected {
		n, err := retrySyscall(func() (int, error) { return p.conn.Read(buf) })
		if err != nil {
			return n, classifyRecvErr(err)
		}
		return n, cmn.Ok
	}

	var n int
	var sa unix.Sockaddr
	_, err := retrySyscall(func() (int, error) {
		nn, from, rerr := p.conn.Recvfrom(buf, 0)
		if rerr != nil {
			return 0, rerr
		}
		n = nn
		sa = from
		return nn, nil
	})
	if err != nil {
		return n, classifyRecvErr(err)
	}
	if addrOut != nil && sa != nil {
		if a, code := netaddr.FromSockaddr(sa, netaddr.UDP); code == cmn.Ok {
			*addrOut = a
		}
	}
	return n, cmn.Ok
}

func classifySendErr(err error) cmn.ErrorCode {
	if isDeadlineErr(err) {
		return cmn.Timeout
	}
	return mapOSError(err)
}

func classifyRecvErr(err error) cmn.ErrorCode {
	if isDeadlineErr(err) {
		return cmn.Timeout
	}
	return mapOSError(err)
}

func isDeadlineErr(err error) bool {
	type timeout interface{ Timeout() bool }
	te, ok := err.(timeout)
	return ok && te.Timeout()
}

// retrySyscall retries an EINTR-interrupted syscall up to three times
// (§4.M, §7).
func retrySyscall(fn func() (int, error)) (int, error) {
	const maxRetries = 3
	for attempt := 0; attempt < maxRetries+1; attempt++ {
		n, err := fn()
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
	return 0, unix.EINTR
}

func (p *PacketServer) Destroy() cmn.ErrorCode {
	if err := p.conn.Close(); err != nil {
		return mapOSError(err)
	}
	return cmn.Ok
}

func (p *PacketServer) LocalAddr() (netaddr.Addr, cmn.ErrorCode) {
	sa, err := p.conn.Getsockname()
	if err != nil {
		return netaddr.Addr{}, mapOSError(err)
	}
	return netaddr.FromSockaddr(sa, netaddr.UDP)
}
