//go:build linux || darwin

package netaddr

import (
	"golang.org/x/sys/unix"

	"github.com/AgentD/ctools/cmn"
)

// ToSockaddr encodes the address as the platform sockaddr the raw socket
// syscalls expect: IPv4 port and address network-order, IPv6 16-octet
// address reconstructed from the reversed host-order word layout. This is
// the exact inverse of FromSockaddr.
func (a Addr) ToSockaddr() (unix.Sockaddr, cmn.ErrorCode) {
	switch a.Family {
	case IPv4:
		sa := &unix.SockaddrInet4{Port: int(a.Port)}
		sa.Addr[0] = byte(a.IPv4Addr >> 24)
		sa.Addr[1] = byte(a.IPv4Addr >> 16)
		sa.Addr[2] = byte(a.IPv4Addr >> 8)
		sa.Addr[3] = byte(a.IPv4Addr)
		return sa, cmn.Ok
	case IPv6:
		sa := &unix.SockaddrInet6{Port: int(a.Port)}
		for w := 0; w < 8; w++ {
			octIdx := (7 - w) * 2
			be := a.IPv6Words[w]
			sa.Addr[octIdx] = byte(be >> 8)
			sa.Addr[octIdx+1] = byte(be)
		}
		return sa, cmn.Ok
	default:
		return nil, cmn.BadNetAddr
	}
}

// FromSockaddr decodes a platform sockaddr into an Addr, the exact
// inverse of ToSockaddr.
func FromSockaddr(sa unix.Sockaddr, tr Transport) (Addr, cmn.ErrorCode) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		a := Addr{Family: IPv4, Transport: tr, Port: uint16(v.Port)}
		a.IPv4Addr = uint32(v.Addr[0])<<24 | uint32(v.Addr[1])<<16 | uint32(v.Addr[2])<<8 | uint32(v.Addr[3])
		return a, cmn.Ok
	case *unix.SockaddrInet6:
		a := Addr{Family: IPv6, Transport: tr, Port: uint16(v.Port)}
		for w := 0; w < 8; w++ {
			octIdx := (7 - w) * 2
			a.IPv6Words[w] = uint16(v.Addr[octIdx])<<8 | uint16(v.Addr[octIdx+1])
		}
		return a, cmn.Ok
	default:
		return Addr{}, cmn.BadNetAddr
	}
}
