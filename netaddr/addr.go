// Package netaddr implements the family-tagged L3/L4 address value (§4.C)
// and hostname/literal resolution (§4.K).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package netaddr

import (
	"fmt"
	"net"

	"github.com/AgentD/ctools/cmn"
)

type Family uint8

const (
	IPv4 Family = iota
	IPv6
)

type Transport uint8

const (
	TCP Transport = iota
	UDP
)

// Addr is the family-tagged L3/L4 address value. Broadcast, loopback, and
// "any" are not distinct types — callers set the fields themselves.
//
// IPv6Words is stored host-order, low-index-least-significant: Words[0]
// holds the least-significant 16 bits of the address. This is the
// opposite of the usual big-endian wire layout and must be preserved
// consistently at every interface boundary (§ design notes).
type Addr struct {
	Family    Family
	Transport Transport
	Port      uint16
	IPv4Addr  uint32    // host order, valid iff Family == IPv4
	IPv6Words [8]uint16 // host order, reversed index order, valid iff Family == IPv6
}

func (a Addr) String() string {
	ip := a.IP()
	return fmt.Sprintf("%s:%d", ip, a.Port)
}

// IP renders the address as a net.IP for interop with the standard
// library (net.Dial, net.ListenTCP, ...).
func (a Addr) IP() net.IP {
	switch a.Family {
	case IPv4:
		ip := make(net.IP, 4)
		ip[0] = byte(a.IPv4Addr >> 24)
		ip[1] = byte(a.IPv4Addr >> 16)
		ip[2] = byte(a.IPv4Addr >> 8)
		ip[3] = byte(a.IPv4Addr)
		return ip
	case IPv6:
		ip := make(net.IP, 16)
		for w := 0; w < 8; w++ {
			// word 0 is least-significant => it maps to the last two
			// octets of the 16-byte big-endian wire representation.
			be := a.IPv6Words[w]
			octIdx := (7 - w) * 2
			ip[octIdx] = byte(be >> 8)
			ip[octIdx+1] = byte(be)
		}
		return ip
	default:
		return nil
	}
}

// FromIP builds an Addr from a net.IP + port + transport, choosing the
// family from the IP's shape. Returns BadNetAddr if ip is neither a valid
// 4- nor 16-byte address. An IPv4-mapped IPv6 address (::ffff:a.b.c.d)
// yields an IPv4 Addr: net.IP holds it in the same bytes as a.b.c.d.
func FromIP(ip net.IP, port uint16, tr Transport) (Addr, cmn.ErrorCode) {
	if v4 := ip.To4(); v4 != nil {
		a := Addr{Family: IPv4, Transport: tr, Port: port}
		a.IPv4Addr = uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
		return a, cmn.Ok
	}
	if v6 := ip.To16(); v6 != nil {
		a := Addr{Family: IPv6, Transport: tr, Port: port}
		for w := 0; w < 8; w++ {
			octIdx := (7 - w) * 2
			a.IPv6Words[w] = uint16(v6[octIdx])<<8 | uint16(v6[octIdx+1])
		}
		return a, cmn.Ok
	}
	return Addr{}, cmn.BadNetAddr
}

// Equal compares two addresses field by field (not semantic equivalence
// — e.g. an IPv4-mapped IPv6 address does not Equal its IPv4 form).
func (a Addr) Equal(b Addr) bool {
	if a.Family != b.Family || a.Transport != b.Transport || a.Port != b.Port {
		return false
	}
	if a.Family == IPv4 {
		return a.IPv4Addr == b.IPv4Addr
	}
	return a.IPv6Words == b.IPv6Words
}

// IsIPv4MappedIPv6 reports whether a is an IPv6 address in the
// ::ffff:0:0/96 range, used by netsvc's IPv6-only enforcement.
func (a Addr) IsIPv4MappedIPv6() bool {
	if a.Family != IPv6 {
		return false
	}
	return a.IPv6Words[7] == 0 && a.IPv6Words[6] == 0 && a.IPv6Words[5] == 0 &&
		a.IPv6Words[4] == 0 && a.IPv6Words[3] == 0 && a.IPv6Words[2] == 0xffff
}
