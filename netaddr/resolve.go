package netaddr

import (
	"context"
	"net"
	"strings"

	"github.com/AgentD/ctools/cmn"
)

// Hint restricts which address families Resolve is allowed to return.
type Hint uint8

const (
	HintAny Hint = iota
	HintIPv4Only
	HintIPv6Only
)

func (h Hint) allows(f Family) bool {
	switch h {
	case HintIPv4Only:
		return f == IPv4
	case HintIPv6Only:
		return f == IPv6
	default:
		return true
	}
}

// Resolve implements §4.K / §4.C name resolution:
//  1. a dotted-quad IPv4 literal (if the hint allows IPv4) yields exactly
//     one IPv4 address;
//  2. an IPv6 literal, optionally with a trailing IPv4 tail for mapped
//     addresses (if the hint allows IPv6), yields exactly one IPv6
//     address;
//  3. otherwise the platform resolver is consulted, results are
//     deduplicated by (family, bits) and filtered by hint, and up to
//     len(out) matches are returned.
//
// Returns the number of entries written into out (out is not resized).
func Resolve(ctx context.Context, hostname string, tr Transport, hint Hint, out []Addr) (int, cmn.ErrorCode) {
	if len(out) == 0 {
		return 0, cmn.BadArg
	}

	if ip := net.ParseIP(hostname); ip != nil {
		addr, code := FromIP(ip, 0, tr)
		if code != cmn.Ok {
			return 0, code
		}
		if addr.Family == IPv4 && strings.Contains(hostname, ":") {
			// IPv6 literal with an IPv4 tail: keep it IPv6 (FromIP cannot
			// tell it apart from the plain IPv4 form).
			v6 := ip.To16()
			addr = Addr{Family: IPv6, Transport: tr}
			for w := 0; w < 8; w++ {
				octIdx := (7 - w) * 2
				addr.IPv6Words[w] = uint16(v6[octIdx])<<8 | uint16(v6[octIdx+1])
			}
		}
		if !hint.allows(addr.Family) {
			return 0, cmn.BadNetAddr
		}
		out[0] = addr
		return 1, cmn.Ok
	}

	resolver := net.DefaultResolver
	ipaddrs, err := resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return 0, classifyLookupErr(err)
	}

	seen := make(map[string]struct{}, len(ipaddrs))
	n := 0
	for _, ipa := range ipaddrs {
		if n >= len(out) {
			break
		}
		addr, code := FromIP(ipa.IP, 0, tr)
		if code != cmn.Ok || !hint.allows(addr.Family) {
			continue
		}
		key := dedupKey(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out[n] = addr
		n++
	}
	if n == 0 {
		return 0, cmn.HostUnreachable
	}
	return n, cmn.Ok
}

func dedupKey(a Addr) string {
	if a.Family == IPv4 {
		return string([]byte{byte(a.Family), byte(a.IPv4Addr >> 24), byte(a.IPv4Addr >> 16), byte(a.IPv4Addr >> 8), byte(a.IPv4Addr)})
	}
	b := make([]byte, 1+16)
	b[0] = byte(a.Family)
	for w := 0; w < 8; w++ {
		b[1+w*2] = byte(a.IPv6Words[w] >> 8)
		b[1+w*2+1] = byte(a.IPv6Words[w])
	}
	return string(b)
}

func classifyLookupErr(err error) cmn.ErrorCode {
	if dnsErr, ok := err.(*net.DNSError); ok {
		if dnsErr.IsNotFound {
			return cmn.HostUnreachable
		}
		if dnsErr.IsTimeout {
			return cmn.Timeout
		}
	}
	return cmn.HostUnreachable
}
