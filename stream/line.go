package stream

import (
	"fmt"

	"github.com/AgentD/ctools/cmn"
)

// LineFlags controls ReadLine's byte interpretation.
type LineFlags int

const (
	// UTF8 treats the source as UTF-8: on a lead byte, the matching
	// continuation bytes are pulled in one call and the whole code
	// point is appended. Without it, bytes are Latin-1 and promoted to
	// UTF-8 on append.
	UTF8 LineFlags = 1 << iota
)

func utf8ContinuationCount(lead byte) int {
	switch {
	case lead&0x80 == 0x00:
		return 0
	case lead&0xE0 == 0xC0:
		return 1
	case lead&0xF0 == 0xE0:
		return 2
	case lead&0xF8 == 0xF0:
		return 3
	default:
		return 0
	}
}

// ReadLine builds a string one byte at a time up to LF (§4.J). The LF is
// discarded; a preceding CR is kept verbatim. End-of-stream with a
// non-empty accumulator is a successful last line; end-of-stream with
// nothing read propagates the underlying Eof/Closed code.
func ReadLine(s Stream, flags LineFlags) (string, cmn.ErrorCode) {
	var out []byte
	one := make([]byte, 1)

	for {
		n, code := s.Read(one)
		if n == 0 {
			if code == cmn.Ok {
				continue
			}
			if len(out) > 0 {
				return string(out), cmn.Ok
			}
			return "", code
		}

		b := one[0]
		if b == '\n' {
			return string(out), cmn.Ok
		}

		if flags&UTF8 != 0 {
			if cont := utf8ContinuationCount(b); cont > 0 {
				seq := make([]byte, cont)
				if code := readFull(s, seq); code != cmn.Ok {
					if len(out) > 0 {
						out = append(out, b)
						return string(out), cmn.Ok
					}
					return "", code
				}
				out = append(out, b)
				out = append(out, seq...)
				continue
			}
			out = append(out, b)
			continue
		}

		// Latin-1: promote to UTF-8 on append.
		out = append(out, string(rune(b))...)
	}
}

func readFull(s Stream, buf []byte) cmn.ErrorCode {
	got := 0
	for got < len(buf) {
		n, code := s.Read(buf[got:])
		got += n
		if code != cmn.Ok && code != cmn.Timeout {
			return code
		}
	}
	return cmn.Ok
}

// Printf renders format/args into a heap buffer of the exact required
// size, then writes it with a single call, looping on short writes
// (§4.J). A short write that leaves bytes unsent is reported as
// Internal — the contract forbids losing formatted output silently.
func Printf(s Stream, format string, args ...interface{}) (int, cmn.ErrorCode) {
	buf := []byte(fmt.Sprintf(format, args...))
	total := 0
	for total < len(buf) {
		n, code := s.Write(buf[total:])
		total += n
		if code != cmn.Ok {
			return total, code
		}
		if n == 0 {
			return total, cmn.Internal
		}
	}
	return total, cmn.Ok
}
