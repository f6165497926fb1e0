// Package codec provides the Transform implementations plugged into a
// stream.TransformStream: Base64 (standard library, §4.H), zlib-wrapped
// Deflate (standard library, §4.H), and an additional LZ4-framed
// compression transform (pierrec/lz4, supplementing the spec per
// SPEC_FULL's domain stack). Base64 and Deflate are themselves
// out-of-scope collaborators per §1 ("treated as pure byte-in/byte-out
// functions") — this package is the thin adapter that lets a Codec speak
// the stream.Codec contract, not a reimplementation of the algorithms.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"

	"github.com/valyala/bytebufferpool"
)

// Base64Alphabet selects the 6-bit alphabet (§4.H); the padding symbol is
// the same ('=') in both.
type Base64Alphabet int

const (
	Base64Standard Base64Alphabet = iota
	Base64URLSafe
)

func (a Base64Alphabet) encoding() *base64.Encoding {
	if a == Base64URLSafe {
		return base64.URLEncoding
	}
	return base64.StdEncoding
}

// Base64DecodeFlags controls decoder leniency.
type Base64DecodeFlags int

const (
	Base64IgnoreWhitespace Base64DecodeFlags = 1 << iota
	Base64IgnoreGarbage
)

// Base64Encoder reads input triples and emits four-symbol groups,
// padding the final group to a 4-symbol boundary.
type Base64Encoder struct {
	enc     *base64.Encoding
	carry   [2]byte
	carryN  int
	out     *bytebufferpool.ByteBuffer
	flushed bool
}

func NewBase64Encoder(alphabet Base64Alphabet) *Base64Encoder {
	return &Base64Encoder{enc: alphabet.encoding(), out: bytebufferpool.Get()}
}

func (e *Base64Encoder) Push(p []byte) (int, error) {
	total := len(p)
	if e.carryN > 0 {
		p = append(append([]byte{}, e.carry[:e.carryN]...), p...)
		e.carryN = 0
	}
	whole := len(p) - len(p)%3
	if whole > 0 {
		buf := make([]byte, e.enc.EncodedLen(whole))
		e.enc.Encode(buf, p[:whole])
		e.out.Write(buf)
	}
	rem := p[whole:]
	e.carryN = copy(e.carry[:], rem)
	return total, nil
}

func (e *Base64Encoder) Pull(p []byte) (int, error) {
	if e.out.Len() == 0 {
		if e.flushed {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(p, e.out.B)
	e.out.B = e.out.B[n:]
	return n, nil
}

func (e *Base64Encoder) Flush(flags int) error {
	if flags&1 != 0 && !e.flushed { // FlushEOF
		if e.carryN > 0 {
			buf := make([]byte, e.enc.EncodedLen(e.carryN))
			e.enc.Encode(buf, e.carry[:e.carryN])
			e.out.Write(buf)
			e.carryN = 0
		}
		e.flushed = true
	}
	return nil
}

// Base64Decoder ignores whitespace by default; IgnoreGarbage additionally
// skips any non-alphabet byte. A stray '=' inside the stream is an error;
// a stream whose alphabet-symbol length is 1 mod 4 is malformed.
type Base64Decoder struct {
	enc     *base64.Encoding
	flags   Base64DecodeFlags
	in      *bytebufferpool.ByteBuffer
	out     *bytebufferpool.ByteBuffer
	flushed bool
	err     error
}

func NewBase64Decoder(alphabet Base64Alphabet, flags Base64DecodeFlags) *Base64Decoder {
	return &Base64Decoder{enc: alphabet.encoding(), flags: flags, in: bytebufferpool.Get(), out: bytebufferpool.Get()}
}

func (d *Base64Decoder) Push(p []byte) (int, error) {
	d.in.Write(p)
	return len(p), nil
}

func (d *Base64Decoder) Pull(p []byte) (int, error) {
	if d.out.Len() == 0 {
		if d.err != nil {
			return 0, d.err
		}
		if d.flushed {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(p, d.out.B)
	d.out.B = d.out.B[n:]
	return n, nil
}

func (d *Base64Decoder) Flush(flags int) error {
	if flags&1 == 0 || d.flushed {
		return nil
	}
	d.flushed = true

	cleaned := make([]byte, 0, d.in.Len())
	for _, b := range d.in.B {
		switch {
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			if d.flags&Base64IgnoreWhitespace != 0 || true { // whitespace ignored by default
				continue
			}
		case b == '=':
			cleaned = append(cleaned, b)
		default:
			if isAlphabetByte(d.enc, b) {
				cleaned = append(cleaned, b)
			} else if d.flags&Base64IgnoreGarbage != 0 {
				continue
			} else {
				d.err = errors.New("codec: invalid base64 byte")
				return nil
			}
		}
	}

	if len(cleaned)%4 == 1 {
		d.err = errors.New("codec: malformed base64 length")
		return nil
	}
	// reject a stray '=' that isn't part of the final group's padding
	if idx := bytes.IndexByte(cleaned, '='); idx >= 0 && idx < len(cleaned)-2 {
		d.err = errors.New("codec: stray padding byte")
		return nil
	}

	decoded := make([]byte, d.enc.DecodedLen(len(cleaned)))
	n, err := d.enc.Decode(decoded, cleaned)
	if err != nil {
		d.err = err
		return nil
	}
	d.out.Write(decoded[:n])
	return nil
}

func isAlphabetByte(enc *base64.Encoding, b byte) bool {
	return bytes.IndexByte([]byte(alphabetOf(enc)), b) >= 0
}

func alphabetOf(enc *base64.Encoding) string {
	if enc == base64.URLEncoding {
		return "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	}
	return "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
}

