package codec

import (
	"compress/zlib"
	"io"

	"github.com/valyala/bytebufferpool"
)

// CompressionHint maps to the underlying codec's speed/ratio presets
// (§4.H); the default, zero value, is a balanced preset.
type CompressionHint int

const (
	CompressionDefault CompressionHint = iota
	CompressionFast
	CompressionGood
)

func (h CompressionHint) level() int {
	switch h {
	case CompressionFast:
		return zlib.BestSpeed
	case CompressionGood:
		return zlib.BestCompression
	default:
		return zlib.DefaultCompression
	}
}

// DeflateEncoder wraps the zlib-wrapped LZ77+Huffman algorithm (the raw
// deflate variant is not used, per the wire-format requirement). Each
// Push is written straight through to the zlib writer and flushed with
// Z_SYNC_FLUSH so the bytes become visible to Pull without waiting for
// FlushEOF; FlushEOF instead closes the stream (Z_FINISH), which resolves
// the spec's documented open question in favor of "readable incrementally,
// closed out exactly once at EOF".
type DeflateEncoder struct {
	zw      *zlib.Writer
	out     *bytebufferpool.ByteBuffer
	flushed bool
}

func NewDeflateEncoder(hint CompressionHint) *DeflateEncoder {
	out := bytebufferpool.Get()
	zw, _ := zlib.NewWriterLevel(out, hint.level())
	return &DeflateEncoder{zw: zw, out: out}
}

func (e *DeflateEncoder) Push(p []byte) (int, error) {
	n, err := e.zw.Write(p)
	if err != nil {
		return n, err
	}
	_ = e.zw.Flush() // SYNC_FLUSH: make progress visible before FlushEOF
	return n, nil
}

func (e *DeflateEncoder) Pull(p []byte) (int, error) {
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

func (e *DeflateEncoder) Flush(flags int) error {
	if flags&1 == 0 || e.flushed {
		return nil
	}
	if err := e.zw.Close(); err != nil {
		return err
	}
	e.flushed = true
	return nil
}

// DeflateDecoder is the Inflate side: a zlib reader fed from a growable
// input buffer. Because compress/zlib's Reader wants a complete stream
// header up front, decoding happens in full once FlushEOF arrives —
// matching the spec's guarantee that all remaining bytes are readable
// before Eof is reported, without requiring incremental zlib framing.
type DeflateDecoder struct {
	in      *bytebufferpool.ByteBuffer
	out     *bytebufferpool.ByteBuffer
	flushed bool
	err     error
}

func NewDeflateDecoder() *DeflateDecoder {
	return &DeflateDecoder{in: bytebufferpool.Get(), out: bytebufferpool.Get()}
}

func (d *DeflateDecoder) Push(p []byte) (int, error) {
	d.in.Write(p)
	return len(p), nil
}

func (d *DeflateDecoder) Pull(p []byte) (int, error) {
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

func (d *DeflateDecoder) Flush(flags int) error {
	if flags&1 == 0 || d.flushed {
		return nil
	}
	d.flushed = true

	zr, err := zlib.NewReader(&byteReader{b: d.in.B})
	if err != nil {
		d.err = err
		return nil
	}
	defer zr.Close()
	decoded, err := io.ReadAll(zr)
	if err != nil {
		d.err = err
		return nil
	}
	d.out.Write(decoded)
	return nil
}

type byteReader struct {
	b []byte
	i int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}
