package codec

import (
	"io"

	lz4 "github.com/pierrec/lz4/v3"
	"github.com/valyala/bytebufferpool"
)

// LZ4Encoder is the supplemental fast in-memory compression transform
// (SPEC_FULL domain stack): it frames output with pierrec/lz4 the way the
// teacher's transport.Stream streams an object reader through an
// lz4.Writer into a scatter-gather buffer before it hits the wire
// (transport/send.go's lz4Stream). Offered alongside Base64/Deflate as a
// third stream.Codec, not a replacement for either.
type LZ4Encoder struct {
	zw      *lz4.Writer
	out     *bytebufferpool.ByteBuffer
	flushed bool
}

func NewLZ4Encoder() *LZ4Encoder {
	out := bytebufferpool.Get()
	zw := lz4.NewWriter(out)
	return &LZ4Encoder{zw: zw, out: out}
}

func (e *LZ4Encoder) Push(p []byte) (int, error) {
	return e.zw.Write(p)
}

func (e *LZ4Encoder) Pull(p []byte) (int, error) {
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

func (e *LZ4Encoder) Flush(flags int) error {
	if flags&1 == 0 || e.flushed {
		return e.zw.Flush()
	}
	if err := e.zw.Close(); err != nil {
		return err
	}
	e.flushed = true
	return nil
}

// LZ4Decoder is the inverse of LZ4Encoder.
type LZ4Decoder struct {
	in      *bytebufferpool.ByteBuffer
	out     *bytebufferpool.ByteBuffer
	flushed bool
	err     error
}

func NewLZ4Decoder() *LZ4Decoder {
	return &LZ4Decoder{in: bytebufferpool.Get(), out: bytebufferpool.Get()}
}

func (d *LZ4Decoder) Push(p []byte) (int, error) {
	d.in.Write(p)
	return len(p), nil
}

func (d *LZ4Decoder) Pull(p []byte) (int, error) {
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

func (d *LZ4Decoder) Flush(flags int) error {
	if flags&1 == 0 || d.flushed {
		return nil
	}
	d.flushed = true
	zr := lz4.NewReader(&byteReader{b: d.in.B})
	decoded, err := io.ReadAll(zr)
	if err != nil {
		d.err = err
		return nil
	}
	d.out.Write(decoded)
	return nil
}
