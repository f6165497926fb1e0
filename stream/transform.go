package stream

import (
	"io"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/AgentD/ctools/cmn"
)

// FlushEOF tells a Codec that no more input is coming: the codec may emit
// trailing bytes and, once those are drained, Pull reports io.EOF.
const FlushEOF = 1

// Codec is the in-memory transform a TransformStream wraps (§4.H, §6
// "Transform contract"). Push consumes input bytes (appending to the
// codec's own staging), Pull drains already-encoded/decoded output, and
// Flush(flags) signals end-of-input when FlushEOF is set.
type Codec interface {
	Push(p []byte) (int, error)
	Pull(p []byte) (int, error)
	Flush(flags int) error
}

// TransformStream is a Stream whose write side feeds a Codec and whose
// read side drains it — writing on one end emerges encoded (or decoded)
// on the other.
type TransformStream struct {
	mu      sync.Mutex
	codec   Codec
	timeout time.Duration
	pending *bytebufferpool.ByteBuffer // taken from the pool at construction, returned by Destroy; Read does not use it
}

func NewTransformStream(c Codec) *TransformStream {
	return &TransformStream{codec: c, pending: bytebufferpool.Get()}
}

func (t *TransformStream) Type() Type { return TypeTransform }

func (t *TransformStream) SetTimeout(d time.Duration) {
	t.mu.Lock()
	t.timeout = d
	t.mu.Unlock()
}

func (t *TransformStream) Write(buf []byte) (int, cmn.ErrorCode) {
	n, err := t.codec.Push(buf)
	if err != nil {
		return n, cmn.Internal
	}
	return n, cmn.Ok
}

func (t *TransformStream) Read(buf []byte) (int, cmn.ErrorCode) {
	n, err := t.codec.Pull(buf)
	if err != nil {
		if err == io.EOF {
			if n > 0 {
				return n, cmn.Ok
			}
			return 0, cmn.Eof
		}
		return n, cmn.Internal
	}
	if n == 0 {
		return 0, cmn.Timeout
	}
	return n, cmn.Ok
}

// Flush signals the codec per §4.H; FlushEOF eventually makes Read report
// cmn.Eof once all trailing bytes have been delivered.
func (t *TransformStream) Flush(flags int) cmn.ErrorCode {
	if err := t.codec.Flush(flags); err != nil {
		return cmn.Internal
	}
	return cmn.Ok
}

func (t *TransformStream) Destroy() cmn.ErrorCode {
	bytebufferpool.Put(t.pending)
	return cmn.Ok
}
