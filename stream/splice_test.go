package stream

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/stream/codec"
)

// A TransformStream source and a collectingStream sink have no kernel
// descriptor, forcing Splice onto the bounded-buffer fallback path.
func TestSpliceFallbackBetweenTransforms(t *testing.T) {
	src := NewTransformStream(codec.NewBase64Encoder(codec.Base64Standard))
	src.Write([]byte("splice payload"))
	src.Flush(FlushEOF)

	var collected bytes.Buffer
	sink := &collectingStream{buf: &collected}

	n, code := Splice(sink, src, -1, 0)
	if code != cmn.Eof {
		t.Fatalf("expected terminal Eof, got %v (n=%d)", code, n)
	}
	if collected.String() != "c3BsaWNlIHBheWxvYWQ=" {
		t.Fatalf("got %q", collected.String())
	}
}

func TestSpliceNoFallbackReportsNotSupported(t *testing.T) {
	src := NewTransformStream(codec.NewBase64Encoder(codec.Base64Standard))
	sink := &collectingStream{buf: &bytes.Buffer{}}

	_, code := Splice(sink, src, 16, NoFallback)
	if code != cmn.NotSupported {
		t.Fatalf("expected NotSupported, got %v", code)
	}
}

func TestSplicePipeToPipeFastPath(t *testing.T) {
	inR, inW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	in := NewPipeStream(inR, nil)
	out := NewPipeStream(nil, outW)
	in.SetTimeout(time.Second)
	out.SetTimeout(time.Second)

	payload := []byte("zero-copy-candidate")
	go func() {
		inW.Write(payload)
		inW.Close()
	}()

	n, code := Splice(out, in, len(payload), 0)
	out.Destroy()
	in.Destroy()

	if code != cmn.Ok && code != cmn.Eof {
		t.Fatalf("splice failed: %v", code)
	}
	if n == 0 {
		t.Fatalf("expected some bytes transferred")
	}

	got := make([]byte, len(payload))
	outR.SetReadDeadline(time.Now().Add(time.Second))
	total := 0
	for total < int(n) {
		m, err := outR.Read(got[total:int(n)])
		if err != nil {
			break
		}
		total += m
	}
	if !bytes.Equal(got[:total], payload[:total]) {
		t.Fatalf("got %q want prefix of %q", got[:total], payload)
	}
}

type collectingStream struct {
	buf *bytes.Buffer
}

func (c *collectingStream) Type() Type                            { return TypeUser }
func (c *collectingStream) SetTimeout(time.Duration)               {}
func (c *collectingStream) Destroy() cmn.ErrorCode                 { return cmn.Ok }
func (c *collectingStream) Read(buf []byte) (int, cmn.ErrorCode)   { return 0, cmn.Eof }
func (c *collectingStream) Write(buf []byte) (int, cmn.ErrorCode) {
	n, _ := c.buf.Write(buf)
	return n, cmn.Ok
}
