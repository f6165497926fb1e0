package stream

import (
	"testing"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/stream/codec"
)

func TestTransformStreamBase64HelloWorld(t *testing.T) {
	ts := NewTransformStream(codec.NewBase64Encoder(codec.Base64Standard))

	if _, code := ts.Write([]byte("Hello, World!")); code != cmn.Ok {
		t.Fatalf("write: %v", code)
	}
	if code := ts.Flush(FlushEOF); code != cmn.Ok {
		t.Fatalf("flush: %v", code)
	}

	var out []byte
	buf := make([]byte, 8)
	for {
		n, code := ts.Read(buf)
		out = append(out, buf[:n]...)
		if code == cmn.Eof {
			break
		}
		if code != cmn.Ok {
			t.Fatalf("read: %v", code)
		}
	}

	if string(out) != "SGVsbG8sIFdvcmxkIQ==" {
		t.Fatalf("got %q", out)
	}
	ts.Destroy()
}
