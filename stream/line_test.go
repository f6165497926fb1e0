package stream

import (
	"os"
	"testing"
	"time"

	"github.com/AgentD/ctools/cmn"
)

func writeThenClose(t *testing.T, data string) *PipeStream {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		w.Write([]byte(data))
		w.Close()
	}()
	rs := NewPipeStream(r, nil)
	rs.SetTimeout(time.Second)
	return rs
}

func TestReadLineDiscardsLFKeepsCR(t *testing.T) {
	rs := writeThenClose(t, "first\r\nsecond\nlast-no-newline")
	defer rs.Destroy()

	line, code := ReadLine(rs, 0)
	if code != cmn.Ok || line != "first\r" {
		t.Fatalf("got %q code=%v", line, code)
	}

	line, code = ReadLine(rs, 0)
	if code != cmn.Ok || line != "second" {
		t.Fatalf("got %q code=%v", line, code)
	}

	line, code = ReadLine(rs, 0)
	if code != cmn.Ok || line != "last-no-newline" {
		t.Fatalf("final partial line: got %q code=%v", line, code)
	}

	_, code = ReadLine(rs, 0)
	if code != cmn.Eof && code != cmn.Closed {
		t.Fatalf("expected Eof/Closed on empty accumulator, got %v", code)
	}
}

func TestReadLineUTF8MultibyteSequence(t *testing.T) {
	rs := writeThenClose(t, "caf\xc3\xa9\n")
	defer rs.Destroy()

	line, code := ReadLine(rs, UTF8)
	if code != cmn.Ok {
		t.Fatalf("code=%v", code)
	}
	if line != "caf\xc3\xa9" {
		t.Fatalf("got %q", line)
	}
}

func TestPrintfWritesExactBytes(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	ws := NewPipeStream(nil, w)
	ws.SetTimeout(time.Second)

	n, code := Printf(ws, "%s=%d", "count", 42)
	ws.Destroy()
	if code != cmn.Ok || n != len("count=42") {
		t.Fatalf("n=%d code=%v", n, code)
	}

	buf := make([]byte, 32)
	got, _ := r.Read(buf)
	if string(buf[:got]) != "count=42" {
		t.Fatalf("got %q", buf[:got])
	}
}
