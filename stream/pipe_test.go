package stream

import (
	"os"
	"testing"
	"time"

	"github.com/AgentD/ctools/cmn"
)

func TestPipeStreamWriteRead(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	rs := NewPipeStream(r, nil)
	ws := NewPipeStream(nil, w)
	rs.SetTimeout(time.Second)
	ws.SetTimeout(time.Second)

	go func() {
		ws.Write([]byte("ping"))
		ws.Destroy()
	}()

	buf := make([]byte, 16)
	n, code := rs.Read(buf)
	if code != cmn.Ok || string(buf[:n]) != "ping" {
		t.Fatalf("n=%d code=%v buf=%q", n, code, buf[:n])
	}
	rs.Destroy()
}

func TestPipeStreamReadTimeout(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	rs := NewPipeStream(r, nil)
	rs.SetTimeout(50 * time.Millisecond)

	buf := make([]byte, 16)
	_, code := rs.Read(buf)
	if code != cmn.Timeout {
		t.Fatalf("expected Timeout, got %v", code)
	}
	rs.Destroy()
}

func TestPipeStreamWriteOnlyReadRejected(t *testing.T) {
	_, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	ws := NewPipeStream(nil, w)
	if _, code := ws.Read(make([]byte, 1)); code != cmn.BadArg {
		t.Fatalf("expected BadArg, got %v", code)
	}
	ws.Destroy()
}

func TestPipeStreamClosedPeerReportsClosed(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	rs := NewPipeStream(r, nil)
	rs.SetTimeout(time.Second)

	buf := make([]byte, 16)
	n, code := rs.Read(buf)
	if code != cmn.Eof && code != cmn.Closed {
		t.Fatalf("expected Eof/Closed, got n=%d code=%v", n, code)
	}
	rs.Destroy()
}
