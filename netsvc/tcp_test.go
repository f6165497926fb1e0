package netsvc

import (
	"context"
	"testing"
	"time"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/netaddr"
	"github.com/AgentD/ctools/stream"
)

func TestTCPEchoEndToEnd(t *testing.T) {
	local := netaddr.Addr{Family: netaddr.IPv4, Transport: netaddr.TCP, IPv4Addr: 0x7f000001, Port: 0}

	srv, code := ListenTCP(local, 4, 0)
	if code != cmn.Ok {
		t.Fatalf("listen: %v", code)
	}
	defer srv.Destroy()

	bound, code := srv.LocalAddr()
	if code != cmn.Ok {
		t.Fatalf("local addr: %v", code)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, code := srv.Accept(5 * time.Second)
		if code != cmn.Ok {
			t.Errorf("accept: %v", code)
			return
		}
		conn.SetTimeout(5 * time.Second)
		line, code := stream.ReadLine(conn, stream.UTF8)
		if code != cmn.Ok || line != "Hello" {
			t.Errorf("server read: line=%q code=%v", line, code)
		}
		stream.Printf(conn, "%s\n", line)
		conn.Destroy()
	}()

	client, code := stream.DialTCP(context.Background(), netaddr.Addr{Family: netaddr.IPv4, Transport: netaddr.TCP, IPv4Addr: bound.IPv4Addr, Port: bound.Port})
	if code != cmn.Ok {
		t.Fatalf("dial: %v", code)
	}
	client.SetTimeout(5 * time.Second)
	if _, code := client.Write([]byte("Hello\n")); code != cmn.Ok {
		t.Fatalf("client write: %v", code)
	}

	line, code := stream.ReadLine(client, stream.UTF8)
	if code != cmn.Ok || line != "Hello" {
		t.Fatalf("client read: line=%q code=%v", line, code)
	}
	client.Destroy()
	<-done
}

func TestTCPIdleSweepClosesStaleConnection(t *testing.T) {
	local := netaddr.Addr{Family: netaddr.IPv4, Transport: netaddr.TCP, IPv4Addr: 0x7f000001, Port: 0}

	srv, code := ListenTCP(local, 4, 0)
	if code != cmn.Ok {
		t.Fatalf("listen: %v", code)
	}
	defer srv.Destroy()
	srv.EnableIdleSweep(10 * time.Millisecond)

	bound, code := srv.LocalAddr()
	if code != cmn.Ok {
		t.Fatalf("local addr: %v", code)
	}

	accepted := make(chan stream.Stream, 1)
	go func() {
		conn, code := srv.Accept(5 * time.Second)
		if code == cmn.Ok {
			accepted <- conn
		}
	}()

	client, code := stream.DialTCP(context.Background(), netaddr.Addr{Family: netaddr.IPv4, Transport: netaddr.TCP, IPv4Addr: bound.IPv4Addr, Port: bound.Port})
	if code != cmn.Ok {
		t.Fatalf("dial: %v", code)
	}
	defer client.Destroy()

	select {
	case <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("server never accepted")
	}

	// Sweep interval is fixed (sweepInterval), so directly exercise the
	// scan instead of waiting out its timer.
	time.Sleep(20 * time.Millisecond)
	srv.sweepIdle()
	srv.mu.Lock()
	remaining := len(srv.tracked)
	srv.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected idle connection to be swept, %d still tracked", remaining)
	}
}
