// ctoolsecho is a minimal line-echo server demonstrating netsvc.TCPServer
// together with stream.ReadLine/Printf: it accepts connections, reads one
// line at a time, and writes the same line back, closing the connection
// once the peer goes quiet. It is the end-to-end scenario from the TCP
// transport walkthrough turned into a runnable binary.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/netaddr"
	"github.com/AgentD/ctools/netsvc"
	"github.com/AgentD/ctools/stream"
)

func main() {
	addr := flag.String("addr", "127.0.0.1", "address to listen on")
	port := flag.Uint("port", 7, "port to listen on")
	backlog := flag.Int("backlog", 16, "listen backlog")
	idle := flag.Duration("idle-timeout", 2*time.Minute, "close a connection after this much inactivity (0 disables)")
	flag.Parse()

	local := resolveOrDie(*addr, uint16(*port))

	srv, code := netsvc.ListenTCP(local, *backlog, 0)
	if code != cmn.Ok {
		glog.Fatalf("listen on %s: %v", local, code)
	}
	defer srv.Destroy()

	if *idle > 0 {
		srv.EnableIdleSweep(*idle)
	}

	bound, _ := srv.LocalAddr()
	glog.Infof("ctoolsecho listening on %s", bound)

	for {
		conn, code := srv.Accept(0)
		if code != cmn.Ok {
			glog.Errorf("accept: %v", code)
			continue
		}
		go serve(conn)
	}
}

func serve(conn stream.Stream) {
	defer conn.Destroy()

	for {
		line, code := stream.ReadLine(conn, stream.UTF8)
		if code != cmn.Ok {
			if code != cmn.Closed && code != cmn.Eof {
				glog.Warningf("read line: %v", code)
			}
			return
		}
		if _, code := stream.Printf(conn, "%s\n", line); code != cmn.Ok {
			glog.Warningf("write line: %v", code)
			return
		}
	}
}

func resolveOrDie(hostname string, port uint16) netaddr.Addr {
	var out [1]netaddr.Addr
	n, code := netaddr.Resolve(context.Background(), hostname, netaddr.TCP, netaddr.HintAny, out[:])
	if code != cmn.Ok || n == 0 {
		glog.Fatalf("resolve %s: %v", hostname, code)
	}
	out[0].Port = port
	return out[0]
}
