// Package stream implements the polymorphic stream contract (§4.D) and
// its realizations over files, OS pipes, connected sockets, and in-memory
// codec transforms, plus the splice engine, line reader, and printf
// helper that sit on top of the contract.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package stream

import (
	"time"

	"github.com/AgentD/ctools/cmn"
	"github.com/AgentD/ctools/netaddr"
)

// Type tags every stream with what it is, so splice can pick a fast path
// and get_peer_address/get_local_address can refuse to answer on
// non-sockets. OR-able flags record socket transport and file open mode.
type Type uint32

const (
	TypePipe Type = 1 << iota
	TypeFile
	TypeSocket
	TypeTransform
	TypeUser

	// socket transport flags, OR'd with TypeSocket
	FlagUDP
	FlagTCP

	// file open-mode flags, OR'd with TypeFile
	FlagRead
	FlagWrite
	FlagAppend
	FlagExecute
	FlagCreate
	FlagOverwrite
)

func (t Type) Has(flag Type) bool { return t&flag != 0 }

// Stream is the contract every stream realization implements. All
// implementations honor the configured timeout. Ownership is exclusive:
// Destroy is the only way a stream leaves scope, and the object must not
// be touched afterward.
type Stream interface {
	Type() Type

	// Read may block up to the configured timeout. A successful read may
	// return fewer than len(buf) bytes; 0 bytes with cmn.Ok must never
	// occur — implementations return data, Timeout, Eof, or Closed
	// instead.
	Read(buf []byte) (n int, code cmn.ErrorCode)

	// Write may short-write; a short write reports cmn.Ok and the caller
	// must loop. On a packet-oriented socket, TooLarge means the message
	// does not fit in one datagram.
	Write(buf []byte) (n int, code cmn.ErrorCode)

	// SetTimeout bounds every subsequent Read/Write call individually —
	// not cumulatively across calls. 0 disables the timeout.
	SetTimeout(d time.Duration)

	// Destroy flushes pending writes and releases OS resources.
	Destroy() cmn.ErrorCode
}

// PeerAddressable is implemented by stream realizations built over a
// connected or accepted socket.
type PeerAddressable interface {
	LocalAddr() (netaddr.Addr, cmn.ErrorCode)
	PeerAddr() (netaddr.Addr, cmn.ErrorCode)
}

// maxInterruptRetries bounds EINTR-style retries to three attempts (§4.F,
// §7) before the call is reported as Internal.
const maxInterruptRetries = 3
