package stream

import (
	"golang.org/x/sys/unix"

	"github.com/AgentD/ctools/cmn"
)

// SpliceFlags control Splice's fast-path policy.
type SpliceFlags int

const (
	// NoFallback makes an unavailable zero-copy fast path surface as
	// cmn.NotSupported instead of silently falling back to the
	// bounded-buffer copy loop.
	NoFallback SpliceFlags = 1 << iota
)

type fdSource interface {
	fd() (int, error)
}

func rawFd(s Stream) (int, bool) {
	switch v := s.(type) {
	case *PipeStream:
		if v.r != nil {
			return int(v.r.Fd()), true
		}
	case *FileStream:
		return int(v.f.Fd()), true
	case fdSource:
		if n, err := v.fd(); err == nil {
			return n, true
		}
	}
	return -1, false
}

func rawWriteFd(s Stream) (int, bool) {
	switch v := s.(type) {
	case *PipeStream:
		if v.w != nil {
			return int(v.w.Fd()), true
		}
	case *FileStream:
		return int(v.f.Fd()), true
	case fdSource:
		if n, err := v.fd(); err == nil {
			return n, true
		}
	}
	return -1, false
}

// Splice transfers up to count bytes from in to out (§4.I). It tries a
// zero-copy fast path (splice(2)/sendfile(2)) when both streams expose
// kernel descriptors and the pairing supports it; otherwise it falls
// back to a bounded-buffer copy loop unless NoFallback is set, in which
// case the absence of a fast path is reported as cmn.NotSupported.
func Splice(out, in Stream, count int, flags SpliceFlags) (int64, cmn.ErrorCode) {
	if n, code, ok := spliceFastPath(out, in, count); ok {
		return n, code
	}
	if flags&NoFallback != 0 {
		return 0, cmn.NotSupported
	}
	return spliceFallback(out, in, count)
}

// spliceFastPath attempts the kernel zero-copy transfer. ok is false
// when neither side offers a descriptor pairing the kernel can move
// directly, meaning the caller must decide between fallback and
// NotSupported.
func spliceFastPath(out, in Stream, count int) (int64, cmn.ErrorCode, bool) {
	inFd, inOK := rawFd(in)
	outFd, outOK := rawWriteFd(out)
	if !inOK || !outOK {
		return 0, cmn.Ok, false
	}

	inIsPipe := in.Type().Has(TypePipe)
	outIsPipe := out.Type().Has(TypePipe)
	inIsFile := in.Type().Has(TypeFile)

	switch {
	case inIsPipe || outIsPipe:
		n, err := spliceN(inFd, outFd, count)
		if err != nil {
			return 0, mapOSError(err), true
		}
		return n, terminalCode(n, count), true

	case inIsFile && out.Type().Has(TypeSocket):
		var offp *int64
		if out.Type().Has(FlagAppend) {
			cur, code := fileOffset(in)
			if code != cmn.Ok {
				return 0, code, true
			}
			offp = &cur
		}
		n, err := unix.Sendfile(outFd, inFd, offp, count)
		if err != nil {
			return 0, mapOSError(err), true
		}
		return int64(n), terminalCode(int64(n), count), true
	}
	return 0, cmn.Ok, false
}

func fileOffset(s Stream) (int64, cmn.ErrorCode) {
	fs, ok := s.(*FileStream)
	if !ok {
		return 0, cmn.Ok
	}
	return fs.Tell()
}

// spliceN drives splice(2) in a loop since a single call may move fewer
// bytes than requested when one side is a pipe with limited buffer
// capacity.
func spliceN(inFd, outFd, count int) (int64, error) {
	var total int64
	remaining := count
	for remaining > 0 {
		n, err := unix.Splice(inFd, nil, outFd, nil, remaining, unix.SPLICE_F_MOVE|unix.SPLICE_F_NONBLOCK)
		if n > 0 {
			total += n
			remaining -= int(n)
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func terminalCode(n int64, count int) cmn.ErrorCode {
	if n == 0 {
		return cmn.Eof
	}
	return cmn.Ok
}

// spliceFallback copies via a bounded staging buffer. It is explicitly
// not atomic across the read/write pair: a byte successfully read and
// then failing to write is lost, matching the documented tradeoff that
// callers opt out of via NoFallback.
func spliceFallback(out, in Stream, count int) (int64, cmn.ErrorCode) {
	const chunk = 64 * 1024
	buf := make([]byte, chunk)
	var total int64

	for count < 0 || int64(count) > total {
		want := chunk
		if count >= 0 {
			if remaining := int64(count) - total; remaining < int64(chunk) {
				want = int(remaining)
			}
		}
		n, rcode := in.Read(buf[:want])
		if n > 0 {
			wn, wcode := out.Write(buf[:n])
			total += int64(wn)
			if wcode != cmn.Ok {
				return total, wcode
			}
			if wn < n {
				return total, cmn.Internal
			}
		}
		if rcode == cmn.Eof {
			return total, cmn.Eof
		}
		if rcode != cmn.Ok {
			return total, rcode
		}
	}
	return total, cmn.Ok
}
