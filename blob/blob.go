// Package blob implements the owned contiguous byte buffer (§4.B): an
// exclusive-ownership byte sequence with splice/insert/truncate
// operations, grown and shrunk without ever exposing a partially valid
// state to the caller.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package blob

import "github.com/AgentD/ctools/cmn"

// Blob is an owned contiguous byte sequence. The zero value is a valid
// empty blob. Resize operations either succeed fully or leave the blob
// unchanged. A blob is nil-backed after Init(0, ...) and Clone of an
// empty blob; Split, CutRange, Remove, and Truncate can leave an empty
// blob backed by a non-nil zero-length slice.
type Blob struct {
	data []byte
}

// Init allocates n bytes. If src is non-nil, the first n bytes of src are
// copied in; n == 0 yields an empty (nil-backed) blob.
func Init(n int, src []byte) (*Blob, cmn.ErrorCode) {
	b := &Blob{}
	if n == 0 {
		return b, cmn.Ok
	}
	buf := make([]byte, n)
	if src != nil {
		copy(buf, src)
	}
	b.data = buf
	return b, cmn.Ok
}

// Size reports the number of live bytes.
func (b *Blob) Size() int { return len(b.data) }

// Bytes exposes the live bytes. Callers must not retain the slice past
// the next mutating call — the backing array may be reallocated.
func (b *Blob) Bytes() []byte { return b.data }

// Wrap adopts raw directly as the blob's backing storage with no copy,
// for callers that already own a live view (e.g. a memory-mapped file
// region) and want it exposed uniformly as a Blob.
func Wrap(raw []byte) *Blob {
	return &Blob{data: raw}
}

// Clone deep-copies the blob.
func (b *Blob) Clone() *Blob {
	if len(b.data) == 0 {
		return &Blob{}
	}
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return &Blob{data: cp}
}

// CopyRange copies len(dst) bytes starting at offset into dst, returning
// the number of bytes actually copied (clamped to what's available).
func (b *Blob) CopyRange(dst []byte, offset int) int {
	if offset < 0 || offset >= len(b.data) {
		return 0
	}
	return copy(dst, b.data[offset:])
}

// AppendRaw grows the blob by n bytes. If src is nil, the appended region
// is left at its zero value (Go slices are always zeroed, so "left
// uninitialized" in the spec's C sense becomes "zero-filled" here — the
// contract callers rely on, absence of garbage, is preserved either way).
func (b *Blob) AppendRaw(src []byte, n int) cmn.ErrorCode {
	if n == 0 {
		return cmn.Ok
	}
	old := len(b.data)
	grown := make([]byte, old+n)
	copy(grown, b.data)
	if src != nil {
		copy(grown[old:], src[:n])
	}
	b.data = grown
	return cmn.Ok
}

// AppendRange is AppendRaw with the full extent of src.
func (b *Blob) AppendRange(src []byte) cmn.ErrorCode {
	return b.AppendRaw(src, len(src))
}

// Split moves bytes [offset:] of src into a freshly allocated dst, and
// truncates src to offset. dst is allocated before src is touched: on
// allocation failure src is left unchanged. offset is clamped to
// [0, src.Size()].
func Split(dst, src *Blob, offset int) cmn.ErrorCode {
	offset = clamp(offset, 0, len(src.data))
	tail := src.data[offset:]
	moved := make([]byte, len(tail))
	copy(moved, tail)
	dst.data = moved
	src.data = src.data[:offset:offset]
	return cmn.Ok
}

// CutRange removes len bytes starting at offset from src and places a
// copy of them in dst. len is clamped to the bytes actually available.
func CutRange(dst, src *Blob, offset, length int) cmn.ErrorCode {
	offset = clamp(offset, 0, len(src.data))
	length = clamp(length, 0, len(src.data)-offset)
	cut := make([]byte, length)
	copy(cut, src.data[offset:offset+length])
	dst.data = cut

	remaining := make([]byte, len(src.data)-length)
	copy(remaining, src.data[:offset])
	copy(remaining[offset:], src.data[offset+length:])
	src.data = remaining
	return cmn.Ok
}

// InsertRaw inserts n bytes from src at dst_off, growing dst.
func (b *Blob) InsertRaw(dstOff int, src []byte, n int) cmn.ErrorCode {
	dstOff = clamp(dstOff, 0, len(b.data))
	n = clamp(n, 0, len(src))
	grown := make([]byte, len(b.data)+n)
	copy(grown, b.data[:dstOff])
	copy(grown[dstOff:], src[:n])
	copy(grown[dstOff+n:], b.data[dstOff:])
	b.data = grown
	return cmn.Ok
}

// Insert copies len bytes from src[src_off:] into dst at dst_off,
// clamping both offsets to their respective blobs.
func Insert(dst, src *Blob, dstOff, srcOff, length int) cmn.ErrorCode {
	srcOff = clamp(srcOff, 0, len(src.data))
	length = clamp(length, 0, len(src.data)-srcOff)
	return dst.InsertRaw(dstOff, src.data[srcOff:srcOff+length], length)
}

// Remove deletes len bytes starting at offset, clamped to what's
// available.
func (b *Blob) Remove(offset, length int) cmn.ErrorCode {
	offset = clamp(offset, 0, len(b.data))
	length = clamp(length, 0, len(b.data)-offset)
	remaining := make([]byte, len(b.data)-length)
	copy(remaining, b.data[:offset])
	copy(remaining[offset:], b.data[offset+length:])
	b.data = remaining
	return cmn.Ok
}

// Truncate shortens the blob to n bytes (a no-op if n >= Size()).
func (b *Blob) Truncate(n int) cmn.ErrorCode {
	if n < 0 {
		n = 0
	}
	if n >= len(b.data) {
		return cmn.Ok
	}
	b.data = b.data[:n:n]
	return cmn.Ok
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
