package blob

import (
	"bytes"
	"testing"

	"github.com/AgentD/ctools/cmn"
)

func TestInitEmpty(t *testing.T) {
	b, code := Init(0, nil)
	if code != cmn.Ok || b.Size() != 0 {
		t.Fatalf("expected empty blob, got size=%d code=%v", b.Size(), code)
	}
}

func TestInitWithSource(t *testing.T) {
	b, code := Init(5, []byte("hello"))
	if code != cmn.Ok {
		t.Fatalf("unexpected code %v", code)
	}
	if !bytes.Equal(b.Bytes(), []byte("hello")) {
		t.Fatalf("got %q", b.Bytes())
	}
}

func TestAppendAndTruncateRoundtrip(t *testing.T) {
	b, _ := Init(0, nil)
	b.AppendRange([]byte("abc"))
	b.AppendRange([]byte("def"))
	if string(b.Bytes()) != "abcdef" {
		t.Fatalf("got %q", b.Bytes())
	}
	b.Truncate(3)
	if string(b.Bytes()) != "abc" {
		t.Fatalf("got %q", b.Bytes())
	}
}

func TestSplitReconstructsOriginal(t *testing.T) {
	src, _ := Init(10, []byte("0123456789"))
	dst := &Blob{}
	Split(dst, src, 4)
	if string(src.Bytes()) != "0123" {
		t.Fatalf("src got %q", src.Bytes())
	}
	if string(dst.Bytes()) != "456789" {
		t.Fatalf("dst got %q", dst.Bytes())
	}
	src.AppendRange(dst.Bytes())
	if string(src.Bytes()) != "0123456789" {
		t.Fatalf("reconstruction failed: %q", src.Bytes())
	}
}

func TestCutRangeClampsLength(t *testing.T) {
	src, _ := Init(5, []byte("abcde"))
	dst := &Blob{}
	CutRange(dst, src, 2, 100)
	if string(dst.Bytes()) != "cde" {
		t.Fatalf("dst got %q", dst.Bytes())
	}
	if string(src.Bytes()) != "ab" {
		t.Fatalf("src got %q", src.Bytes())
	}
}

func TestInsertClampsOffsets(t *testing.T) {
	dst, _ := Init(3, []byte("abc"))
	src, _ := Init(5, []byte("12345"))
	Insert(dst, src, 1, 1, 2)
	if string(dst.Bytes()) != "a23bc" {
		t.Fatalf("got %q", dst.Bytes())
	}
}

func TestRemove(t *testing.T) {
	b, _ := Init(5, []byte("abcde"))
	b.Remove(1, 2)
	if string(b.Bytes()) != "ade" {
		t.Fatalf("got %q", b.Bytes())
	}
}

func TestSizeMatchesLiveBytes(t *testing.T) {
	b, _ := Init(0, nil)
	ops := [][2]int{{3, 0}, {2, 0}, {-1, 2}}
	b.AppendRaw(nil, 3)
	b.AppendRaw(nil, 2)
	b.Remove(1, 2)
	if b.Size() != len(b.Bytes()) {
		t.Fatalf("size/bytes mismatch")
	}
	_ = ops
}
