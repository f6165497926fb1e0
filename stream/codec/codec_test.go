package codec

import (
	"bytes"
	"io"
	"testing"
)

func drain(t *testing.T, pull func([]byte) (int, error)) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 64)
	for {
		n, err := pull(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			break
		}
	}
	return out
}

func TestBase64EncodeLiteralHelloWorld(t *testing.T) {
	enc := NewBase64Encoder(Base64Standard)
	enc.Push([]byte("Hello, World!"))
	enc.Flush(1)
	got := drain(t, enc.Pull)
	want := "SGVsbG8sIFdvcmxkIQ=="
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestBase64DecodeLiteralHelloWorld(t *testing.T) {
	dec := NewBase64Decoder(Base64Standard, 0)
	dec.Push([]byte("SGVsbG8sIFdvcmxkIQ=="))
	dec.Flush(1)
	got := drain(t, dec.Pull)
	if string(got) != "Hello, World!" {
		t.Fatalf("got %q", got)
	}
}

func TestBase64RoundTripStandardAndURLSafe(t *testing.T) {
	inputs := [][]byte{
		{},
		[]byte("a"),
		[]byte("ab"),
		[]byte("abc"),
		bytes.Repeat([]byte{0xff, 0x00, 0x7f}, 37),
	}
	for _, alphabet := range []Base64Alphabet{Base64Standard, Base64URLSafe} {
		for _, in := range inputs {
			enc := NewBase64Encoder(alphabet)
			enc.Push(in)
			enc.Flush(1)
			encoded := drain(t, enc.Pull)

			dec := NewBase64Decoder(alphabet, 0)
			dec.Push(encoded)
			dec.Flush(1)
			decoded := drain(t, dec.Pull)

			if !bytes.Equal(decoded, in) {
				t.Fatalf("roundtrip mismatch for %v: got %v", in, decoded)
			}
		}
	}
}

func TestBase64DecodeMalformedLength(t *testing.T) {
	dec := NewBase64Decoder(Base64Standard, 0)
	dec.Push([]byte("abcde")) // 5 chars => 1 mod 4
	dec.Flush(1)
	_, err := dec.Pull(make([]byte, 16))
	if err == nil {
		t.Fatalf("expected malformed-length error")
	}
}

func TestBase64DecodeIgnoresWhitespace(t *testing.T) {
	dec := NewBase64Decoder(Base64Standard, 0)
	dec.Push([]byte("SGVs\nbG8s IFdv\tcmxk IQ=="))
	dec.Flush(1)
	got := drain(t, dec.Pull)
	if string(got) != "Hello, World!" {
		t.Fatalf("got %q", got)
	}
}

func TestDeflateRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		[]byte("Hello, World!"),
		bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200),
	}
	for _, hint := range []CompressionHint{CompressionDefault, CompressionFast, CompressionGood} {
		for _, in := range inputs {
			enc := NewDeflateEncoder(hint)
			enc.Push(in)
			enc.Flush(1)
			compressed := drain(t, enc.Pull)

			dec := NewDeflateDecoder()
			dec.Push(compressed)
			dec.Flush(1)
			decoded := drain(t, dec.Pull)

			if !bytes.Equal(decoded, in) {
				t.Fatalf("deflate roundtrip mismatch: got %d bytes, want %d", len(decoded), len(in))
			}
		}
	}
}

func TestLZ4RoundTrip(t *testing.T) {
	in := bytes.Repeat([]byte("lz4 roundtrip payload "), 500)
	enc := NewLZ4Encoder()
	enc.Push(in)
	enc.Flush(1)
	compressed := drain(t, enc.Pull)

	dec := NewLZ4Decoder()
	dec.Push(compressed)
	dec.Flush(1)
	decoded := drain(t, dec.Pull)

	if !bytes.Equal(decoded, in) {
		t.Fatalf("lz4 roundtrip mismatch")
	}
}
