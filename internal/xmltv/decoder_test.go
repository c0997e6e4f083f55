package xmltv

import (
	"bytes"
	"compress/gzip"
	"testing"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestDecompressRoundTrip(t *testing.T) {
	original := []byte("<tv><channel id=\"c1\"><display-name>One</display-name></channel></tv>")
	got := Decompress(gzipBytes(t, original), true)
	if !bytes.Equal(got, original) {
		t.Errorf("decompressed %q, want %q", got, original)
	}
}

func TestDecompressPlainBytesUnchanged(t *testing.T) {
	// A server may have transparently decoded the body already.
	plain := []byte("<tv>this is not gzip but long enough to pass the length check</tv>")
	got := Decompress(plain, true)
	if !bytes.Equal(got, plain) {
		t.Errorf("plain input modified: got %q", got)
	}
}

func TestDecompressNotLikelyGzip(t *testing.T) {
	data := gzipBytes(t, []byte("payload"))
	got := Decompress(data, false)
	if !bytes.Equal(got, data) {
		t.Error("input touched despite likelyGzip=false")
	}
}

func TestDecompressCorruptStream(t *testing.T) {
	data := gzipBytes(t, bytes.Repeat([]byte("abcdefgh"), 64))
	// Truncate past the header so inflation starts but cannot finish.
	corrupt := data[:len(data)-6]
	got := Decompress(corrupt, true)
	if !bytes.Equal(got, corrupt) {
		t.Error("corrupt stream did not degrade to original bytes")
	}
}

func TestDecompressShortAndEmptyInput(t *testing.T) {
	for _, in := range [][]byte{nil, {}, {0x1f, 0x8b}, []byte("tiny")} {
		got := Decompress(in, true)
		if !bytes.Equal(got, in) {
			t.Errorf("input %v modified to %v", in, got)
		}
	}
}
