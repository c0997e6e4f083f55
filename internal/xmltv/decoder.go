package xmltv

import (
	"bytes"
	"compress/gzip"
	"io"
)

// gzipMagic is the two-byte header every gzip stream starts with.
var gzipMagic = []byte{0x1f, 0x8b}

// minGzipLen is the size of the smallest valid gzip file
// (10-byte header + empty deflate block + 8-byte trailer).
const minGzipLen = 18

// decompressChunk is the read granularity for streaming inflation.
const decompressChunk = 64 * 1024

// Decompress returns the gzip-decompressed form of data, or data unchanged
// when it is not a gzip stream or decompression fails partway. Servers
// sometimes transparently decode a body that still advertises gzip, so a
// failed inflate degrades to the raw bytes instead of failing the pipeline.
func Decompress(data []byte, likelyGzip bool) []byte {
	if !likelyGzip || len(data) < minGzipLen || !bytes.HasPrefix(data, gzipMagic) {
		return data
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer zr.Close()

	var out bytes.Buffer
	buf := make([]byte, decompressChunk)
	for {
		n, err := zr.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			return out.Bytes()
		}
		if err != nil {
			// Corrupt or truncated stream.
			return data
		}
	}
}
