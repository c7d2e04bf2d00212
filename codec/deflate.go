package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// Deflate returns the raw RFC 1951 DEFLATE bit stream for b, with no zlib
// header/adler32 and no gzip wrapper.
func Deflate(b []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw, err := flate.NewWriter(buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Inflate decompresses a raw DEFLATE stream produced by Deflate (or by any
// other raw-DEFLATE encoder, per RFC 1951).
func Inflate(b []byte) ([]byte, error) {
	zr := flate.NewReader(bytes.NewReader(b))
	defer zr.Close()
	return io.ReadAll(zr)
}
