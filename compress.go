package matlab

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// zlibOverhead is the 2-byte stream header plus the 4-byte Adler-32 trailer.
const zlibOverhead = 6

// inflate decompresses the payload of a miCOMPRESSED element into a fresh
// segment, which is then parsed like any uncompressed stream. A positive
// limit caps the segment size; zero means unlimited.
func inflate(data []byte, limit int64) ([]byte, error) {
	if len(data) < zlibOverhead {
		return nil, fmt.Errorf("%w: declared length %d is shorter than the zlib framing", ErrMalformedCompressedBlock, len(data))
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCompressedBlock, err)
	}
	defer zr.Close()

	var src io.Reader = zr
	if limit > 0 {
		src = io.LimitReader(zr, limit+1)
	}
	out := bytes.NewBuffer(make([]byte, 0, len(data)*3))
	if _, err := io.Copy(out, src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCompressedBlock, err)
	}
	if limit > 0 && int64(out.Len()) > limit {
		return nil, fmt.Errorf("%w: inflated segment exceeds %d bytes", ErrMalformedCompressedBlock, limit)
	}
	return out.Bytes(), nil
}

// deflate wraps segment in zlib framing at the given level.
func deflate(segment []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(segment); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
