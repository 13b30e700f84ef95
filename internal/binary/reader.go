// Package binary provides the little-endian byte cursors used by the MAT-file codec.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrShortBuffer is returned when a read runs past the end of the segment.
var ErrShortBuffer = errors.New("read past end of segment")

// Reader is a position-tracking cursor over an in-memory segment.
// It never reads beyond the segment it was created with, so a sub-reader
// obtained with Sub bounds every nested record to its declared length.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a cursor over buf positioned at its first byte.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// Size returns the total length of the segment.
func (r *Reader) Size() int {
	return len(r.buf)
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= len(r.buf) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

// ReadBytes returns the next n bytes. The returned slice aliases the segment.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadUint32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Peek returns the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, ErrShortBuffer
	}
	return r.buf[r.pos : r.pos+n], nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || n > r.Len() {
		return ErrShortBuffer
	}
	r.pos += n
	return nil
}

// Sub returns a reader over the next n bytes and advances past them.
func (r *Reader) Sub(n int) (*Reader, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return NewReader(b), nil
}
