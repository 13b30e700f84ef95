package binary

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates a little-endian segment in memory.
// Records are built bottom-up into Writers so that their byte length is
// known before the enclosing tag is emitted.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty segment writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns the written segment. The slice aliases the writer's storage.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// WriteBytes appends data.
func (w *Writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// WriteUint16 appends a little-endian unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteUint32 appends a little-endian unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteZeros appends n zero bytes.
func (w *Writer) WriteZeros(n int) {
	for ; n > 0; n-- {
		w.buf.WriteByte(0)
	}
}

// WritePadding appends zero bytes until Len is a multiple of alignment.
func (w *Writer) WritePadding(alignment int) {
	if alignment <= 1 {
		return
	}
	if rem := w.buf.Len() % alignment; rem != 0 {
		w.WriteZeros(alignment - rem)
	}
}
