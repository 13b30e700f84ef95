package matlab

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	mbinary "github.com/AnthonyAndroulakis/matlab/internal/binary"
)

// Writer encodes arrays as a MAT-file stream. The header is written before
// the first array.
type Writer struct {
	w           io.Writer
	o           *options
	wroteHeader bool
}

// NewWriter creates a Writer emitting to w.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	return &Writer{w: w, o: buildOptions(opts)}
}

func (w *Writer) writeHeaderOnce() error {
	if w.wroteHeader {
		return nil
	}
	h := w.o.header
	if h == nil {
		h = NewHeader(time.Now())
	}
	if err := writeHeader(w.w, h); err != nil {
		return err
	}
	w.wroteHeader = true
	return nil
}

// WriteMatrix appends one top-level array. Empty arrays (ClassEmpty) can only
// appear inside cells and structs.
func (w *Writer) WriteMatrix(m *Matrix) error {
	if m == nil {
		return formatErr("write matrix", fmt.Errorf("%w: nil matrix", ErrInvalidArray))
	}
	if m.Class == ClassEmpty {
		return formatErr("write matrix", fmt.Errorf("%w: empty array %q at top level", ErrInvalidArray, m.Name))
	}
	if err := m.Validate(); err != nil {
		return formatErr("write matrix", err)
	}
	if err := w.writeHeaderOnce(); err != nil {
		return err
	}

	rec := mbinary.NewWriter()
	if err := writeMatrix(rec, m); err != nil {
		return formatErr("write matrix", err)
	}
	out := rec.Bytes()
	if w.o.compress {
		z, err := deflate(out, w.o.level)
		if err != nil {
			return formatErr("deflate", err)
		}
		framed := mbinary.NewWriter()
		writeTag(framed, DTmiCOMPRESSED, len(z))
		framed.WriteBytes(z)
		w.o.log.Debug("compressed array", "name", m.Name, "raw", len(out), "compressed", len(z))
		out = framed.Bytes()
	}
	if _, err := w.w.Write(out); err != nil {
		return ioErr("write matrix", err)
	}
	w.o.log.Debug("encoded array", "name", m.Name, "class", m.Class.String(), "bytes", len(out))
	return nil
}

// Flush writes the header if no array has been written yet, so that an
// empty collection still yields a valid file.
func (w *Writer) Flush() error {
	return w.writeHeaderOnce()
}

// Encode writes a header followed by arrays, in order, to w.
func Encode(w io.Writer, arrays []*Matrix, opts ...Option) error {
	enc := NewWriter(w, opts...)
	for _, m := range arrays {
		if err := enc.WriteMatrix(m); err != nil {
			return err
		}
	}
	return enc.Flush()
}

// WriteFile encodes arrays into the file at path, replacing it.
func WriteFile(path string, arrays []*Matrix, opts ...Option) error {
	f, err := os.Create(path)
	if err != nil {
		return ioErr("create", err)
	}
	bw := bufio.NewWriter(f)
	if err := Encode(bw, arrays, opts...); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return ioErr("write", err)
	}
	if err := f.Close(); err != nil {
		return ioErr("close", err)
	}
	return nil
}

// writeMatrix emits a complete miMATRIX element for m: flags, dimensions,
// name and the class payload, in the order the decoder reads them.
func writeMatrix(w *mbinary.Writer, m *Matrix) error {
	if m.Class == ClassEmpty {
		writeTag(w, DTmiMATRIX, 0)
		return nil
	}

	rec := mbinary.NewWriter()
	writeArrayFlags(rec, m)
	dims, err := binary.Append(nil, binary.LittleEndian, m.Dimension)
	if err != nil {
		return err
	}
	writeElement(rec, DTmiINT32, dims)
	writeElement(rec, DTmiINT8, []byte(m.Name))

	switch {
	case m.Class.IsNumeric():
		if err := writeNumbers(rec, m.Real); err != nil {
			return err
		}
		if m.Complex {
			if err := writeNumbers(rec, m.Imag); err != nil {
				return err
			}
		}
	case m.Class == ClassChar:
		if err := writeNumbers(rec, m.Chars); err != nil {
			return err
		}
	case m.Class == ClassCell:
		for _, c := range m.Cells {
			if err := writeMatrix(rec, c); err != nil {
				return err
			}
		}
	case m.Class == ClassStruct:
		writeFieldNames(rec, m.Fields)
		for _, v := range m.values {
			if err := writeMatrix(rec, v); err != nil {
				return err
			}
		}
	case m.Class == ClassSparse:
		if err := writeSparse(rec, m); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownArrayClass, uint8(m.Class))
	}

	t := writeTag(w, DTmiMATRIX, rec.Len())
	w.WriteBytes(rec.Bytes())
	w.WriteZeros(t.Padding())
	return nil
}

func writeArrayFlags(w *mbinary.Writer, m *Matrix) {
	attrs := uint32(m.Class)
	if m.Complex {
		attrs |= flagComplex
	}
	if m.Logical {
		attrs |= flagLogical
	}
	if m.Global {
		attrs |= flagGlobal
	}
	var nzmax uint32
	if m.Class == ClassSparse {
		nzmax = uint32(m.Sparse.NzMax)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], attrs)
	binary.LittleEndian.PutUint32(buf[4:], nzmax)
	writeElement(w, DTmiUINT32, buf[:])
}

func writeNumbers(w *mbinary.Writer, v any) error {
	dt, data, err := encodeNumbers(v)
	if err != nil {
		return err
	}
	writeElement(w, dt, data)
	return nil
}

// writeFieldNames emits the field name length (longest name plus its NUL)
// followed by the names, each NUL-padded to that length.
func writeFieldNames(w *mbinary.Writer, fields []string) {
	maxLen := 1
	for _, f := range fields {
		maxLen = max(maxLen, len(f)+1)
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(maxLen))
	writeElement(w, DTmiINT32, lenBuf[:])

	names := make([]byte, maxLen*len(fields))
	for i, f := range fields {
		copy(names[i*maxLen:], f)
	}
	writeElement(w, DTmiINT8, names)
}

func writeSparse(w *mbinary.Writer, m *Matrix) error {
	sp := m.Sparse
	for _, v := range []any{sp.Ir, sp.Jc, sp.Real} {
		if err := writeNumbers(w, v); err != nil {
			return err
		}
	}
	if m.Complex {
		return writeNumbers(w, sp.Imag)
	}
	return nil
}
