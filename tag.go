package matlab

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	mbinary "github.com/AnthonyAndroulakis/matlab/internal/binary"
)

const (
	extendedTagLen = 8
	packedTagLen   = 4
	maxPackedLen   = 4
)

// Tag is the (type, length) descriptor that frames every data element.
type Tag struct {
	Type DataType
	// Size is the payload length in bytes, padding excluded.
	Size int
	// Packed reports the small data element form: type and length share one
	// 4-byte word and the payload sits in the following 4 bytes.
	Packed bool
}

func (t Tag) String() string {
	return fmt.Sprintf("%s(%d bytes)", t.Type, t.Size)
}

// Padding is the number of zero bytes that follow the payload.
// Packed payloads are padded to 4 bytes, extended ones to 8.
// miCOMPRESSED payloads are never padded.
func (t Tag) Padding() int {
	if t.Type == DTmiCOMPRESSED {
		return 0
	}
	align := 8
	if t.Packed {
		align = 4
	}
	return (align - t.Size%align) % align
}

// Overhead is the size of the tag itself.
func (t Tag) Overhead() int {
	if t.Packed {
		return packedTagLen
	}
	return extendedTagLen
}

// parseTagWord decodes the first word of a tag. When the upper 16 bits are
// zero the word is the type of an extended tag and the length follows.
func parseTagWord(word uint32) (t Tag, extended bool) {
	if word>>16 == 0 {
		return Tag{Type: DataType(word)}, true
	}
	return Tag{Type: DataType(word & 0xffff), Size: int(word >> 16), Packed: true}, false
}

// readTag reads a tag from r. A clean end of stream before the first byte is
// reported as io.EOF; a stream ending inside the tag as ErrTruncatedRecord.
func readTag(r io.Reader) (Tag, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Tag{}, io.EOF
		}
		return Tag{}, tagReadErr(err)
	}
	t, extended := parseTagWord(binary.LittleEndian.Uint32(buf[:]))
	if !extended {
		if t.Size > maxPackedLen {
			return Tag{}, fmt.Errorf("%w: packed element declares %d bytes", ErrTruncatedRecord, t.Size)
		}
		return t, nil
	}
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Tag{}, tagReadErr(err)
	}
	size := binary.LittleEndian.Uint32(buf[:])
	if size > 1<<31-1 {
		return Tag{}, fmt.Errorf("%w: element declares %d bytes", ErrTruncatedRecord, size)
	}
	t.Size = int(size)
	return t, nil
}

func tagReadErr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) || errors.Is(err, mbinary.ErrShortBuffer) {
		return fmt.Errorf("%w: stream ends inside a tag", ErrTruncatedRecord)
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// element is one decoded data element: its tag and unpadded payload.
type element struct {
	tag  Tag
	data []byte
}

// readElement reads a tag and its payload from an in-memory record and skips
// the trailing padding.
func readElement(r *mbinary.Reader) (element, error) {
	t, err := readTag(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return element{}, fmt.Errorf("%w: record ends before element", ErrTruncatedRecord)
		}
		return element{}, err
	}
	data, err := r.ReadBytes(t.Size)
	if err != nil {
		return element{}, fmt.Errorf("%w: %s overruns its record", ErrTruncatedRecord, t)
	}
	if err := r.Skip(t.Padding()); err != nil {
		return element{}, fmt.Errorf("%w: %s padding overruns its record", ErrTruncatedRecord, t)
	}
	return element{tag: t, data: data}, nil
}

// writeTag emits a tag for a payload of size bytes. The packed form is used
// for non-empty payloads of at most 4 bytes, except for matrix and compressed
// elements which are always extended.
func writeTag(w *mbinary.Writer, dt DataType, size int) Tag {
	t := Tag{Type: dt, Size: size}
	if size > 0 && size <= maxPackedLen && dt != DTmiMATRIX && dt != DTmiCOMPRESSED {
		t.Packed = true
		w.WriteUint32(uint32(size)<<16 | uint32(dt))
		return t
	}
	w.WriteUint32(uint32(dt))
	w.WriteUint32(uint32(size))
	return t
}

// writeElement emits tag, payload and padding.
func writeElement(w *mbinary.Writer, dt DataType, data []byte) {
	t := writeTag(w, dt, len(data))
	w.WriteBytes(data)
	w.WriteZeros(t.Padding())
}
