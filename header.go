package matlab

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"
)

const (
	headerLen                = 128
	headerTextLen            = 116
	headerSubsystemOffsetLen = 8

	headerMagic    = "MATLAB 5.0 MAT-file"
	headerVersion  = 0x0100
	littleEndianIM = "IM"
	bigEndianMI    = "MI"
)

// Header is a matlab .mat file header
type Header struct {
	Description string
	Version     uint16

	// Parsed from Description when it follows the usual layout.
	Level    string
	Platform string
	Created  time.Time
}

// NewHeader returns the header written by default, stamped with created.
func NewHeader(created time.Time) *Header {
	return &Header{
		Description: fmt.Sprintf("%s, Platform: %s, Created on: %s", headerMagic, runtime.GOOS, created.Format(time.ANSIC)),
		Version:     headerVersion,
		Level:       "5.0",
		Platform:    runtime.GOOS,
		Created:     created,
	}
}

// String implements the stringer interface for Header
func (h *Header) String() string {
	return h.Description
}

func readHeader(r io.Reader) (*Header, error) {
	var buf [headerLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, formatErr("read header", fmt.Errorf("%w: stream shorter than the %d-byte header", ErrNotThisFormat, headerLen))
		}
		return nil, ioErr("read header", err)
	}

	text := buf[:headerTextLen]
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	description := strings.TrimRight(string(text), " ")
	if !strings.HasPrefix(description, headerMagic) {
		return nil, formatErr("read header", ErrNotThisFormat)
	}

	flags := buf[headerTextLen+headerSubsystemOffsetLen:]
	switch marker := string(flags[2:4]); marker {
	case littleEndianIM:
	case bigEndianMI:
		return nil, formatErr("read header", fmt.Errorf("%w: big-endian files are not supported", ErrUnsupportedByteOrder))
	default:
		return nil, formatErr("read header", fmt.Errorf("%w: marker %q", ErrUnsupportedByteOrder, marker))
	}

	h := &Header{
		Description: description,
		Version:     binary.LittleEndian.Uint16(flags[:2]),
		Level:       "5.0",
	}
	parseDescription(h)
	return h, nil
}

// parseDescription fills Platform and Created. Files written by other tools
// (Octave, scipy) do not always follow the layout, so failures are ignored.
func parseDescription(h *Header) {
	rest := strings.TrimPrefix(h.Description, headerMagic)
	if _, after, ok := strings.Cut(rest, "Platform: "); ok {
		h.Platform, _, _ = strings.Cut(after, ",")
		h.Platform = strings.TrimSpace(h.Platform)
	}
	if _, after, ok := strings.Cut(rest, "Created on: "); ok {
		if t, err := time.Parse(time.ANSIC, strings.TrimSpace(after)); err == nil {
			h.Created = t
		}
	}
}

func writeHeader(w io.Writer, h *Header) error {
	if !strings.HasPrefix(h.Description, headerMagic) {
		return formatErr("write header", fmt.Errorf("%w: description must start with %q", ErrNotThisFormat, headerMagic))
	}
	if len(h.Description) > headerTextLen {
		return formatErr("write header", fmt.Errorf("%w: description is %d bytes, limit is %d", ErrInvalidArray, len(h.Description), headerTextLen))
	}

	var buf [headerLen]byte
	copy(buf[:], h.Description)
	for i := len(h.Description); i < headerTextLen; i++ {
		buf[i] = ' '
	}
	flags := buf[headerTextLen+headerSubsystemOffsetLen:]
	binary.LittleEndian.PutUint16(flags[:2], h.Version)
	copy(flags[2:], littleEndianIM)

	if _, err := w.Write(buf[:]); err != nil {
		return ioErr("write header", err)
	}
	return nil
}
