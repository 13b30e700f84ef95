package matlab

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	mbinary "github.com/AnthonyAndroulakis/matlab/internal/binary"
	"github.com/AnthonyAndroulakis/matlab/internal/logger"
)

// decoder accumulates the top-level arrays of one stream.
type decoder struct {
	filter     Filter
	log        logger.Logger
	maxInflate int64
	vars       map[string]*Matrix
	names      []string
}

func newDecoder(o *options) *decoder {
	return &decoder{
		filter:     o.filter,
		log:        o.log,
		maxInflate: o.maxInflate,
		vars:       map[string]*Matrix{},
	}
}

// readElements consumes top-level elements until the stream ends cleanly
// between two elements. Compressed elements are inflated and their content
// is read by a recursive call.
func (d *decoder) readElements(r io.Reader) error {
	for {
		t, err := readTag(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return formatErr("read element", err)
		}
		switch t.Type {
		case DTmiCOMPRESSED:
			data, err := readPayload(r, t)
			if err != nil {
				return formatErr("read compressed element", err)
			}
			segment, err := inflate(data, d.maxInflate)
			if err != nil {
				return formatErr("inflate", err)
			}
			d.log.Debug("inflated element", "compressed", t.Size, "inflated", len(segment))
			if err := d.readElements(bytes.NewReader(segment)); err != nil {
				return err
			}
		case DTmiMATRIX:
			data, err := readPayload(r, t)
			if err != nil {
				return formatErr("read matrix", err)
			}
			if len(data) == 0 {
				d.log.Debug("skipping empty top-level matrix")
				continue
			}
			if err := d.readTopLevel(data); err != nil {
				return err
			}
		default:
			return formatErr("read element", fmt.Errorf("%w: %s", ErrUnexpectedTopLevelType, t.Type))
		}
	}
}

// readPayload reads the payload and padding of a top-level element.
func readPayload(r io.Reader, t Tag) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(t.Size)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if len(data) != t.Size {
		return nil, fmt.Errorf("%w: %s holds only %d bytes", ErrTruncatedRecord, t, len(data))
	}
	if pad := t.Padding(); pad > 0 {
		n, err := io.CopyN(io.Discard, r, int64(pad))
		if n != int64(pad) {
			if err == nil || errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %s is missing its padding", ErrTruncatedRecord, t)
			}
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
	}
	return data, nil
}

func (d *decoder) readTopLevel(data []byte) error {
	rec := mbinary.NewReader(data)
	m, err := d.readMatrix(rec, true)
	if err != nil {
		return formatErr("read matrix", err)
	}
	if m == nil {
		d.log.Debug("array filtered out", "bytes", len(data))
		return nil
	}
	if rec.Len() != 0 {
		return formatErr("read matrix", fmt.Errorf("%w: %d bytes left over after %q", ErrTruncatedRecord, rec.Len(), m.Name))
	}
	if err := m.Validate(); err != nil {
		return formatErr("read matrix", err)
	}
	if _, dup := d.vars[m.Name]; !dup {
		d.names = append(d.names, m.Name)
	}
	d.vars[m.Name] = m
	d.log.Debug("decoded array", "name", m.Name, "class", m.Class.String(), "dims", m.Dimension)
	return nil
}

// readMatrix decodes one miMATRIX record whose tag has been consumed. It
// returns nil when root is set and the filter rejects the array name; the
// caller owns the remaining bytes of the record in that case.
func (d *decoder) readMatrix(r *mbinary.Reader, root bool) (*Matrix, error) {
	el, err := readElement(r)
	if err != nil {
		return nil, err
	}
	flags, err := decodeNumbers[uint32](el.tag.Type, el.data)
	if err != nil {
		return nil, err
	}
	if len(flags) == 0 {
		return nil, fmt.Errorf("%w: empty array flags", ErrInvalidArray)
	}
	attrs := flags[0]
	var nzmax uint32
	if len(flags) > 1 {
		nzmax = flags[1]
	}

	if el, err = readElement(r); err != nil {
		return nil, err
	}
	dims, err := decodeNumbers[int32](el.tag.Type, el.data)
	if err != nil {
		return nil, err
	}
	if _, ok := elementCount(dims); !ok {
		return nil, fmt.Errorf("%w: dimensions %v are negative or overflow", ErrInvalidArray, dims)
	}

	if el, err = readElement(r); err != nil {
		return nil, err
	}
	name, err := decodeName(el)
	if err != nil {
		return nil, err
	}

	if root && !d.filter.Matches(name) {
		return nil, nil
	}

	m := &Matrix{
		Name:      name,
		Dimension: dims,
		Class:     Class(attrs & 0xff),
		Complex:   attrs&flagComplex != 0,
		Logical:   attrs&flagLogical != 0,
		Global:    attrs&flagGlobal != 0,
	}
	switch {
	case m.Class == ClassCell:
		err = d.readCell(r, m)
	case m.Class == ClassStruct:
		err = d.readStruct(r, m)
	case m.Class == ClassChar:
		err = readCharData(r, m)
	case m.Class == ClassSparse:
		err = readSparseData(r, m, int(nzmax))
	case m.Class.IsNumeric():
		err = readNumericData(r, m)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownArrayClass, uint8(m.Class))
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// decodeName reads an array or field name. Byte-wide names are taken as
// UTF-8 text; wider types go through the character path.
func decodeName(el element) (string, error) {
	if el.tag.Type.NumBytes() == 1 {
		return string(el.data), nil
	}
	chars, err := decodeChars(el.tag.Type, el.data)
	if err != nil {
		return "", err
	}
	return string(utf16.Decode(chars)), nil
}

func readNumericData(r *mbinary.Reader, m *Matrix) error {
	el, err := readElement(r)
	if err != nil {
		return err
	}
	if m.Real, err = decodeClassData(m.Class, el.tag.Type, el.data); err != nil {
		return err
	}
	if !m.Complex {
		return nil
	}
	if el, err = readElement(r); err != nil {
		return err
	}
	m.Imag, err = decodeClassData(m.Class, el.tag.Type, el.data)
	return err
}

func readCharData(r *mbinary.Reader, m *Matrix) error {
	el, err := readElement(r)
	if err != nil {
		return err
	}
	m.Complex = false
	m.Chars, err = decodeChars(el.tag.Type, el.data)
	return err
}

// readChild decodes one cell or struct slot. A zero-length miMATRIX holds
// an empty array.
func (d *decoder) readChild(r *mbinary.Reader) (*Matrix, error) {
	t, err := readTag(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: record ends before nested array", ErrTruncatedRecord)
		}
		return nil, err
	}
	if t.Type != DTmiMATRIX {
		return nil, fmt.Errorf("%w: nested element is %s, want miMATRIX", ErrInvalidArray, t.Type)
	}
	if t.Size == 0 {
		return NewEmpty(), nil
	}
	sub, err := r.Sub(t.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: nested %s overruns its parent", ErrTruncatedRecord, t)
	}
	child, err := d.readMatrix(sub, false)
	if err != nil {
		return nil, err
	}
	if sub.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes left over in nested array %q", ErrTruncatedRecord, sub.Len(), child.Name)
	}
	if err := r.Skip(t.Padding()); err != nil {
		return nil, fmt.Errorf("%w: nested %s padding overruns its parent", ErrTruncatedRecord, t)
	}
	return child, nil
}

func (d *decoder) readCell(r *mbinary.Reader, m *Matrix) error {
	if err := checkChildren(r, m.NumElements(), 1); err != nil {
		return err
	}
	m.Cells = make([]*Matrix, m.NumElements())
	for i := range m.Cells {
		c, err := d.readChild(r)
		if err != nil {
			return err
		}
		m.Cells[i] = c
	}
	return nil
}

// checkChildren fails when n elements of perElement children each cannot
// fit in the rest of the record. Every child takes at least one 8-byte tag.
func checkChildren(r *mbinary.Reader, n, perElement int) error {
	if n == 0 || perElement == 0 {
		return nil
	}
	if n > r.Len()/(extendedTagLen*perElement) {
		return fmt.Errorf("%w: %d elements x %d children cannot fit in %d bytes", ErrTruncatedRecord, n, perElement, r.Len())
	}
	return nil
}

func (d *decoder) readStruct(r *mbinary.Reader, m *Matrix) error {
	// field name length always uses the small data element format
	el, err := readElement(r)
	if err != nil {
		return err
	}
	lens, err := decodeNumbers[int32](el.tag.Type, el.data)
	if err != nil {
		return err
	}
	if len(lens) != 1 {
		return fmt.Errorf("%w: field name length element holds %d values", ErrInvalidArray, len(lens))
	}
	maxLen := int(lens[0])

	if el, err = readElement(r); err != nil {
		return err
	}
	names, err := splitFieldNames(el.data, maxLen)
	if err != nil {
		return err
	}

	n := m.NumElements()
	if err := checkChildren(r, n, len(names)); err != nil {
		return err
	}
	m.Fields = names
	m.values = make([]*Matrix, n*len(names))
	for i := range m.values {
		v, err := d.readChild(r)
		if err != nil {
			return err
		}
		m.values[i] = v
	}
	return nil
}

// splitFieldNames cuts the concatenated, NUL-padded field names.
func splitFieldNames(data []byte, maxLen int) ([]string, error) {
	if maxLen <= 0 {
		if len(data) != 0 {
			return nil, fmt.Errorf("%w: field names present with field name length %d", ErrInvalidArray, maxLen)
		}
		return []string{}, nil
	}
	if len(data)%maxLen != 0 {
		return nil, fmt.Errorf("%w: %d bytes of field names is not a multiple of %d", ErrInvalidArray, len(data), maxLen)
	}
	names := make([]string, len(data)/maxLen)
	for i := range names {
		chunk := data[i*maxLen : (i+1)*maxLen]
		if j := bytes.IndexByte(chunk, 0); j >= 0 {
			chunk = chunk[:j]
		}
		names[i] = string(chunk)
	}
	return names, nil
}

func readSparseData(r *mbinary.Reader, m *Matrix, nzmax int) error {
	var ir, jc []int32
	var pr, pi []float64

	el, err := readElement(r)
	if err != nil {
		return err
	}
	if ir, err = decodeNumbers[int32](el.tag.Type, el.data); err != nil {
		return err
	}
	if el, err = readElement(r); err != nil {
		return err
	}
	if jc, err = decodeNumbers[int32](el.tag.Type, el.data); err != nil {
		return err
	}
	if el, err = readElement(r); err != nil {
		return err
	}
	if pr, err = decodeNumbers[float64](el.tag.Type, el.data); err != nil {
		return err
	}
	if m.Complex {
		if el, err = readElement(r); err != nil {
			return err
		}
		if pi, err = decodeNumbers[float64](el.tag.Type, el.data); err != nil {
			return err
		}
	}

	var rows, cols int
	if len(m.Dimension) == 2 {
		rows, cols = int(m.Dimension[0]), int(m.Dimension[1])
	}
	sp := &Sparse{Rows: rows, Cols: cols, NzMax: nzmax, Ir: ir, Jc: jc, Real: pr, Imag: pi}
	// ir and pr may be allocated up to nzmax; only the first Jc[Cols] are used.
	if nnz := sp.NonZeros(); nnz >= 0 {
		if nnz < len(sp.Ir) {
			sp.Ir = sp.Ir[:nnz]
		}
		if nnz < len(sp.Real) {
			sp.Real = sp.Real[:nnz]
		}
		if nnz < len(sp.Imag) {
			sp.Imag = sp.Imag[:nnz]
		}
	}
	m.Sparse = sp
	return nil
}
