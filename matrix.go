package matlab

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf16"
)

// Matrix is one MATLAB array: a top-level variable or a nested cell/struct
// element. Exactly one payload group is populated, selected by Class:
//
//   - numeric classes: Real and, when Complex, Imag hold a slice of the
//     class's Go type ([]float64 for ClassDouble, []int8 for ClassInt8, ...)
//   - ClassChar: Chars holds UTF-16 code units
//   - ClassCell: Cells
//   - ClassStruct: Fields plus one value per (field, element)
//   - ClassSparse: Sparse
//
// All payloads are stored column-major, as MATLAB does.
type Matrix struct {
	Name      string
	Dimension []int32 // at least length 2
	Class     Class

	Complex bool
	Logical bool
	Global  bool

	Real any
	Imag any

	Chars []uint16
	Cells []*Matrix

	Fields []string
	values []*Matrix // index-major, field-minor

	Sparse *Sparse
}

// NumElements returns the product of the dimensions, or -1 when a
// dimension is negative or the product does not fit in an int.
func (m *Matrix) NumElements() int {
	n, ok := elementCount(m.Dimension)
	if !ok {
		return -1
	}
	return n
}

func elementCount(dims []int32) (int, bool) {
	if len(dims) == 0 {
		return 0, true
	}
	for _, d := range dims {
		if d < 0 {
			return 0, false
		}
	}
	if slices.Contains(dims, 0) {
		return 0, true
	}
	n := 1
	for _, d := range dims {
		if n > math.MaxInt/int(d) {
			return 0, false
		}
		n *= int(d)
	}
	return n, true
}

// DoubleArray is a convenience method to extract the real part as []float64.
// Any numeric class converts; other classes return an error.
func (m *Matrix) DoubleArray() ([]float64, error) {
	if !m.Class.IsNumeric() {
		return nil, fmt.Errorf("%w: cannot convert %s to double array", ErrInvalidArray, m.Class)
	}
	return convertSlice[float64](m.Real)
}

// IntArray is a convenience method to extract the real part of an integer
// class as []int64. Values of uint64 arrays above math.MaxInt64 wrap.
func (m *Matrix) IntArray() ([]int64, error) {
	if !m.Class.IsNumeric() || m.Class == ClassDouble || m.Class == ClassSingle {
		return nil, fmt.Errorf("%w: cannot convert %s to int array", ErrInvalidArray, m.Class)
	}
	return convertSlice[int64](m.Real)
}

// ImagArray returns the imaginary part of a complex array as []float64.
func (m *Matrix) ImagArray() ([]float64, error) {
	if !m.Class.IsNumeric() || !m.Complex {
		return nil, fmt.Errorf("%w: %s has no imaginary part", ErrInvalidArray, m.Class)
	}
	return convertSlice[float64](m.Imag)
}

func convertSlice[T number](v any) ([]T, error) {
	switch s := v.(type) {
	case []float64:
		return convertNumbers[T](s), nil
	case []float32:
		return convertNumbers[T](s), nil
	case []int8:
		return convertNumbers[T](s), nil
	case []uint8:
		return convertNumbers[T](s), nil
	case []int16:
		return convertNumbers[T](s), nil
	case []uint16:
		return convertNumbers[T](s), nil
	case []int32:
		return convertNumbers[T](s), nil
	case []uint32:
		return convertNumbers[T](s), nil
	case []int64:
		return convertNumbers[T](s), nil
	case []uint64:
		return convertNumbers[T](s), nil
	default:
		return nil, fmt.Errorf("%w: unsupported payload type %T", ErrInvalidArray, v)
	}
}

func convertNumbers[T, S number](src []S) []T {
	out := make([]T, len(src))
	for i, v := range src {
		out[i] = T(v)
	}
	return out
}

// Text returns the contents of a character array. Rows of a multi-row array
// are separated by newlines.
func (m *Matrix) Text() string {
	if m.Class != ClassChar {
		return ""
	}
	rows := 1
	if len(m.Dimension) > 0 {
		rows = int(m.Dimension[0])
	}
	if rows <= 1 {
		return string(utf16.Decode(m.Chars))
	}
	cols := len(m.Chars) / rows
	lines := make([]string, rows)
	row := make([]uint16, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			row[c] = m.Chars[c*rows+r]
		}
		lines[r] = string(utf16.Decode(row))
	}
	return strings.Join(lines, "\n")
}

// GetAtLocation returns the cell at linear index i, or nil when m is not a
// cell array or i is out of range.
func (m *Matrix) GetAtLocation(i int) *Matrix {
	if m.Class != ClassCell || i < 0 || i >= len(m.Cells) {
		return nil
	}
	return m.Cells[i]
}

// SetCell stores v at linear index i of a cell array.
func (m *Matrix) SetCell(i int, v *Matrix) error {
	if m.Class != ClassCell {
		return fmt.Errorf("%w: %s is not a cell array", ErrInvalidArray, m.Class)
	}
	if i < 0 || i >= len(m.Cells) {
		return fmt.Errorf("%w: cell index %d out of range [0,%d)", ErrInvalidArray, i, len(m.Cells))
	}
	if v == nil {
		v = NewEmpty()
	}
	m.Cells[i] = v
	return nil
}

func (m *Matrix) fieldIndex(name string) int {
	for i, f := range m.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Field returns the value of field name at linear index i of a struct array,
// or nil when the field or index does not exist.
func (m *Matrix) Field(name string, i int) *Matrix {
	if m.Class != ClassStruct {
		return nil
	}
	f := m.fieldIndex(name)
	if f < 0 || i < 0 || i >= m.NumElements() {
		return nil
	}
	return m.values[i*len(m.Fields)+f]
}

// SetField stores v as field name of element i. A new field is appended to
// the field list and initialized to empty arrays in every other element.
func (m *Matrix) SetField(name string, i int, v *Matrix) error {
	if m.Class != ClassStruct {
		return fmt.Errorf("%w: %s is not a structure", ErrInvalidArray, m.Class)
	}
	n := m.NumElements()
	if i < 0 || i >= n {
		return fmt.Errorf("%w: struct index %d out of range [0,%d)", ErrInvalidArray, i, n)
	}
	if name == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalidArray)
	}
	if v == nil {
		v = NewEmpty()
	}
	f := m.fieldIndex(name)
	if f < 0 {
		m.addField(name)
		f = len(m.Fields) - 1
	}
	m.values[i*len(m.Fields)+f] = v
	return nil
}

func (m *Matrix) addField(name string) {
	old := len(m.Fields)
	n := max(m.NumElements(), 0)
	values := make([]*Matrix, n*(old+1))
	for i := 0; i < n; i++ {
		copy(values[i*(old+1):], m.values[i*old:(i+1)*old])
		values[i*(old+1)+old] = NewEmpty()
	}
	m.Fields = append(m.Fields, name)
	m.values = values
}

// Validate checks the structural invariants of m and all of its children.
func (m *Matrix) Validate() error {
	if m.Class == ClassEmpty {
		return nil
	}
	if len(m.Dimension) < 2 {
		return fmt.Errorf("%w: %q has %d dimensions, want at least 2", ErrInvalidArray, m.Name, len(m.Dimension))
	}
	for _, d := range m.Dimension {
		if d < 0 {
			return fmt.Errorf("%w: %q has negative dimension %d", ErrInvalidArray, m.Name, d)
		}
	}
	n := m.NumElements()
	if n < 0 {
		return fmt.Errorf("%w: %q dimensions %v overflow the element count", ErrInvalidArray, m.Name, m.Dimension)
	}
	switch {
	case m.Class.IsNumeric():
		dt, ok := dataTypeOf(m.Real)
		if !ok || classForDataType(dt) != m.Class {
			return fmt.Errorf("%w: %q stores %T for %s", ErrInvalidArray, m.Name, m.Real, m.Class)
		}
		if got := payloadLen(m.Real); got != n {
			return fmt.Errorf("%w: %q has %d values for %d elements", ErrInvalidArray, m.Name, got, n)
		}
		if m.Complex {
			if idt, ok := dataTypeOf(m.Imag); !ok || idt != dt || payloadLen(m.Imag) != n {
				return fmt.Errorf("%w: %q imaginary part does not match real part", ErrInvalidArray, m.Name)
			}
		} else if m.Imag != nil {
			return fmt.Errorf("%w: %q has an imaginary part but is not complex", ErrInvalidArray, m.Name)
		}
	case m.Class == ClassChar:
		if len(m.Chars) != n {
			return fmt.Errorf("%w: %q has %d characters for %d elements", ErrInvalidArray, m.Name, len(m.Chars), n)
		}
	case m.Class == ClassCell:
		if len(m.Cells) != n {
			return fmt.Errorf("%w: %q has %d cells for %d elements", ErrInvalidArray, m.Name, len(m.Cells), n)
		}
		for i, c := range m.Cells {
			if c == nil {
				return fmt.Errorf("%w: %q cell %d is nil", ErrInvalidArray, m.Name, i)
			}
			if err := c.Validate(); err != nil {
				return err
			}
		}
	case m.Class == ClassStruct:
		seen := make(map[string]struct{}, len(m.Fields))
		for _, f := range m.Fields {
			if f == "" {
				return fmt.Errorf("%w: %q has an empty field name", ErrInvalidArray, m.Name)
			}
			if _, dup := seen[f]; dup {
				return fmt.Errorf("%w: %q has duplicate field %q", ErrInvalidArray, m.Name, f)
			}
			seen[f] = struct{}{}
		}
		if len(m.values) != n*len(m.Fields) {
			return fmt.Errorf("%w: %q has %d field values for %d elements x %d fields", ErrInvalidArray, m.Name, len(m.values), n, len(m.Fields))
		}
		for _, v := range m.values {
			if v == nil {
				return fmt.Errorf("%w: %q has a nil field value", ErrInvalidArray, m.Name)
			}
			if err := v.Validate(); err != nil {
				return err
			}
		}
	case m.Class == ClassSparse:
		if m.Sparse == nil {
			return fmt.Errorf("%w: %q has no sparse payload", ErrInvalidArray, m.Name)
		}
		if len(m.Dimension) != 2 || int(m.Dimension[0]) != m.Sparse.Rows || int(m.Dimension[1]) != m.Sparse.Cols {
			return fmt.Errorf("%w: %q dimensions %v do not match sparse %dx%d", ErrInvalidArray, m.Name, m.Dimension, m.Sparse.Rows, m.Sparse.Cols)
		}
		if err := m.Sparse.validate(m.Complex); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidArray, m.Name, err)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownArrayClass, uint8(m.Class))
	}
	return nil
}

// classForDataType maps a numeric on-disk type to the class that stores it natively.
func classForDataType(dt DataType) Class {
	switch dt {
	case DTmiDOUBLE:
		return ClassDouble
	case DTmiSINGLE:
		return ClassSingle
	case DTmiINT8:
		return ClassInt8
	case DTmiUINT8:
		return ClassUint8
	case DTmiINT16:
		return ClassInt16
	case DTmiUINT16:
		return ClassUint16
	case DTmiINT32:
		return ClassInt32
	case DTmiUINT32:
		return ClassUint32
	case DTmiINT64:
		return ClassInt64
	case DTmiUINT64:
		return ClassUint64
	default:
		return ClassEmpty
	}
}
