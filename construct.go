package matlab

import "unicode/utf16"

// Numeric is the set of Go element types backing the numeric classes.
type Numeric interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// NewNumeric creates a real numeric array whose class follows T.
// data is column-major and must hold the product of dims values.
func NewNumeric[T Numeric](name string, dims []int32, data []T) *Matrix {
	if data == nil {
		data = []T{}
	}
	dt, _ := dataTypeOf(data)
	return &Matrix{
		Name:      name,
		Dimension: dims,
		Class:     classForDataType(dt),
		Real:      data,
	}
}

// NewComplex creates a complex numeric array whose class follows T.
func NewComplex[T Numeric](name string, dims []int32, real, imag []T) *Matrix {
	m := NewNumeric(name, dims, real)
	if imag == nil {
		imag = []T{}
	}
	m.Complex = true
	m.Imag = imag
	return m
}

// NewDouble creates a real double precision array.
func NewDouble(name string, dims []int32, data []float64) *Matrix {
	return NewNumeric(name, dims, data)
}

// NewLogical creates a logical array, stored as uint8 with the logical flag.
func NewLogical(name string, dims []int32, data []bool) *Matrix {
	u := make([]uint8, len(data))
	for i, b := range data {
		if b {
			u[i] = 1
		}
	}
	m := NewNumeric(name, dims, u)
	m.Logical = true
	return m
}

// NewChar creates a 1xN character array holding text.
func NewChar(name, text string) *Matrix {
	chars := utf16.Encode([]rune(text))
	return &Matrix{
		Name:      name,
		Dimension: []int32{1, int32(len(chars))},
		Class:     ClassChar,
		Chars:     chars,
	}
}

// NewCell creates a cell array whose cells all hold empty arrays.
func NewCell(name string, dims []int32) *Matrix {
	m := &Matrix{Name: name, Dimension: dims, Class: ClassCell}
	m.Cells = make([]*Matrix, max(m.NumElements(), 0))
	for i := range m.Cells {
		m.Cells[i] = NewEmpty()
	}
	return m
}

// NewStruct creates a struct array with the given fields, all holding empty arrays.
func NewStruct(name string, dims []int32, fields ...string) *Matrix {
	m := &Matrix{Name: name, Dimension: dims, Class: ClassStruct, Fields: []string{}}
	m.values = []*Matrix{}
	for _, f := range fields {
		if m.fieldIndex(f) < 0 {
			m.addField(f)
		}
	}
	return m
}

// NewEmpty creates the placeholder stored in unset cell and struct slots.
func NewEmpty() *Matrix {
	return &Matrix{Class: ClassEmpty}
}
