package matlab

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mbinary "github.com/AnthonyAndroulakis/matlab/internal/binary"
)

var testHeader = NewHeader(time.Date(2013, time.February, 18, 17, 12, 8, 0, time.UTC))

func encodeArrays(t *testing.T, arrays []*Matrix, opts ...Option) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, arrays, append([]Option{WithHeader(testHeader)}, opts...)...))
	return buf.Bytes()
}

func decodeBytes(t *testing.T, data []byte, opts ...Option) *File {
	t.Helper()
	f, err := NewFileFromReader(bytes.NewReader(data), opts...)
	require.NoError(t, err)
	return f
}

// rawRecord builds a miMATRIX element by hand, the way other writers lay it out.
func rawRecord(t *testing.T, attrs, nzmax uint32, dims []int32, name string, body func(w *mbinary.Writer)) []byte {
	t.Helper()
	rec := mbinary.NewWriter()
	var flags [8]byte
	binary.LittleEndian.PutUint32(flags[:4], attrs)
	binary.LittleEndian.PutUint32(flags[4:], nzmax)
	writeElement(rec, DTmiUINT32, flags[:])
	d, err := binary.Append(nil, binary.LittleEndian, dims)
	require.NoError(t, err)
	writeElement(rec, DTmiINT32, d)
	writeElement(rec, DTmiINT8, []byte(name))
	if body != nil {
		body(rec)
	}

	out := mbinary.NewWriter()
	tag := writeTag(out, DTmiMATRIX, rec.Len())
	out.WriteBytes(rec.Bytes())
	out.WriteZeros(tag.Padding())
	return out.Bytes()
}

func rawFile(t *testing.T, elements ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, writeHeader(&buf, testHeader))
	for _, el := range elements {
		buf.Write(el)
	}
	return buf.Bytes()
}

func float64Bytes(vals ...float64) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

func int32Bytes(vals ...int32) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}

func sampleArrays(t *testing.T) []*Matrix {
	names := NewCell("Names", []int32{5, 1})
	for i, n := range []string{"Alice", "Bob", "Carol", "Dave", "Eve"} {
		require.NoError(t, names.SetCell(i, NewChar("", n)))
	}

	x := NewStruct("X", []int32{1, 1}, "w", "y", "z")
	for i, f := range x.Fields {
		require.NoError(t, x.SetField(f, 0, NewNumeric("", []int32{1, 1}, []uint8{uint8(i + 1)})))
	}

	people := NewStruct("People", []int32{1, 2}, "name")
	require.NoError(t, people.SetField("name", 0, NewChar("", "Ada")))
	require.NoError(t, people.SetField("name", 1, NewChar("", "Grace")))
	require.NoError(t, people.SetField("age", 1, NewDouble("", []int32{1, 1}, []float64{85})))

	global := NewDouble("G", []int32{1, 1}, []float64{42})
	global.Global = true

	rows := &Matrix{Name: "Rows", Dimension: []int32{2, 3}, Class: ClassChar, Chars: []uint16{'a', 'd', 'b', 'e', 'c', 'f'}}

	return []*Matrix{
		names,
		x,
		people,
		NewChar("AName", "Hello from Go! ∑"),
		rows,
		NewSparse("S", 3, 3, []SparseEntry{{0, 0, 1.5, 0}, {1, 1, 2.5, 0}, {2, 2, 3.5, 0}}, false),
		NewSparse("SC", 4, 2, []SparseEntry{{3, 1, 1, -1}, {0, 0, 2, 0.5}}, true),
		NewDouble("Double", []int32{1, 2}, []float64{math.MaxFloat64, -math.MaxFloat64}),
		NewNumeric("Single", []int32{1, 2}, []float32{math.MaxFloat32, -math.MaxFloat32}),
		NewNumeric("Int8", []int32{1, 2}, []int8{math.MinInt8, math.MaxInt8}),
		NewNumeric("UInt8", []int32{1, 2}, []uint8{0, math.MaxUint8}),
		NewNumeric("Int16", []int32{1, 2}, []int16{math.MinInt16, math.MaxInt16}),
		NewNumeric("UInt16", []int32{1, 2}, []uint16{0, math.MaxUint16}),
		NewNumeric("Int32", []int32{1, 2}, []int32{math.MinInt32, math.MaxInt32}),
		NewNumeric("UInt32", []int32{1, 2}, []uint32{0, math.MaxUint32}),
		NewNumeric("Int64", []int32{1, 2}, []int64{math.MinInt64, math.MaxInt64}),
		NewNumeric("UInt64", []int32{1, 2}, []uint64{0, math.MaxUint64}),
		NewComplex("Imag", []int32{2, 1}, []float64{1, 2}, []float64{-1, 0.5}),
		NewComplex("CInt16", []int32{1, 2}, []int16{1, -2}, []int16{3, 4}),
		NewLogical("Mask", []int32{1, 3}, []bool{true, false, true}),
		NewDouble("Cube", []int32{2, 2, 2}, []float64{1, 2, 3, 4, 5, 6, 7, 8}),
		NewDouble("None", []int32{0, 0}, nil),
		global,
	}
}

func TestRoundtrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		arrays := sampleArrays(t)
		data := encodeArrays(t, arrays, WithCompression(compress))
		f := decodeBytes(t, data)

		assert.Equal(t, testHeader.Description, f.Header.String())
		require.Len(t, f.GetVarsNames(), len(arrays))
		for i, got := range f.Arrays() {
			assert.Equal(t, arrays[i], got, "compress=%v array %q", compress, arrays[i].Name)
		}
	}
}

func TestRoundtripIsByteIdentical(t *testing.T) {
	for _, compress := range []bool{false, true} {
		first := encodeArrays(t, sampleArrays(t), WithCompression(compress))
		f := decodeBytes(t, first)
		second := encodeArrays(t, f.Arrays(), WithCompression(compress))
		assert.Equal(t, first, second, "compress=%v", compress)
	}
}

func TestNestedCellStruct(t *testing.T) {
	inner := NewStruct("", []int32{1, 1}, "v")
	require.NoError(t, inner.SetField("v", 0, NewNumeric("", []int32{2, 2}, []int32{1, 2, 3, 4})))
	outer := NewCell("Outer", []int32{1, 3})
	require.NoError(t, outer.SetCell(0, inner))
	require.NoError(t, outer.SetCell(2, NewChar("", "tail")))

	data := encodeArrays(t, []*Matrix{outer})
	f := decodeBytes(t, data)
	got, ok := f.GetVar("Outer")
	require.True(t, ok)

	v := got.GetAtLocation(0).Field("v", 0)
	require.NotNil(t, v)
	ints, err := v.IntArray()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, ints)
	assert.Equal(t, ClassEmpty, got.GetAtLocation(1).Class)
	assert.Equal(t, "tail", got.GetAtLocation(2).Text())

	assert.Equal(t, data, encodeArrays(t, f.Arrays()))
}

func TestMixedCells(t *testing.T) {
	z := NewCell("Z", []int32{1, 2})
	require.NoError(t, z.SetCell(0, NewChar("", "someString")))
	require.NoError(t, z.SetCell(1, NewDouble("", []int32{1, 1}, []float64{123.0})))

	f := decodeBytes(t, encodeArrays(t, []*Matrix{z}))
	assert.Equal(t, []string{"Z"}, f.GetVarsNames())
	r, hasVar := f.GetVar("Z")
	require.True(t, hasVar)
	assert.Equal(t, []int32{1, 2}, r.Dimension)
	assert.Equal(t, "someString", r.GetAtLocation(0).Text())
	d, err := r.GetAtLocation(1).DoubleArray()
	require.NoError(t, err)
	assert.Equal(t, []float64{123.0}, d)
	assert.Nil(t, r.GetAtLocation(100))

	_, hasVar = f.GetVar("missing")
	assert.False(t, hasVar)
}

func TestEncodedLayout(t *testing.T) {
	data := encodeArrays(t, []*Matrix{NewDouble("x", []int32{1, 1}, []float64{1.5})})
	require.Len(t, data, headerLen+64)
	assert.Equal(t, []byte(testHeader.Description), data[:len(testHeader.Description)])
	assert.Equal(t, []byte{0x00, 0x01, 'I', 'M'}, data[124:headerLen])

	want := []byte{
		14, 0, 0, 0, 56, 0, 0, 0, // miMATRIX
		6, 0, 0, 0, 8, 0, 0, 0, 6, 0, 0, 0, 0, 0, 0, 0, // flags: double
		5, 0, 0, 0, 8, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, // dims 1x1
		1, 0, 1, 0, 'x', 0, 0, 0, // packed name
		9, 0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xf8, 0x3f, // 1.5
	}
	assert.Equal(t, want, data[headerLen:])
}

func TestEncodedLayoutCompressed(t *testing.T) {
	data := encodeArrays(t, []*Matrix{NewDouble("x", []int32{1, 1}, []float64{1.5})}, WithCompressionLevel(zlib.BestSpeed))
	body := data[headerLen:]
	assert.Equal(t, uint32(DTmiCOMPRESSED), binary.LittleEndian.Uint32(body))
	assert.Equal(t, len(body)-8, int(binary.LittleEndian.Uint32(body[4:])), "compressed payload is not padded")

	segment, err := inflate(body[8:], 0)
	require.NoError(t, err)
	assert.Len(t, segment, 64)
}

func TestEmptyCollection(t *testing.T) {
	data := encodeArrays(t, nil)
	assert.Len(t, data, headerLen)
	f := decodeBytes(t, data)
	assert.Empty(t, f.GetVarsNames())
	assert.Empty(t, f.Vars())
}

func TestFilter(t *testing.T) {
	for _, compress := range []bool{false, true} {
		data := encodeArrays(t, sampleArrays(t), WithCompression(compress))

		f := decodeBytes(t, data, WithFilter(FilterFunc(func(string) bool { return false })))
		assert.Empty(t, f.GetVarsNames())
		assert.Equal(t, testHeader.Description, f.Header.Description)

		f = decodeBytes(t, data, WithFilter(NewNameFilter("S", "Double", "absent")))
		assert.Equal(t, []string{"S", "Double"}, f.GetVarsNames())

		f = decodeBytes(t, data, WithFilter(NewNameFilter()))
		assert.Len(t, f.GetVarsNames(), len(sampleArrays(t)))
	}
}

func TestDuplicateNamesLastWins(t *testing.T) {
	data := encodeArrays(t, []*Matrix{
		NewDouble("a", []int32{1, 1}, []float64{1}),
		NewDouble("b", []int32{1, 1}, []float64{2}),
		NewDouble("a", []int32{1, 1}, []float64{3}),
	})
	f := decodeBytes(t, data)
	assert.Equal(t, []string{"a", "b"}, f.GetVarsNames())
	a, _ := f.GetVar("a")
	assert.Equal(t, []float64{3}, a.Real)
}

func TestTruncatedStream(t *testing.T) {
	for _, compress := range []bool{false, true} {
		data := encodeArrays(t, sampleArrays(t)[:3], WithCompression(compress))

		_, err := NewFileFromReader(bytes.NewReader(data[:len(data)-1]))
		assert.ErrorIs(t, err, ErrTruncatedRecord, "compress=%v", compress)

		_, err = NewFileFromReader(bytes.NewReader(data[:headerLen+4]))
		assert.ErrorIs(t, err, ErrTruncatedRecord, "compress=%v", compress)
	}

	f := decodeBytes(t, encodeArrays(t, sampleArrays(t))[:headerLen])
	assert.Empty(t, f.GetVarsNames())
}

func TestDecodeRejects(t *testing.T) {
	double := func(w *mbinary.Writer) { writeElement(w, DTmiDOUBLE, float64Bytes(1)) }

	cases := map[string]struct {
		data []byte
		want error
	}{
		"top-level double": {
			data: rawFile(t, func() []byte {
				w := mbinary.NewWriter()
				writeElement(w, DTmiDOUBLE, float64Bytes(1))
				return w.Bytes()
			}()),
			want: ErrUnexpectedTopLevelType,
		},
		"object class": {
			data: rawFile(t, rawRecord(t, uint32(ClassObject), 0, []int32{1, 1}, "o", nil)),
			want: ErrUnknownArrayClass,
		},
		"class zero at top level": {
			data: rawFile(t, rawRecord(t, 0, 0, []int32{1, 1}, "e", nil)),
			want: ErrUnknownArrayClass,
		},
		"class out of range": {
			data: rawFile(t, rawRecord(t, 17, 0, []int32{1, 1}, "q", nil)),
			want: ErrUnknownArrayClass,
		},
		"element overruns record": {
			data: rawFile(t, rawRecord(t, uint32(ClassDouble), 0, []int32{1, 1}, "x", func(w *mbinary.Writer) {
				w.WriteUint32(uint32(DTmiDOUBLE))
				w.WriteUint32(64)
				w.WriteBytes(float64Bytes(1))
			})),
			want: ErrTruncatedRecord,
		},
		"bytes left in record": {
			data: rawFile(t, rawRecord(t, uint32(ClassDouble), 0, []int32{1, 1}, "x", func(w *mbinary.Writer) {
				double(w)
				w.WriteZeros(8)
			})),
			want: ErrTruncatedRecord,
		},
		"payload count mismatch": {
			data: rawFile(t, rawRecord(t, uint32(ClassDouble), 0, []int32{2, 2}, "x", double)),
			want: ErrInvalidArray,
		},
		"nested element not a matrix": {
			data: rawFile(t, rawRecord(t, uint32(ClassCell), 0, []int32{1, 1}, "c", double)),
			want: ErrInvalidArray,
		},
		"nested array overruns parent": {
			data: rawFile(t, rawRecord(t, uint32(ClassCell), 0, []int32{1, 1}, "c", func(w *mbinary.Writer) {
				w.WriteUint32(uint32(DTmiMATRIX))
				w.WriteUint32(256)
				w.WriteZeros(8)
			})),
			want: ErrTruncatedRecord,
		},
		"negative cell dimension": {
			data: rawFile(t, rawRecord(t, uint32(ClassCell), 0, []int32{-1, 1}, "c", nil)),
			want: ErrInvalidArray,
		},
		"negative numeric dimension": {
			data: rawFile(t, rawRecord(t, uint32(ClassDouble), 0, []int32{1, -2}, "x", double)),
			want: ErrInvalidArray,
		},
		"element count overflows": {
			data: rawFile(t, rawRecord(t, uint32(ClassCell), 0, []int32{1 << 30, 1 << 30, 1 << 30}, "c", nil)),
			want: ErrInvalidArray,
		},
		"cell larger than record": {
			data: rawFile(t, rawRecord(t, uint32(ClassCell), 0, []int32{4096, 4096}, "c", func(w *mbinary.Writer) {
				w.WriteBytes([]byte{14, 0, 0, 0, 0, 0, 0, 0})
			})),
			want: ErrTruncatedRecord,
		},
		"struct larger than record": {
			data: rawFile(t, rawRecord(t, uint32(ClassStruct), 0, []int32{4096, 4096}, "s", func(w *mbinary.Writer) {
				writeElement(w, DTmiINT32, int32Bytes(8))
				writeElement(w, DTmiINT8, []byte{'a', 0, 0, 0, 0, 0, 0, 0})
				w.WriteBytes([]byte{14, 0, 0, 0, 0, 0, 0, 0})
			})),
			want: ErrTruncatedRecord,
		},
		"short compressed block": {
			data: rawFile(t, []byte{15, 0, 0, 0, 4, 0, 0, 0, 0x78, 0x9c, 0, 0}),
			want: ErrMalformedCompressedBlock,
		},
		"big endian": {
			data: rawHeader(testDescription, [2]byte{0x01, 0x00}, "MI"),
			want: ErrUnsupportedByteOrder,
		},
		"not a mat file": {
			data: []byte("hello"),
			want: ErrNotThisFormat,
		},
	}
	for name, tc := range cases {
		f, err := NewFileFromReader(bytes.NewReader(tc.data))
		assert.ErrorIs(t, err, tc.want, name)
		assert.Nil(t, f, name)
		var fe *FormatError
		assert.ErrorAs(t, err, &fe, name)
	}
}

func TestDecodeForeignLayouts(t *testing.T) {
	// double array stored as miUINT8, the way MATLAB shrinks integral data
	u8 := rawRecord(t, uint32(ClassDouble), 0, []int32{1, 3}, "u", func(w *mbinary.Writer) {
		writeElement(w, DTmiUINT8, []byte{1, 2, 255})
	})

	// struct with the fixed 32-byte field name length and an empty slot
	s := rawRecord(t, uint32(ClassStruct), 0, []int32{1, 1}, "s", func(w *mbinary.Writer) {
		writeElement(w, DTmiINT32, int32Bytes(32))
		names := make([]byte, 64)
		copy(names, "a")
		copy(names[32:], "bb")
		writeElement(w, DTmiINT8, names)
		w.WriteBytes(rawRecord(t, uint32(ClassDouble), 0, []int32{1, 1}, "", func(w *mbinary.Writer) {
			writeElement(w, DTmiDOUBLE, float64Bytes(7))
		}))
		w.WriteBytes([]byte{14, 0, 0, 0, 0, 0, 0, 0})
	})

	// UTF-8 character data
	c := rawRecord(t, uint32(ClassChar), 0, []int32{1, 2}, "c", func(w *mbinary.Writer) {
		writeElement(w, DTmiUTF8, []byte("hé"))
	})

	// sparse with nzmax larger than the stored nonzeros
	sp := rawRecord(t, uint32(ClassSparse), 3, []int32{2, 2}, "sp", func(w *mbinary.Writer) {
		writeElement(w, DTmiINT32, int32Bytes(0, 1, 0))
		writeElement(w, DTmiINT32, int32Bytes(0, 1, 2))
		writeElement(w, DTmiDOUBLE, float64Bytes(1, 2, 0))
	})

	// two records sharing one compressed segment
	z, err := deflate(append(rawRecord(t, uint32(ClassInt16)|flagGlobal, 0, []int32{1, 1}, "z1", func(w *mbinary.Writer) {
		writeElement(w, DTmiINT16, []byte{0xff, 0xff})
	}), rawRecord(t, uint32(ClassUint8)|flagLogical, 0, []int32{1, 1}, "z2", func(w *mbinary.Writer) {
		writeElement(w, DTmiUINT8, []byte{1})
	})...), zlib.DefaultCompression)
	require.NoError(t, err)
	framed := mbinary.NewWriter()
	writeTag(framed, DTmiCOMPRESSED, len(z))
	framed.WriteBytes(z)

	empty := []byte{14, 0, 0, 0, 0, 0, 0, 0}

	f := decodeBytes(t, rawFile(t, empty, u8, s, c, sp, framed.Bytes()))
	assert.Equal(t, []string{"u", "s", "c", "sp", "z1", "z2"}, f.GetVarsNames())

	u, _ := f.GetVar("u")
	assert.Equal(t, []float64{1, 2, 255}, u.Real)

	st, _ := f.GetVar("s")
	assert.Equal(t, []string{"a", "bb"}, st.Fields)
	assert.Equal(t, []float64{7}, st.Field("a", 0).Real)
	assert.Equal(t, ClassEmpty, st.Field("bb", 0).Class)

	ch, _ := f.GetVar("c")
	assert.Equal(t, "hé", ch.Text())

	spm, _ := f.GetVar("sp")
	assert.Equal(t, 3, spm.Sparse.NzMax)
	assert.Equal(t, []SparseEntry{{Row: 0, Col: 0, Real: 1}, {Row: 1, Col: 1, Real: 2}}, spm.Sparse.Entries())

	z1, _ := f.GetVar("z1")
	assert.True(t, z1.Global)
	assert.Equal(t, []int16{-1}, z1.Real)
	z2, _ := f.GetVar("z2")
	assert.True(t, z2.Logical)
}

func TestEncodeRejects(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, []*Matrix{NewEmpty()})
	assert.ErrorIs(t, err, ErrInvalidArray)
	assert.Zero(t, buf.Len())

	err = Encode(&buf, []*Matrix{nil})
	assert.ErrorIs(t, err, ErrInvalidArray)

	err = Encode(&buf, []*Matrix{NewDouble("bad", []int32{2, 2}, []float64{1})})
	assert.ErrorIs(t, err, ErrInvalidArray)
	assert.Zero(t, buf.Len())

	lowNzMax := &Matrix{Name: "sp", Dimension: []int32{2, 2}, Class: ClassSparse, Sparse: &Sparse{
		Rows: 2, Cols: 2,
		Ir:   []int32{0},
		Jc:   []int32{0, 1, 1},
		Real: []float64{1},
	}}
	err = Encode(&buf, []*Matrix{lowNzMax})
	assert.ErrorIs(t, err, ErrInvalidArray, "nzmax below nonzero count")
	assert.Zero(t, buf.Len())

	err = Encode(&buf, []*Matrix{NewDouble("x", []int32{1, 1}, []float64{1})}, WithHeader(&Header{Description: "plain text"}))
	assert.ErrorIs(t, err, ErrNotThisFormat)
}

func TestWriterStreams(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithHeader(testHeader))
	require.NoError(t, w.WriteMatrix(NewChar("first", "1")))
	require.NoError(t, w.WriteMatrix(NewChar("second", "2")))
	require.NoError(t, w.Flush())

	f := decodeBytes(t, buf.Bytes())
	assert.Equal(t, []string{"first", "second"}, f.GetVarsNames())
}

func TestLogger(t *testing.T) {
	var logs bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	data := encodeArrays(t, []*Matrix{NewDouble("x", []int32{1, 1}, []float64{1})}, WithCompression(true), WithLogger(l))
	assert.Contains(t, logs.String(), `"msg":"compressed array"`)

	logs.Reset()
	decodeBytes(t, data, WithLogger(l))
	assert.Contains(t, logs.String(), `"msg":"inflated element"`)
	assert.Contains(t, logs.String(), `"msg":"decoded array"`)
	assert.Contains(t, logs.String(), `"name":"x"`)
}

func TestWriteFileOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.mat")
	arrays := sampleArrays(t)
	require.NoError(t, WriteFile(path, arrays, WithCompression(true)))

	f, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, arrays, f.Arrays())
	assert.Equal(t, "5.0", f.Header.Level)

	_, err = Open(filepath.Join(t.TempDir(), "missing.mat"))
	assert.ErrorIs(t, err, ErrIO)
}

func TestMaxInflatedSize(t *testing.T) {
	data := encodeArrays(t, []*Matrix{NewDouble("x", []int32{1, 1}, []float64{1.5})}, WithCompression(true))

	_, err := NewFileFromReader(bytes.NewReader(data), WithMaxInflatedSize(63))
	assert.ErrorIs(t, err, ErrMalformedCompressedBlock)

	f := decodeBytes(t, data, WithMaxInflatedSize(64))
	assert.Equal(t, []string{"x"}, f.GetVarsNames())
}
