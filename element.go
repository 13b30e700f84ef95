package matlab

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
	"unicode/utf8"
)

// DataType represents the on-disk type code of a data element.
type DataType uint32

// Data Types as specified according to byte indicators
const (
	DataTypeUnknown DataType = iota // errored data type
	DTmiINT8                        // 8 bit, signed
	DTmiUINT8                       // 8 bit, unsigned
	DTmiINT16                       // 16-bit, signed
	DTmiUINT16                      // 16-bit, unsigned
	DTmiINT32                       // 32-bit, signed
	DTmiUINT32                      // 32-bit, unsigned
	DTmiSINGLE                      // IEEE® 754 single format
	_
	DTmiDOUBLE // IEEE 754 double format
	_
	_
	DTmiINT64      // 64-bit, signed
	DTmiUINT64     // 64-bit, unsigned
	DTmiMATRIX     // MATLAB array
	DTmiCOMPRESSED // Compressed Data
	DTmiUTF8       // Unicode UTF-8 Encoded Character Data
	DTmiUTF16      // Unicode UTF-16 Encoded Character Data
	DTmiUTF32      // Unicode UTF-32 Encoded Character Data
)

func (d DataType) String() string {
	switch d {
	case DTmiINT8:
		return "miINT8"
	case DTmiUINT8:
		return "miUINT8"
	case DTmiINT16:
		return "miINT16"
	case DTmiUINT16:
		return "miUINT16"
	case DTmiINT32:
		return "miINT32"
	case DTmiUINT32:
		return "miUINT32"
	case DTmiSINGLE:
		return "miSINGLE"
	case DTmiDOUBLE:
		return "miDOUBLE"
	case DTmiINT64:
		return "miINT64"
	case DTmiUINT64:
		return "miUINT64"
	case DTmiMATRIX:
		return "miMATRIX"
	case DTmiCOMPRESSED:
		return "miCOMPRESSED"
	case DTmiUTF8:
		return "miUTF8"
	case DTmiUTF16:
		return "miUTF16"
	case DTmiUTF32:
		return "miUTF32"
	default:
		return fmt.Sprintf("DataType(%d)", uint32(d))
	}
}

// NumBytes returns the width of one value of the type, or 0 for the
// variable length types (miMATRIX, miCOMPRESSED) and unknown codes.
func (d DataType) NumBytes() int {
	switch d {
	case DTmiINT8, DTmiUINT8, DTmiUTF8:
		return 1
	case DTmiINT16, DTmiUINT16, DTmiUTF16:
		return 2
	case DTmiINT32, DTmiUINT32, DTmiUTF32, DTmiSINGLE:
		return 4
	case DTmiDOUBLE, DTmiINT64, DTmiUINT64:
		return 8
	default:
		return 0
	}
}

// number is the set of element types an in-memory numeric payload may have.
type number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// decodeNumbers converts the payload of one element stored as dt into a []T.
// The on-disk type and the container type are independent: any scalar code
// may populate any numeric container, with Go conversion semantics.
func decodeNumbers[T number](dt DataType, data []byte) ([]T, error) {
	width := dt.NumBytes()
	if width == 0 {
		return nil, fmt.Errorf("%w: %s cannot hold numeric data", ErrInvalidArray, dt)
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %s values", ErrTruncatedRecord, len(data), dt)
	}
	le := binary.LittleEndian
	out := make([]T, len(data)/width)
	switch dt {
	case DTmiINT8:
		for i := range out {
			out[i] = T(int8(data[i]))
		}
	case DTmiUINT8, DTmiUTF8:
		for i := range out {
			out[i] = T(data[i])
		}
	case DTmiINT16:
		for i := range out {
			out[i] = T(int16(le.Uint16(data[2*i:])))
		}
	case DTmiUINT16, DTmiUTF16:
		for i := range out {
			out[i] = T(le.Uint16(data[2*i:]))
		}
	case DTmiINT32:
		for i := range out {
			out[i] = T(int32(le.Uint32(data[4*i:])))
		}
	case DTmiUINT32, DTmiUTF32:
		for i := range out {
			out[i] = T(le.Uint32(data[4*i:]))
		}
	case DTmiSINGLE:
		for i := range out {
			out[i] = T(math.Float32frombits(le.Uint32(data[4*i:])))
		}
	case DTmiDOUBLE:
		for i := range out {
			out[i] = T(math.Float64frombits(le.Uint64(data[8*i:])))
		}
	case DTmiINT64:
		for i := range out {
			out[i] = T(int64(le.Uint64(data[8*i:])))
		}
	case DTmiUINT64:
		for i := range out {
			out[i] = T(le.Uint64(data[8*i:]))
		}
	}
	return out, nil
}

// decodeClassData reads a numeric payload into the container type of class c.
func decodeClassData(c Class, dt DataType, data []byte) (any, error) {
	switch c {
	case ClassDouble:
		return decodeNumbers[float64](dt, data)
	case ClassSingle:
		return decodeNumbers[float32](dt, data)
	case ClassInt8:
		return decodeNumbers[int8](dt, data)
	case ClassUint8:
		return decodeNumbers[uint8](dt, data)
	case ClassInt16:
		return decodeNumbers[int16](dt, data)
	case ClassUint16:
		return decodeNumbers[uint16](dt, data)
	case ClassInt32:
		return decodeNumbers[int32](dt, data)
	case ClassUint32:
		return decodeNumbers[uint32](dt, data)
	case ClassInt64:
		return decodeNumbers[int64](dt, data)
	case ClassUint64:
		return decodeNumbers[uint64](dt, data)
	default:
		return nil, fmt.Errorf("%w: %s is not numeric", ErrInvalidArray, c)
	}
}

// decodeChars reads character data as UTF-16 code units.
func decodeChars(dt DataType, data []byte) ([]uint16, error) {
	switch dt {
	case DTmiUTF8:
		runes := make([]rune, 0, len(data))
		for len(data) > 0 {
			r, n := utf8.DecodeRune(data)
			runes = append(runes, r)
			data = data[n:]
		}
		return utf16.Encode(runes), nil
	case DTmiUTF32:
		points, err := decodeNumbers[uint32](dt, data)
		if err != nil {
			return nil, err
		}
		runes := make([]rune, len(points))
		for i, p := range points {
			runes[i] = rune(p)
		}
		return utf16.Encode(runes), nil
	default:
		return decodeNumbers[uint16](dt, data)
	}
}

// dataTypeOf returns the on-disk type that stores the numeric container v unchanged.
func dataTypeOf(v any) (DataType, bool) {
	switch v.(type) {
	case []float64:
		return DTmiDOUBLE, true
	case []float32:
		return DTmiSINGLE, true
	case []int8:
		return DTmiINT8, true
	case []uint8:
		return DTmiUINT8, true
	case []int16:
		return DTmiINT16, true
	case []uint16:
		return DTmiUINT16, true
	case []int32:
		return DTmiINT32, true
	case []uint32:
		return DTmiUINT32, true
	case []int64:
		return DTmiINT64, true
	case []uint64:
		return DTmiUINT64, true
	default:
		return DataTypeUnknown, false
	}
}

// encodeNumbers serializes a numeric container in its natural on-disk type.
func encodeNumbers(v any) (DataType, []byte, error) {
	dt, ok := dataTypeOf(v)
	if !ok {
		return DataTypeUnknown, nil, fmt.Errorf("%w: unsupported payload type %T", ErrInvalidArray, v)
	}
	data, err := binary.Append(nil, binary.LittleEndian, v)
	if err != nil {
		return DataTypeUnknown, nil, err
	}
	return dt, data, nil
}

// payloadLen returns the element count of a numeric container, or -1.
func payloadLen(v any) int {
	switch s := v.(type) {
	case []float64:
		return len(s)
	case []float32:
		return len(s)
	case []int8:
		return len(s)
	case []uint8:
		return len(s)
	case []int16:
		return len(s)
	case []uint16:
		return len(s)
	case []int32:
		return len(s)
	case []uint32:
		return len(s)
	case []int64:
		return len(s)
	case []uint64:
		return len(s)
	default:
		return -1
	}
}
