package matlab

import "fmt"

// Class is the MATLAB array class stored in the low byte of the array flags.
type Class uint8

// MATLAB Array Types (Classes)
const (
	ClassEmpty  Class = iota // no data; a zero-length cell or struct slot
	ClassCell                // Cell array
	ClassStruct              // Structure
	ClassObject              // Object, not supported
	ClassChar                // Character array
	ClassSparse              // Sparse array
	ClassDouble              // Double precision array
	ClassSingle              // Single precision array
	ClassInt8                // 8-bit, signed integer
	ClassUint8               // 8-bit, unsigned integer
	ClassInt16               // 16-bit, signed integer
	ClassUint16              // 16-bit, unsigned integer
	ClassInt32               // 32-bit, signed integer
	ClassUint32              // 32-bit, unsigned integer
	ClassInt64               // 64-bit, signed integer
	ClassUint64              // 64-bit, unsigned integer
)

func (c Class) String() string {
	switch c {
	case ClassEmpty:
		return "Empty array"
	case ClassCell:
		return "Cell array"
	case ClassStruct:
		return "Structure"
	case ClassObject:
		return "Object"
	case ClassChar:
		return "Character array"
	case ClassSparse:
		return "Sparse array"
	case ClassDouble:
		return "Double precision array"
	case ClassSingle:
		return "Single precision array"
	case ClassInt8:
		return "8-bit, signed integer"
	case ClassUint8:
		return "8-bit, unsigned integer"
	case ClassInt16:
		return "16-bit, signed integer"
	case ClassUint16:
		return "16-bit, unsigned integer"
	case ClassInt32:
		return "32-bit, signed integer"
	case ClassUint32:
		return "32-bit, unsigned integer"
	case ClassInt64:
		return "64-bit, signed integer"
	case ClassUint64:
		return "64-bit, unsigned integer"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// IsNumeric reports whether the class stores dense real/imaginary payloads.
func (c Class) IsNumeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

// Array flag bits above the class byte.
const (
	flagLogical = 0x0200
	flagGlobal  = 0x0400
	flagComplex = 0x0800
)
