package matlab

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by the codec wraps exactly one of these
// (ErrIO additionally wraps the underlying reader or writer error).
var (
	ErrNotThisFormat            = errors.New("not a MATLAB 5.0 MAT-file")
	ErrUnsupportedByteOrder     = errors.New("unsupported byte order")
	ErrMalformedCompressedBlock = errors.New("malformed compressed block")
	ErrTruncatedRecord          = errors.New("truncated or oversized record")
	ErrUnknownArrayClass        = errors.New("unknown array class")
	ErrUnexpectedTopLevelType   = errors.New("unexpected top-level element type")
	ErrInvalidArray             = errors.New("invalid array")
	ErrIO                       = errors.New("i/o error")
)

// FormatError reports a failed decode or encode step.
type FormatError struct {
	Op  string // e.g. "read header", "read matrix"
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("matlab: %s: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErr(op string, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		return err
	}
	return &FormatError{Op: op, Err: err}
}

func ioErr(op string, err error) error {
	return &FormatError{Op: op, Err: fmt.Errorf("%w: %w", ErrIO, err)}
}
