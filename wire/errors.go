package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Malformed input
var (
	ErrInvalidWireType     = errors.New("invalid wire type")
	ErrInvalidUTF8         = errors.New("string not UTF-8 encoded")
	ErrVarintOverflow      = errors.New("varint overflows 64 bits")
	ErrFieldNumberOverflow = errors.New("field number overflows 32 bits")
	ErrLengthTooLarge      = errors.New("length prefix exceeds limit")
	ErrUnexpectedEndGroup  = errors.New("unexpected end group")
	ErrGroupTooDeep        = errors.New("group nesting too deep")
)

// ErrTruncated is returned when input ends in the middle of a field.
// A clean end of input at a field boundary is io.EOF instead.
var ErrTruncated = errors.New("unexpected EOF")

// Field access errors
var (
	ErrUnexpectedFieldType = errors.New("unexpected field type")
	ErrFieldConsumed       = errors.New("field already consumed")
	ErrFieldPending        = errors.New("previous field not consumed")
)

// Encoding errors
var (
	ErrBufferTooSmall     = errors.New("destination buffer not large enough to contain serialized message")
	ErrSerializerMismatch = errors.New("invalid serializer for current message")
)

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["order", "items", "sku"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at field path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for compatibility.
func (e *FieldError) Is(target error) bool {
	_, ok := target.(*FieldError)
	return ok
}

// WrapField prefixes err's field path with fieldName. Wrapping an existing
// FieldError extends its path instead of nesting another FieldError.
func WrapField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}
