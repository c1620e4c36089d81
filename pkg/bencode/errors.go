package bencode

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEncoding = errors.New("bencode: invalid encoding")
	ErrTruncatedInput  = errors.New("bencode: truncated input")
	ErrTypeMismatch    = errors.New("bencode: type mismatch")
	ErrIndexOutOfRange = errors.New("bencode: index out of range")
	ErrEmptyValue      = errors.New("bencode: cannot serialize empty value")
	ErrCyclicValue     = errors.New("bencode: value contains itself")

	ErrDuplicateKey   = fmt.Errorf("%w: duplicate dictionary key", ErrInvalidEncoding)
	ErrNestingTooDeep = fmt.Errorf("%w: nesting too deep", ErrInvalidEncoding)
	ErrStringTooLong  = fmt.Errorf("%w: string length exceeds limit", ErrInvalidEncoding)
)

// SyntaxError describes where in the input a parse failed.
// Err is ErrTruncatedInput, ErrInvalidEncoding or one of the errors wrapping it.
type SyntaxError struct {
	Offset int64
	Reason string
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Offset, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func typeMismatch(want, have Kind) error {
	return fmt.Errorf("%w: want %s, have %s", ErrTypeMismatch, want, have)
}
