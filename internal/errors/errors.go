package cryptoerrors

import (
	"errors"
	"fmt"
)

var (
	ErrSizeMismatch     = errors.New("size mismatch")
	ErrMalformedTable   = errors.New("malformed permutation table")
	ErrUnsupported      = errors.New("unsupported option")
	ErrKeyNotSet        = errors.New("key is not set")
	ErrInvalidPadding   = errors.New("invalid padding")
	ErrMissingParameter = errors.New("missing parameter")
)

// SizeError reports a buffer whose length does not match what an operation
// requires. It matches ErrSizeMismatch under errors.Is.
type SizeError struct {
	What string
	Got  int
	Want int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s must be %d bytes, got %d", e.What, e.Want, e.Got)
}

func (e *SizeError) Is(target error) bool {
	return target == ErrSizeMismatch
}

func NewSizeError(what string, got, want int) error {
	return &SizeError{What: what, Got: got, Want: want}
}
