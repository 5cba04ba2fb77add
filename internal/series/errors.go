package series

import (
	"errors"
	"fmt"
)

var (
	ErrDimensionMismatch = errors.New("times and values differ in length")
	ErrNotImplemented    = errors.New("interpolation method not implemented")
	ErrUnsorted          = errors.New("times are not in ascending order")
	ErrEmptySeries       = errors.New("series has no points")
	ErrNoOverlap         = errors.New("series do not overlap in time")
	ErrMissingField      = errors.New("field missing from record")
	ErrRangeRejected     = errors.New("timestamp outside the accepted range")
	ErrBadTimestamp      = errors.New("unrecognized timestamp")
	ErrBadQuery          = errors.New("bad series query")
)

// NumericParseError reports a value that is not a number after normalization.
type NumericParseError struct {
	Value string
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("cannot interpret %q as a number", e.Value)
}
