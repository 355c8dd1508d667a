package session

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMalformedDocument = errors.New("malformed session document")
	ErrValueParse        = errors.New("session value parse failed")
)

// ValueParseError names the entry and metric whose text is not a number.
type ValueParseError struct {
	Entry  int // 0-based position of the entry in document order
	Metric Metric
	Value  string
	Err    error
}

func (e *ValueParseError) Error() string {
	return fmt.Sprintf("entry %d: %s value %q: %v", e.Entry, e.Metric, e.Value, e.Err)
}

func (e *ValueParseError) Is(target error) bool { return target == ErrValueParse }

func (e *ValueParseError) Unwrap() error { return e.Err }
