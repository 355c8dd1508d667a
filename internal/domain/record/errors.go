package record

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMalformedRecord = errors.New("malformed record")
)

// MalformedRecordError reports a record too short for a field the schema requires.
type MalformedRecordError struct {
	Index  int // position of the record in the classified input
	Offset int // field offset that was requested
	Width  int // number of fields the record actually has
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("record %d: field %d requested but record has %d fields", e.Index, e.Offset, e.Width)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }
