package app

import "errors"

// Sentinel kinds for sync errors.
var (
	// ErrCursor marks a destination whose row count could not be read. Its
	// append is refused: without a trustworthy cursor the delta is unknown.
	ErrCursor = errors.New("destination cursor unavailable")
	// ErrSource marks a destination whose local source could not be read.
	ErrSource = errors.New("source unavailable")
	// ErrAppend marks a destination whose append failed at the gateway.
	ErrAppend = errors.New("append failed")
)
