package source

import "errors"

// Sentinel kinds for source errors.
var (
	ErrSourceIO = errors.New("source unreadable")
	ErrFormat   = errors.New("source format invalid")
)
