package gateway

import (
	"errors"
	"fmt"

	"github.com/lanr/missionsync/internal/domain/layout"
)

// Sentinel kinds for gateway errors.
var (
	ErrGateway      = errors.New("gateway call failed")
	ErrUnknownTable = errors.New("unknown table")
	ErrAuth         = errors.New("gateway authorization failed")
)

// Operation names used in errors, logs and metrics.
const (
	OpRowCount = "row_count"
	OpAppend   = "append"
)

// Error wraps a failed remote call with the operation and table it targeted.
type Error struct {
	Op    string
	Table layout.Table
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table.A1(), e.Err)
}

func (e *Error) Is(target error) bool { return target == ErrGateway }

func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, t layout.Table, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Table: t, Err: err}
}
