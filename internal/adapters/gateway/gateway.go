// Package gateway defines the destination table store and its implementations:
// Google Sheets for production, SQLite for offline runs and an in-memory store.
package gateway

import (
	"context"

	"github.com/lanr/missionsync/internal/domain/layout"
)

// Gateway reads row counts from and appends rows to destination tables.
type Gateway interface {
	// RowCount returns the number of rows currently held by the table.
	// The count is the index of the next unwritten row.
	RowCount(ctx context.Context, t layout.Table) (int, error)

	// AppendRows appends rows after the last row of the table.
	AppendRows(ctx context.Context, t layout.Table, rows [][]any) (AppendResult, error)
}

// AppendResult describes a completed append.
type AppendResult struct {
	// Range is the store's description of the cells written, in A1 notation
	// where the store provides one.
	Range string
	Rows  int
}
