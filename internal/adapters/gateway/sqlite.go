package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lanr/missionsync/internal/domain/layout"

	_ "modernc.org/sqlite"
)

// SQLite is a Gateway backed by a local SQLite file. Each destination table is
// a set of rows keyed by sheet, range and row index; cells are stored as JSON.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS table_rows (
  sheet      TEXT NOT NULL,
  cell_range TEXT NOT NULL,
  row_index  INTEGER NOT NULL,
  cells      TEXT NOT NULL,
  PRIMARY KEY (sheet, cell_range, row_index)
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table_rows: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RowCount implements Gateway.
func (s *SQLite) RowCount(ctx context.Context, t layout.Table) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM table_rows WHERE sheet = ? AND cell_range = ?`,
		t.Sheet, t.Range,
	).Scan(&n)
	if err != nil {
		return 0, wrap(OpRowCount, t, err)
	}
	return n, nil
}

// AppendRows implements Gateway. Rows are written in one transaction, after
// the current last row.
func (s *SQLite) AppendRows(ctx context.Context, t layout.Table, rows [][]any) (AppendResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AppendResult{}, wrap(OpAppend, t, err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_index) + 1, 0) FROM table_rows WHERE sheet = ? AND cell_range = ?`,
		t.Sheet, t.Range,
	).Scan(&next)
	if err != nil {
		return AppendResult{}, wrap(OpAppend, t, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO table_rows (sheet, cell_range, row_index, cells) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return AppendResult{}, wrap(OpAppend, t, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range rows {
		cells, err := json.Marshal(r)
		if err != nil {
			return AppendResult{}, wrap(OpAppend, t, fmt.Errorf("encode row %d: %w", i, err))
		}
		if _, err := stmt.ExecContext(ctx, t.Sheet, t.Range, next+i, string(cells)); err != nil {
			return AppendResult{}, wrap(OpAppend, t, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return AppendResult{}, wrap(OpAppend, t, err)
	}

	return AppendResult{
		Range: fmt.Sprintf("%s rows %d-%d", t.A1(), next+1, next+len(rows)),
		Rows:  len(rows),
	}, nil
}

// Rows returns the rows of t in append order. Numbers come back as float64.
func (s *SQLite) Rows(ctx context.Context, t layout.Table) ([][]any, error) {
	rs, err := s.db.QueryContext(ctx,
		`SELECT cells FROM table_rows WHERE sheet = ? AND cell_range = ? ORDER BY row_index`,
		t.Sheet, t.Range,
	)
	if err != nil {
		return nil, wrap(OpRowCount, t, err)
	}
	defer func() { _ = rs.Close() }()

	var out [][]any
	for rs.Next() {
		var raw string
		if err := rs.Scan(&raw); err != nil {
			return nil, err
		}
		var row []any
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, row)
	}
	return out, rs.Err()
}
