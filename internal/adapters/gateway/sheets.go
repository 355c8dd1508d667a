package gateway

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/lanr/missionsync/internal/domain/layout"
)

// ValueInputUserEntered parses appended values as if typed into the sheet UI.
const ValueInputUserEntered = "USER_ENTERED"

// Sheets is a Gateway over the Google Sheets v4 values API. One authenticated
// service is reused for every call of a run.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	valueInput    string
}

// NewSheets creates a gateway for spreadsheetID. Authentication comes from the
// client options, usually option.WithTokenSource(TokenSource(...)).
func NewSheets(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Sheets, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id must not be empty")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID, valueInput: ValueInputUserEntered}, nil
}

// RowCount implements Gateway. Rows are counted over the table's count range,
// not its append range: the values API only returns rows inside the requested
// range, so a bounded range would cap the count at its height. Trailing empty
// rows are trimmed by the API, so the count is the number of rows up to the
// last non-empty one.
func (s *Sheets) RowCount(ctx context.Context, t layout.Table) (int, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, t.CountA1()).Context(ctx).Do()
	if err != nil {
		return 0, wrap(OpRowCount, t, err)
	}
	return len(resp.Values), nil
}

// AppendRows implements Gateway.
func (s *Sheets) AppendRows(ctx context.Context, t layout.Table, rows [][]any) (AppendResult, error) {
	vr := &sheets.ValueRange{Values: rows}
	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, t.A1(), vr).
		ValueInputOption(s.valueInput).
		Context(ctx).
		Do()
	if err != nil {
		return AppendResult{}, wrap(OpAppend, t, err)
	}

	res := AppendResult{Range: resp.TableRange, Rows: len(rows)}
	if u := resp.Updates; u != nil {
		if u.UpdatedRange != "" {
			res.Range = u.UpdatedRange
		}
		if u.UpdatedRows > 0 {
			res.Rows = int(u.UpdatedRows)
		}
	}
	return res, nil
}
