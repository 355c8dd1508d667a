// Package source reads the local assessment data: the delimited survey log and
// the directory of per-subject session history documents.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lanr/missionsync/internal/domain/record"
)

// LoadRecords reads every row of the delimited log at path, in file order.
//
// Fields are kept as text. Rows may have different widths unless WithStrict is
// given, in which case a row that differs from the first fails with ErrFormat.
func LoadRecords(path string, opts ...Option) ([]record.Record, error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceIO, err)
	}
	defer func() { _ = f.Close() }()

	return readRecords(f, o)
}

func readRecords(r io.Reader, o options) ([]record.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = o.delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	if o.strict {
		cr.FieldsPerRecord = 0
	}

	var out []record.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, fmt.Errorf("%w: %w", ErrFormat, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrSourceIO, err)
		}
		out = append(out, record.Record(row))
	}
}
