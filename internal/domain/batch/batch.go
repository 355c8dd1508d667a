// Package batch reshapes per-subject metric series into row batches for the
// destination store.
package batch

import "github.com/lanr/missionsync/internal/domain/session"

// Batch is a list of rows ready to append. Rows may differ in length: a subject
// with fewer sessions than the window yields a short row and no padding is added.
type Batch [][]any

// Len is the number of rows.
func (b Batch) Len() int { return len(b) }

// Tail returns the rows from offset on, or nil when offset is past the end.
func (b Batch) Tail(offset int) Batch {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(b) {
		return nil
	}
	return b[offset:]
}

// Assemble turns one metric series into a batch: one row per subject in
// extraction order, one column per chronological session.
func Assemble(series session.MetricSeries) Batch {
	b := make(Batch, len(series))
	for i, values := range series {
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		b[i] = row
	}
	return b
}

// AssembleAll assembles the four metric series of a population, indexed by metric.
func AssembleAll(s session.Series) [session.MetricCount]Batch {
	var out [session.MetricCount]Batch
	for _, m := range session.Metrics {
		out[m] = Assemble(s[m])
	}
	return out
}
