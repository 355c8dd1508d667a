package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lanr/missionsync/internal/adapters/gateway"
	"github.com/lanr/missionsync/internal/domain/batch"
	"github.com/lanr/missionsync/internal/domain/layout"
	"github.com/lanr/missionsync/internal/domain/record"
	"github.com/lanr/missionsync/internal/domain/session"
	"github.com/lanr/missionsync/pkg/logger"
)

// Step is one pending append: a destination, the cursor observed on it and
// the rows it is missing.
type Step struct {
	Destination layout.Destination
	Source      string
	// Cursor is the destination row count read at plan time, -1 when unknown.
	Cursor int
	Rows   [][]any
	// Err is set when the step cannot run; it wraps ErrCursor or ErrSource.
	Err error
}

// SourceError records a local source that could not be read.
type SourceError struct {
	Source string
	Err    error
}

// Drift records a partition table whose cursor disagrees with the number of
// partition records the "all" table already holds, typically after a run that
// failed halfway. The partition's own cursor is used.
type Drift struct {
	Destination string
	Cursor      int
	Expected    int
}

// Plan is the outcome of reading every cursor and source, before any append.
type Plan struct {
	RunID        string
	CreatedAt    time.Time
	Steps        []Step
	SourceErrors []SourceError
	Drift        []Drift
	// Malformed counts, per partition, the records past the committed prefix
	// that were skipped because a field the partition needs is missing.
	Malformed map[string]int
}

// Pending is the number of rows the plan would append.
func (p *Plan) Pending() int {
	n := 0
	for _, s := range p.Steps {
		if s.Err == nil {
			n += len(s.Rows)
		}
	}
	return n
}

// Plan reads every destination cursor and every configured source and works
// out the rows each destination is missing. It never appends.
func (e *Engine) Plan(ctx context.Context) (*Plan, error) {
	p := &Plan{
		RunID:     uuid.NewString(),
		CreatedAt: e.now(),
		Malformed: make(map[string]int),
	}
	log := e.logger.With(logger.String("run_id", p.RunID))

	if e.records != nil {
		e.planRecords(ctx, log, p)
	}
	for _, g := range layout.Groups {
		if e.sessions[g] != nil {
			e.planSessions(ctx, log, p, g)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// cursor reads the row count of d. A failure is returned wrapped in ErrCursor.
func (e *Engine) cursor(ctx context.Context, log logger.Logger, d layout.Destination) (int, error) {
	start := time.Now()
	n, err := e.gateway.RowCount(ctx, d.Table)
	e.metrics.RecordGatewayLatency(gateway.OpRowCount, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		log.Error(ctx, "row count failed",
			logger.String("destination", d.Name),
			logger.String("table", d.Table.A1()),
			logger.Error(err),
		)
		return -1, fmt.Errorf("%w: %w", ErrCursor, err)
	}
	e.metrics.UpdateDestinationCursor(d.Name, n)
	log.Debug(ctx, "cursor read", logger.String("destination", d.Name), logger.Int("rows", n))
	return n, nil
}

func (e *Engine) sourceFailed(ctx context.Context, log logger.Logger, p *Plan, name string, err error) error {
	log.Error(ctx, "source unreadable", logger.String("source", name), logger.Error(err))
	e.metrics.RecordSourceFailure(name)
	p.SourceErrors = append(p.SourceErrors, SourceError{Source: name, Err: err})
	return fmt.Errorf("%w: %s: %w", ErrSource, name, err)
}

func (e *Engine) planRecords(ctx context.Context, log logger.Logger, p *Plan) {
	dests := e.layout.Records
	steps := make([]Step, len(dests))
	for i, d := range dests {
		steps[i] = Step{Destination: d, Source: SourceRecords, Cursor: -1}
	}

	// Cursors first, for every destination, before the source is read.
	for i, d := range dests {
		n, err := e.cursor(ctx, log, d)
		steps[i].Cursor, steps[i].Err = n, err
	}

	records, err := e.records()
	if err != nil {
		serr := e.sourceFailed(ctx, log, p, SourceRecords, err)
		for i := range steps {
			if steps[i].Err == nil {
				steps[i].Err = serr
			}
		}
		p.Steps = append(p.Steps, steps...)
		return
	}
	e.metrics.UpdateSourceRecords(SourceRecords, len(records))

	predicates := [len(dests)]record.Predicate{
		record.All,
		e.schema.SensorPresent(),
		e.schema.SensorAbsent(),
		e.schema.Therapists(),
	}

	// The "all" cursor bounds the committed prefix of the log; it is only known
	// when the "all" row count was read.
	allCursor := steps[0].Cursor
	haveCommitted := allCursor >= 0
	if allCursor > len(records) {
		log.Warn(ctx, "destination holds more rows than the source",
			logger.String("destination", dests[0].Name),
			logger.Int("rows", allCursor),
			logger.Int("source_records", len(records)),
		)
	}
	committed := min(max(allCursor, 0), len(records))

	for i, d := range dests {
		if steps[i].Err != nil {
			continue
		}
		cursor := steps[i].Cursor

		idx, _ := record.Match(records, predicates[i])
		if i > 0 && haveCommitted {
			expected := countBelow(idx, committed)
			if expected != cursor {
				p.Drift = append(p.Drift, Drift{Destination: d.Name, Cursor: cursor, Expected: expected})
				log.Warn(ctx, "partition cursor drift",
					logger.String("destination", d.Name),
					logger.Int("cursor", cursor),
					logger.Int("expected", expected),
				)
			}
		}

		var from int
		switch {
		case i == 0:
			from = committed
		case e.cursorMode == CursorFromAll:
			if !haveCommitted {
				steps[i].Err = fmt.Errorf("%w: %s row count unavailable", ErrCursor, dests[0].Name)
				continue
			}
			from = committed
		default:
			from = tailStart(idx, cursor, len(records))
		}

		tail, cerr := record.Classify(records[from:], predicates[i])

		// Only records new to the log are counted as skipped; earlier ones were
		// reported by the run that first saw them.
		fresh := from
		if haveCommitted {
			fresh = max(from, committed)
		}
		var bad []*record.MalformedRecordError
		for _, m := range record.Malformed(cerr) {
			if from+m.Index >= fresh {
				bad = append(bad, m)
			}
		}
		if len(bad) > 0 {
			p.Malformed[d.Name] = len(bad)
			e.metrics.RecordMalformedRecords(d.Name, len(bad))
			log.Warn(ctx, "records skipped by partition",
				logger.String("destination", d.Name),
				logger.Int("count", len(bad)),
				logger.Int("first_index", from+bad[0].Index),
				logger.Error(bad[0]),
			)
		}

		if len(tail) > 0 {
			rows := make([][]any, len(tail))
			for j, r := range tail {
				rows[j] = r.Cells()
			}
			steps[i].Rows = rows
		}
	}
	p.Steps = append(p.Steps, steps...)
}

// tailStart is the log position right after the cursor-th record of a
// partition, given the positions idx of every partition record.
func tailStart(idx []int, cursor, n int) int {
	switch {
	case cursor <= 0:
		return 0
	case cursor > len(idx):
		return n
	default:
		return idx[cursor-1] + 1
	}
}

// countBelow counts the positions in idx lower than n. idx is ascending.
func countBelow(idx []int, n int) int {
	c := 0
	for _, j := range idx {
		if j >= n {
			break
		}
		c++
	}
	return c
}

func (e *Engine) planSessions(ctx context.Context, log logger.Logger, p *Plan, g layout.Group) {
	name := SessionSourceName(g)
	dests := e.layout.Metrics[g]
	steps := make([]Step, len(dests))
	for _, m := range session.Metrics {
		steps[m] = Step{Destination: dests[m], Source: name, Cursor: -1}
	}

	// Each metric table keeps its own cursor.
	for _, m := range session.Metrics {
		n, err := e.cursor(ctx, log, dests[m])
		steps[m].Cursor, steps[m].Err = n, err
	}

	s, err := e.sessions[g]()
	if err != nil {
		serr := e.sourceFailed(ctx, log, p, name, err)
		for i := range steps {
			if steps[i].Err == nil {
				steps[i].Err = serr
			}
		}
		p.Steps = append(p.Steps, steps...)
		return
	}
	e.metrics.UpdateSourceRecords(name, s.Series.Subjects())

	batches := batch.AssembleAll(s.Series)
	if n := s.Series.Subjects(); n > layout.MetricBlockCapacity {
		log.Warn(ctx, "subjects exceed the metric block height",
			logger.String("source", name),
			logger.Int("subjects", n),
			logger.Int("capacity", layout.MetricBlockCapacity),
		)
	}
	for _, m := range session.Metrics {
		if steps[m].Err != nil {
			continue
		}
		steps[m].Rows = batches[m].Tail(steps[m].Cursor)
	}
	p.Steps = append(p.Steps, steps...)
}
