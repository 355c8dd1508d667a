package app

import (
	"context"
	"fmt"
	"time"

	"github.com/lanr/missionsync/internal/adapters/gateway"
	"github.com/lanr/missionsync/pkg/logger"
)

// Sync runs one synchronization: it plans, then appends every step in order.
//
// Each append is an independent call to an independent range. A failed append
// is logged and reported and the remaining steps still run; nothing is retried
// in-process. Running Sync again reads fresh cursors, so destinations that
// succeeded are not appended twice. Steps with no new rows make no call.
//
// The returned error is reserved for failures that prevent a report, such as a
// cancelled context before planning finished; per-destination failures are in
// the report (see Report.Failed and Report.Err).
func (e *Engine) Sync(ctx context.Context) (*Report, error) {
	started := e.now()

	plan, err := e.Plan(ctx)
	if err != nil {
		return nil, err
	}
	log := e.logger.With(logger.String("run_id", plan.RunID))

	rep := &Report{
		RunID:        plan.RunID,
		StartedAt:    started,
		SourceErrors: plan.SourceErrors,
		Drift:        plan.Drift,
		Malformed:    plan.Malformed,
	}

	for _, s := range plan.Steps {
		rep.Results = append(rep.Results, e.apply(ctx, log, s))
	}

	rep.FinishedAt = e.now()
	e.metrics.RecordRun(rep.FinishedAt.Sub(started).Seconds(), rep.FinishedAt.Unix())

	rows, byStatus := rep.Totals()
	log.Info(ctx, "sync finished",
		logger.Int("rows_appended", rows),
		logger.Int("appended", byStatus[StatusAppended]),
		logger.Int("up_to_date", byStatus[StatusUpToDate]),
		logger.Int("failed", byStatus[StatusFailed]),
		logger.Int("blocked", byStatus[StatusBlocked]),
		logger.Int("source_errors", len(rep.SourceErrors)),
	)
	return rep, nil
}

func (e *Engine) apply(ctx context.Context, log logger.Logger, s Step) Result {
	res := newResult(s)
	name := s.Destination.Name
	log = log.With(logger.String("destination", name), logger.String("table", res.Table))

	if s.Err != nil {
		res.Status, res.Err = StatusBlocked, s.Err
		e.metrics.RecordAppendSkipped(name)
		log.Warn(ctx, "append blocked", logger.Error(s.Err))
		return res
	}
	if len(s.Rows) == 0 {
		res.Status = StatusUpToDate
		log.Debug(ctx, "nothing to append", logger.Int("cursor", s.Cursor))
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Status, res.Err = StatusBlocked, err
		e.metrics.RecordAppendSkipped(name)
		return res
	}

	start := time.Now()
	out, err := e.gateway.AppendRows(ctx, s.Destination.Table, s.Rows)
	e.metrics.RecordGatewayLatency(gateway.OpAppend, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		res.Status, res.Err = StatusFailed, fmt.Errorf("%w: %w", ErrAppend, err)
		e.metrics.RecordAppendFailure(name)
		log.Error(ctx, "append failed", logger.Int("rows", len(s.Rows)), logger.Error(err))
		return res
	}

	res.Status = StatusAppended
	res.Appended = len(s.Rows)
	res.Range = out.Range
	e.metrics.RecordRowsAppended(name, res.Appended)
	log.Info(ctx, "rows appended",
		logger.Int("cursor", s.Cursor),
		logger.Int("rows", res.Appended),
		logger.String("range", out.Range),
	)
	return res
}
