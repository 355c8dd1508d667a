package app

import (
	"errors"
	"fmt"
	"time"
)

// Status is the outcome of one destination in a run.
type Status string

const (
	// StatusAppended means the missing rows were appended.
	StatusAppended Status = "appended"
	// StatusUpToDate means there was nothing new; no call was made.
	StatusUpToDate Status = "up-to-date"
	// StatusPending means rows are missing but the run did not append (dry run).
	StatusPending Status = "pending"
	// StatusFailed means the append call failed.
	StatusFailed Status = "failed"
	// StatusBlocked means the cursor or the source was unavailable, so no
	// append was attempted.
	StatusBlocked Status = "blocked"
)

// Result reports one destination.
type Result struct {
	Destination string
	Table       string
	Source      string
	Cursor      int
	Pending     int
	Appended    int
	Range       string
	Status      Status
	Err         error
}

// Report summarizes a run per destination.
type Report struct {
	RunID        string
	DryRun       bool
	StartedAt    time.Time
	FinishedAt   time.Time
	Results      []Result
	SourceErrors []SourceError
	Drift        []Drift
	Malformed    map[string]int
}

// Failed reports whether any destination failed or was blocked.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFailed || res.Status == StatusBlocked {
			return true
		}
	}
	return len(r.SourceErrors) > 0
}

// Err joins the errors of every failed or blocked destination. It is nil for a
// clean run.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Destination, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Appended returns the rows appended to the named destination.
func (r *Report) Appended(destination string) int {
	for _, res := range r.Results {
		if res.Destination == destination {
			return res.Appended
		}
	}
	return 0
}

// Result returns the result of the named destination.
func (r *Report) Result(destination string) (Result, bool) {
	for _, res := range r.Results {
		if res.Destination == destination {
			return res, true
		}
	}
	return Result{}, false
}

// Totals counts rows appended and destinations per status.
func (r *Report) Totals() (rows int, byStatus map[Status]int) {
	byStatus = make(map[Status]int)
	for _, res := range r.Results {
		rows += res.Appended
		byStatus[res.Status]++
	}
	return rows, byStatus
}

// Report converts a plan into a dry-run report without appending anything.
func (p *Plan) Report() *Report {
	rep := &Report{
		RunID:        p.RunID,
		DryRun:       true,
		StartedAt:    p.CreatedAt,
		FinishedAt:   p.CreatedAt,
		SourceErrors: p.SourceErrors,
		Drift:        p.Drift,
		Malformed:    p.Malformed,
	}
	for _, s := range p.Steps {
		res := newResult(s)
		switch {
		case s.Err != nil:
			res.Status, res.Err = StatusBlocked, s.Err
		case len(s.Rows) == 0:
			res.Status = StatusUpToDate
		default:
			res.Status = StatusPending
		}
		rep.Results = append(rep.Results, res)
	}
	return rep
}

func newResult(s Step) Result {
	return Result{
		Destination: s.Destination.Name,
		Table:       s.Destination.Table.A1(),
		Source:      s.Source,
		Cursor:      s.Cursor,
		Pending:     len(s.Rows),
	}
}
