package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/lanr/missionsync/internal/app"
)

func writeReport(w io.Writer, format string, rep *app.Report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newReportView(rep))
	}
	return writeReportText(w, rep)
}

func writeReportText(w io.Writer, rep *app.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DESTINATION\tTABLE\tCURSOR\tPENDING\tAPPENDED\tSTATUS\tDETAIL")
	for _, r := range rep.Results {
		detail := r.Range
		if r.Err != nil {
			detail = r.Err.Error()
		}
		cursor := "?"
		if r.Cursor >= 0 {
			cursor = fmt.Sprint(r.Cursor)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.Destination, r.Table, cursor, r.Pending, r.Appended, r.Status, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, se := range rep.SourceErrors {
		fmt.Fprintf(w, "source %s unreadable: %v\n", se.Source, se.Err)
	}
	for _, d := range rep.Drift {
		fmt.Fprintf(w, "drift %s: table holds %d rows, log prefix implies %d\n", d.Destination, d.Cursor, d.Expected)
	}
	for _, name := range slices.Sorted(maps.Keys(rep.Malformed)) {
		fmt.Fprintf(w, "malformed %s: %d records skipped\n", name, rep.Malformed[name])
	}

	rows, byStatus := rep.Totals()
	mode := "sync"
	if rep.DryRun {
		mode = "dry run"
	}
	_, err := fmt.Fprintf(w, "%s %s: %d rows appended, %d failed, %d blocked\n",
		mode, rep.RunID, rows, byStatus[app.StatusFailed], byStatus[app.StatusBlocked])
	return err
}

type resultView struct {
	Destination string     `json:"destination"`
	Table       string     `json:"table"`
	Source      string     `json:"source"`
	Cursor      int        `json:"cursor"`
	Pending     int        `json:"pending"`
	Appended    int        `json:"appended"`
	Range       string     `json:"range,omitempty"`
	Status      app.Status `json:"status"`
	Error       string     `json:"error,omitempty"`
}

type reportView struct {
	RunID        string            `json:"run_id"`
	DryRun       bool              `json:"dry_run"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Results      []resultView      `json:"results"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
	Drift        []app.Drift       `json:"drift,omitempty"`
	Malformed    map[string]int    `json:"malformed,omitempty"`
}

func newReportView(rep *app.Report) reportView {
	v := reportView{
		RunID:      rep.RunID,
		DryRun:     rep.DryRun,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Drift:      rep.Drift,
		Malformed:  rep.Malformed,
	}
	for _, r := range rep.Results {
		rv := resultView{
			Destination: r.Destination,
			Table:       r.Table,
			Source:      r.Source,
			Cursor:      r.Cursor,
			Pending:     r.Pending,
			Appended:    r.Appended,
			Range:       r.Range,
			Status:      r.Status,
		}
		if r.Err != nil {
			rv.Error = r.Err.Error()
		}
		v.Results = append(v.Results, rv)
	}
	if len(rep.SourceErrors) > 0 {
		v.SourceErrors = make(map[string]string, len(rep.SourceErrors))
		for _, se := range rep.SourceErrors {
			v.SourceErrors[se.Source] = se.Err.Error()
		}
	}
	return v
}
