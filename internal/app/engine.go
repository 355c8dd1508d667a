// Package app provides the synchronization engine: it reads the local
// assessment sources, works out what each destination table is missing and
// appends exactly that, in a fixed order.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/lanr/missionsync/internal/adapters/gateway"
	"github.com/lanr/missionsync/internal/adapters/source"
	"github.com/lanr/missionsync/internal/domain/layout"
	"github.com/lanr/missionsync/internal/domain/record"
	"github.com/lanr/missionsync/pkg/logger"
	"github.com/lanr/missionsync/pkg/metrics"
)

// Source names used in reports, logs and metrics.
const (
	SourceRecords = "records"
)

// SessionSourceName names the document source of a sensor group.
func SessionSourceName(g layout.Group) string { return "sessions/" + g.String() }

// CursorMode selects where the delta of a partition table starts.
type CursorMode int

const (
	// CursorPerPartition slices each partition of the log at the partition
	// table's own row count. A partition table left behind by a run that failed
	// halfway catches up on the next run.
	CursorPerPartition CursorMode = iota
	// CursorFromAll partitions only the log rows past the "all" table's row
	// count. Partition tables may hold rows that did not come from the log,
	// such as a header, but a partition append that failed is not retried.
	CursorFromAll
)

func (m CursorMode) String() string {
	if m == CursorFromAll {
		return "all"
	}
	return "partition"
}

// ParseCursorMode parses "partition" (or "") and "all".
func ParseCursorMode(s string) (CursorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "partition":
		return CursorPerPartition, nil
	case "all":
		return CursorFromAll, nil
	default:
		return CursorPerPartition, fmt.Errorf("unknown partition cursor mode %q", s)
	}
}

// RecordLoader yields every record of the delimited log, in file order.
type RecordLoader func() ([]record.Record, error)

// SessionLoader yields the session series of one document directory.
type SessionLoader func() (source.Sessions, error)

// Engine synchronizes local sources into the destination tables of a layout.
// It holds no state between runs: every run re-reads cursors and sources.
type Engine struct {
	gateway    gateway.Gateway
	layout     layout.Layout
	schema     record.Schema
	cursorMode CursorMode

	records  RecordLoader
	sessions [len(layout.Groups)]SessionLoader

	logger  logger.Logger
	metrics *metrics.Manager
	now     func() time.Time
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLayout sets the destination layout.
func WithLayout(l layout.Layout) Option {
	return func(e *Engine) {
		e.layout = l
	}
}

// WithSchema sets the record schema used for partitioning.
func WithSchema(s record.Schema) Option {
	return func(e *Engine) {
		e.schema = s
	}
}

// WithCursorMode selects where partition deltas start. Defaults to
// CursorPerPartition.
func WithCursorMode(m CursorMode) Option {
	return func(e *Engine) {
		e.cursorMode = m
	}
}

// WithRecordLoader sets the delimited-log source.
func WithRecordLoader(load RecordLoader) Option {
	return func(e *Engine) {
		e.records = load
	}
}

// WithCSV reads the delimited log at path.
func WithCSV(path string, opts ...source.Option) Option {
	return WithRecordLoader(func() ([]record.Record, error) {
		return source.LoadRecords(path, opts...)
	})
}

// WithSessionLoader sets the document source of sensor group g.
func WithSessionLoader(g layout.Group, load SessionLoader) Option {
	return func(e *Engine) {
		e.sessions[g] = load
	}
}

// WithDocumentDir reads the subject documents of group g from dir.
func WithDocumentDir(g layout.Group, dir string, opts ...source.Option) Option {
	return WithSessionLoader(g, func() (source.Sessions, error) {
		return source.LoadSessions(dir, opts...)
	})
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics manager. Defaults to the global one.
func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock sets the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New constructs an Engine appending through gw. Sources left unset are not
// synchronized.
func New(gw gateway.Gateway, opts ...Option) *Engine {
	e := &Engine{
		gateway: gw,
		layout:  layout.Default(),
		schema:  record.NewSchema(),
		metrics: metrics.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logger.Get()
	}
	e.logger = e.logger.Named("sync")
	return e
}
