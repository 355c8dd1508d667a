package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/lanr/missionsync/internal/domain/layout"
)

// MemoryOption applies a configuration option to the Memory store.
type MemoryOption func(*Memory)

// WithTable seeds a table with existing rows.
func WithTable(t layout.Table, rows ...[]any) MemoryOption {
	return func(m *Memory) {
		m.tables[t.A1()] = append(m.tables[t.A1()], rows...)
	}
}

// WithStrictTables makes calls against unseeded tables fail with ErrUnknownTable
// instead of treating them as empty.
func WithStrictTables() MemoryOption {
	return func(m *Memory) {
		m.strict = true
	}
}

// Memory is an in-memory Gateway. Tables are keyed by their A1 address.
type Memory struct {
	mu       sync.RWMutex
	tables   map[string][][]any
	strict   bool
	failures map[string]error
	calls    []Call
}

// Call records one gateway invocation against the Memory store.
type Call struct {
	Op    string
	Table layout.Table
	Rows  int
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		tables:   make(map[string][][]any),
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailOn makes every op call against t fail with err until cleared with a nil err.
func (m *Memory) FailOn(op string, t layout.Table, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + " " + t.A1()
	if err == nil {
		delete(m.failures, key)
		return
	}
	m.failures[key] = err
}

// RowCount implements Gateway.
func (m *Memory) RowCount(_ context.Context, t layout.Table) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: OpRowCount, Table: t})
	if err := m.check(OpRowCount, t); err != nil {
		return 0, err
	}
	return len(m.tables[t.A1()]), nil
}

// AppendRows implements Gateway.
func (m *Memory) AppendRows(_ context.Context, t layout.Table, rows [][]any) (AppendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: OpAppend, Table: t, Rows: len(rows)})
	if err := m.check(OpAppend, t); err != nil {
		return AppendResult{}, err
	}

	key := t.A1()
	start := len(m.tables[key]) + 1
	for _, r := range rows {
		m.tables[key] = append(m.tables[key], append([]any(nil), r...))
	}
	return AppendResult{
		Range: fmt.Sprintf("%s rows %d-%d", key, start, start+len(rows)-1),
		Rows:  len(rows),
	}, nil
}

func (m *Memory) check(op string, t layout.Table) error {
	if err, ok := m.failures[op+" "+t.A1()]; ok {
		return wrap(op, t, err)
	}
	if _, ok := m.tables[t.A1()]; m.strict && !ok {
		return wrap(op, t, ErrUnknownTable)
	}
	return nil
}

// Rows returns a copy of the rows held by t.
func (m *Memory) Rows(t layout.Table) [][]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.tables[t.A1()]
	out := make([][]any, len(src))
	for i, r := range src {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Calls returns the invocations recorded so far, in order.
func (m *Memory) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Call(nil), m.calls...)
}

// Appends returns only the append invocations, in order.
func (m *Memory) Appends() []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == OpAppend {
			out = append(out, c)
		}
	}
	return out
}
