// Package session extracts recent session metrics from per-subject history documents.
package session

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// DefaultMaxEntries is the number of most recent sessions kept per subject.
const DefaultMaxEntries = 10

// Metric identifies one of the four numeric values of a session entry.
type Metric int

const (
	Difficulty Metric = iota
	Speed
	Interval
	Range
)

// MetricCount is the number of metrics carried by every session entry.
const MetricCount = 4

// Metrics lists the metrics in their fixed destination order.
var Metrics = [MetricCount]Metric{Difficulty, Speed, Interval, Range}

func (m Metric) String() string {
	switch m {
	case Difficulty:
		return "difficulty"
	case Speed:
		return "speed"
	case Interval:
		return "interval"
	case Range:
		return "range"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// Layout names the elements of a history document.
type Layout struct {
	Container string
	Fields    [MetricCount]string
}

// DefaultLayout matches the documents written by the game client.
var DefaultLayout = Layout{
	Container: "HistorialPartidas",
	Fields: [MetricCount]string{
		Difficulty: "dificultad",
		Speed:      "velocidad",
		Interval:   "intervalo",
		Range:      "rango",
	},
}

// Entry is one completed session.
type Entry [MetricCount]float64

// History holds one subject's recent values, per metric, oldest first.
type History [MetricCount][]float64

// Series returns the chronological values of m.
func (h History) Series(m Metric) []float64 { return h[m] }

// Len is the number of sessions in the window.
func (h History) Len() int { return len(h[Difficulty]) }

type node struct {
	XMLName  xml.Name
	Text     string `xml:",chardata"`
	Children []node `xml:",any"`
}

func (n node) child(name string) (node, bool) {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return node{}, false
}

// Extract reads a history document and returns the last maxEntries sessions.
//
// Entries in the container are most recent first. The first maxEntries of them
// are taken and each metric series is reversed, so the result runs from the
// oldest session of the window to the most recent. Documents with fewer entries
// yield shorter series. A non-positive maxEntries means DefaultMaxEntries.
func Extract(r io.Reader, maxEntries int) (History, error) {
	return DefaultLayout.Extract(r, maxEntries)
}

// Extract is Extract for documents using layout l.
func (l Layout) Extract(r io.Reader, maxEntries int) (History, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	var root node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return History{}, fmt.Errorf("%w: empty document", ErrMalformedDocument)
		}
		return History{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	container, ok := root.child(l.Container)
	if !ok {
		return History{}, fmt.Errorf("%w: no <%s> under <%s>", ErrMalformedDocument, l.Container, root.XMLName.Local)
	}

	entries := container.Children
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	var h History
	for _, m := range Metrics {
		h[m] = make([]float64, 0, len(entries))
	}
	for i, e := range entries {
		for _, m := range Metrics {
			v, err := l.value(e, i, m)
			if err != nil {
				return History{}, err
			}
			h[m] = append(h[m], v)
		}
	}
	for _, m := range Metrics {
		slices.Reverse(h[m])
	}
	return h, nil
}

func (l Layout) value(e node, i int, m Metric) (float64, error) {
	leaf, ok := e.child(l.Fields[m])
	if !ok {
		return 0, fmt.Errorf("%w: entry %d has no <%s>", ErrMalformedDocument, i, l.Fields[m])
	}
	text := strings.TrimSpace(leaf.Text)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ValueParseError{Entry: i, Metric: m, Value: text, Err: err}
	}
	return v, nil
}

// MetricSeries holds, for one metric, every subject's chronological values in
// subject order.
type MetricSeries [][]float64

// Series groups the four metric series of one subject population.
type Series [MetricCount]MetricSeries

// Collect transposes per-subject histories into per-metric series.
func Collect(histories []History) Series {
	var s Series
	for _, m := range Metrics {
		s[m] = make(MetricSeries, len(histories))
		for i, h := range histories {
			s[m][i] = h[m]
		}
	}
	return s
}

// Subjects is the number of subjects in the series.
func (s Series) Subjects() int { return len(s[Difficulty]) }
