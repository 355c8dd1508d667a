// Package record models the flat, positionally indexed rows of the assessment log
// and the schema used to route them into destination partitions.
//
// Field identity is by column offset. Offsets are kept inside Schema; callers read
// fields through its named accessors.
package record

import (
	"fmt"
	"strings"
)

// Default schema offsets and sentinel of the assessment log.
const (
	DefaultSensorOffset    = 17
	DefaultTherapistOffset = 30
	DefaultAbsentSentinel  = "-1"
)

// Record is one line of the delimited source. All fields stay text.
type Record []string

// Field returns the field at offset and whether the record is wide enough.
func (r Record) Field(offset int) (string, bool) {
	if offset < 0 || offset >= len(r) {
		return "", false
	}
	return r[offset], true
}

// Cells converts the record into an appendable row.
func (r Record) Cells() []any {
	cells := make([]any, len(r))
	for i, f := range r {
		cells[i] = f
	}
	return cells
}

// MatchMode selects how a field is compared against the absent sentinel.
type MatchMode int

const (
	// MatchSubstring treats a field as absent when it contains the sentinel
	// anywhere, so "-100" counts as absent. This is the historical behaviour.
	MatchSubstring MatchMode = iota
	// MatchExact treats a field as absent only when it equals the sentinel
	// after trimming surrounding whitespace.
	MatchExact
)

func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "exact"
	default:
		return "substring"
	}
}

// ParseMatchMode parses "substring" or "exact" (case-insensitive, empty means substring).
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substring":
		return MatchSubstring, nil
	case "exact":
		return MatchExact, nil
	default:
		return MatchSubstring, fmt.Errorf("unknown sentinel match mode: %q", s)
	}
}

// Schema is the record-shape contract: which offsets carry which flags and how
// the absent sentinel is recognised.
type Schema struct {
	sensorOffset    int
	therapistOffset int
	sentinel        string
	match           MatchMode
}

// Option applies a configuration option to the Schema.
type Option func(*Schema)

// WithSensorOffset sets the offset of the sensor reading field.
func WithSensorOffset(offset int) Option {
	return func(s *Schema) {
		if offset >= 0 {
			s.sensorOffset = offset
		}
	}
}

// WithTherapistOffset sets the offset of the therapist flag field.
func WithTherapistOffset(offset int) Option {
	return func(s *Schema) {
		if offset >= 0 {
			s.therapistOffset = offset
		}
	}
}

// WithSentinel sets the value marking an absent reading.
func WithSentinel(sentinel string) Option {
	return func(s *Schema) {
		if sentinel != "" {
			s.sentinel = sentinel
		}
	}
}

// WithMatchMode sets the sentinel comparison mode.
func WithMatchMode(mode MatchMode) Option {
	return func(s *Schema) {
		s.match = mode
	}
}

// NewSchema builds the assessment log schema.
func NewSchema(opts ...Option) Schema {
	s := Schema{
		sensorOffset:    DefaultSensorOffset,
		therapistOffset: DefaultTherapistOffset,
		sentinel:        DefaultAbsentSentinel,
		match:           MatchSubstring,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// MatchMode reports the configured sentinel comparison mode.
func (s Schema) MatchMode() MatchMode { return s.match }

// SensorReading returns the sensor field of r.
func (s Schema) SensorReading(r Record) (string, error) {
	return s.field(r, s.sensorOffset)
}

// TherapistReading returns the therapist field of r.
func (s Schema) TherapistReading(r Record) (string, error) {
	return s.field(r, s.therapistOffset)
}

// HasSensor reports whether r carries a sensor reading.
func (s Schema) HasSensor(r Record) (bool, error) {
	v, err := s.SensorReading(r)
	if err != nil {
		return false, err
	}
	return !s.absent(v), nil
}

// TherapistFlagged reports whether r was filled in by a therapist.
func (s Schema) TherapistFlagged(r Record) (bool, error) {
	v, err := s.TherapistReading(r)
	if err != nil {
		return false, err
	}
	return !s.absent(v), nil
}

func (s Schema) field(r Record, offset int) (string, error) {
	v, ok := r.Field(offset)
	if !ok {
		return "", &MalformedRecordError{Index: -1, Offset: offset, Width: len(r)}
	}
	return v, nil
}

func (s Schema) absent(v string) bool {
	if s.match == MatchExact {
		return strings.TrimSpace(v) == s.sentinel
	}
	return strings.Contains(v, s.sentinel)
}
