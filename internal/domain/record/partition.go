package record

import (
	"errors"
)

// Predicate decides whether a record belongs to a partition. It fails with a
// *MalformedRecordError when the record lacks a field it needs.
type Predicate func(Record) (bool, error)

// All accepts every record.
func All(Record) (bool, error) { return true, nil }

// SensorPresent selects records whose sensor field is not the absent sentinel.
func (s Schema) SensorPresent() Predicate { return s.HasSensor }

// SensorAbsent is the complement of SensorPresent.
func (s Schema) SensorAbsent() Predicate {
	return func(r Record) (bool, error) {
		ok, err := s.HasSensor(r)
		return !ok, err
	}
}

// Therapists selects records flagged as therapist-entered.
func (s Schema) Therapists() Predicate { return s.TherapistFlagged }

// Classify returns the records accepted by p, preserving input order.
//
// Records the predicate cannot evaluate are left out of the result and reported
// together in the returned error, one *MalformedRecordError per record with
// Index set to its position in records. A non-nil error therefore does not
// invalidate the returned slice.
func Classify(records []Record, p Predicate) ([]Record, error) {
	idx, err := Match(records, p)
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = records[j]
	}
	return out, err
}

// Match is Classify returning positions in records instead of the records.
func Match(records []Record, p Predicate) ([]int, error) {
	var (
		out  []int
		errs []error
	)
	for i, r := range records {
		ok, err := p(r)
		if err != nil {
			errs = append(errs, withIndex(err, i))
			continue
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, errors.Join(errs...)
}

func withIndex(err error, i int) error {
	var mre *MalformedRecordError
	if errors.As(err, &mre) {
		c := *mre
		c.Index = i
		return &c
	}
	return err
}

// Malformed lists the record errors carried by an error returned from Classify.
func Malformed(err error) []*MalformedRecordError {
	if err == nil {
		return nil
	}
	var out []*MalformedRecordError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, Malformed(e)...)
		}
		return out
	}
	var mre *MalformedRecordError
	if errors.As(err, &mre) {
		out = append(out, mre)
	}
	return out
}
