// Package layout fixes where every partition and metric batch lands in the
// destination spreadsheet.
package layout

import (
	"fmt"

	"github.com/lanr/missionsync/internal/domain/session"
)

// Table addresses a destination table: a sheet and a cell range on it.
//
// Range is where rows are appended. CountRange, when set, is the range read to
// count the rows already held; it is usually open-ended ("A1:AK") so the count
// is not capped by the height of Range. Without it the count is read over Range
// and can never exceed its height.
type Table struct {
	Sheet      string
	Range      string
	CountRange string
}

// A1 renders the table in A1 notation, e.g. "Todos!A1:AK20".
func (t Table) A1() string { return t.Sheet + "!" + t.Range }

// CountA1 renders the range whose rows are counted, e.g. "Todos!A1:AK".
func (t Table) CountA1() string {
	if t.CountRange == "" {
		return t.A1()
	}
	return t.Sheet + "!" + t.CountRange
}

func (t Table) String() string { return t.A1() }

// Partition destination names, in append order.
const (
	All           = "all"
	WithSensor    = "with-sensor"
	WithoutSensor = "without-sensor"
	Therapists    = "therapists"
)

// Group splits subjects by whether they played with the sensor.
type Group int

const (
	SensorPresent Group = iota
	SensorAbsent
)

// Groups lists the sensor groups in append order.
var Groups = [2]Group{SensorPresent, SensorAbsent}

func (g Group) String() string {
	if g == SensorAbsent {
		return WithoutSensor
	}
	return WithSensor
}

// Destination is a named table.
type Destination struct {
	Name  string
	Table Table
}

// Layout is the complete destination map of one spreadsheet.
type Layout struct {
	// Records holds the partition tables in append order: all, with-sensor,
	// without-sensor, therapists.
	Records [4]Destination
	// Metrics holds, per sensor group, one table per metric.
	Metrics [2][session.MetricCount]Destination
}

// Survey sheets share one column layout. Rows are counted over every row of
// those columns; the append range only anchors the table.
const (
	surveyRange      = "A1:AK20"
	surveyCountRange = "A1:AK"
)

// MetricBlockCapacity is the number of subject rows a stacked ICS block holds.
// The blocks sit directly above one another, so a group with more subjects
// would spill into the next block; the count stays bounded to the block.
const MetricBlockCapacity = 8

// Default returns the layout of the assessment spreadsheet.
func Default() Layout {
	var l Layout
	l.Records = [4]Destination{
		{Name: All, Table: Table{Sheet: "Todos", Range: surveyRange, CountRange: surveyCountRange}},
		{Name: WithSensor, Table: Table{Sheet: "Con Sensor", Range: surveyRange, CountRange: surveyCountRange}},
		{Name: WithoutSensor, Table: Table{Sheet: "Sin Sensor", Range: surveyRange, CountRange: surveyCountRange}},
		{Name: Therapists, Table: Table{Sheet: "Terapeutas", Range: surveyRange, CountRange: surveyCountRange}},
	}

	ranges := [2][session.MetricCount]string{
		SensorPresent: {"A1:K8", "A9:K16", "A17:K24", "A25:K32"},
		SensorAbsent:  {"L1:V8", "L9:V16", "L17:V24", "L25:V32"},
	}
	for _, g := range Groups {
		for _, m := range session.Metrics {
			l.Metrics[g][m] = Destination{
				Name:  MetricName(g, m),
				Table: Table{Sheet: "ICS", Range: ranges[g][m]},
			}
		}
	}
	return l
}

// MetricName is the destination name of metric m for group g, e.g. "ics/with-sensor/speed".
func MetricName(g Group, m session.Metric) string {
	return fmt.Sprintf("ics/%s/%s", g, m)
}

// Destinations lists every destination in append order.
func (l Layout) Destinations() []Destination {
	out := make([]Destination, 0, len(l.Records)+len(l.Metrics)*session.MetricCount)
	out = append(out, l.Records[:]...)
	for _, g := range Groups {
		out = append(out, l.Metrics[g][:]...)
	}
	return out
}
