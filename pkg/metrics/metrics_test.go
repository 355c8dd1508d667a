package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
			So(manager, ShouldNotBeNil)
		})

		Convey("When creating with custom options", func() {
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)
			manager.RecordRowsAppended("all", 1)

			Convey("Then metric names use the namespace and subsystem", func() {
				n, err := testutil.GatherAndCount(manager.Registry(), "test_namespace_test_subsystem_rows_appended_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording a run", func() {
			m.RecordRowsAppended("all", 2)
			m.RecordRowsAppended("all", 3)
			m.RecordAppendFailure("therapists")
			m.RecordAppendSkipped("with-sensor")
			m.UpdateDestinationCursor("all", 7)
			m.UpdateSourceRecords("csv", 12)
			m.RecordSourceFailure("sensor_docs")
			m.RecordMalformedRecords("with-sensor", 2)
			m.RecordMalformedRecords("with-sensor", 0)
			m.RecordGatewayLatency("append", 120)
			m.RecordRun(1.5, 1700000000)

			Convey("Then the values are observable", func() {
				So(testutil.ToFloat64(m.rowsAppended.WithLabelValues("all")), ShouldEqual, 5)
				So(testutil.ToFloat64(m.appendFailures.WithLabelValues("therapists")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.appendsSkipped.WithLabelValues("with-sensor")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.destinationCursor.WithLabelValues("all")), ShouldEqual, 7)
				So(testutil.ToFloat64(m.sourceRecords.WithLabelValues("csv")), ShouldEqual, 12)
				So(testutil.ToFloat64(m.sourceFailures.WithLabelValues("sensor_docs")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.malformedRecords.WithLabelValues("with-sensor")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.runDuration), ShouldEqual, 1.5)
			})
		})

		Convey("When metrics are disabled", func() {
			d := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
			d.RecordRowsAppended("all", 4)

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(d.rowsAppended.WithLabelValues("all")), ShouldEqual, 0)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a manager with recorded values", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
		m.RecordRowsAppended("all", 2)
		path := filepath.Join(t.TempDir(), "missionsync.prom")

		Convey("Then the registry is written in exposition format", func() {
			So(m.WriteTextfile(path), ShouldBeNil)
			b, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `missionsync_sync_rows_appended_total{destination="all"} 2`)
		})

		Convey("Then an unwritable path fails", func() {
			err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("The global manager exports its own registry", t, func() {
		Default().RecordRowsAppended("global-test", 1)
		n, err := testutil.GatherAndCount(Default().Registry(), "missionsync_sync_rows_appended_total")
		So(err, ShouldBeNil)
		So(n, ShouldBeGreaterThanOrEqualTo, 1)

		path := filepath.Join(t.TempDir(), "global.prom")
		So(WriteTextfile(path), ShouldBeNil)
		b, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(b), ShouldContainSubstring, `destination="global-test"`)
	})
}
