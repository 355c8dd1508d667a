package batch_test

import (
	"testing"

	"github.com/lanr/missionsync/internal/domain/batch"
	"github.com/lanr/missionsync/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAssemble(t *testing.T) {
	Convey("Given a ragged metric series", t, func() {
		series := session.MetricSeries{{1, 2, 3}, {4}, {}}
		b := batch.Assemble(series)

		Convey("Then rows follow subject order without padding", func() {
			So(b.Len(), ShouldEqual, 3)
			So(b[0], ShouldResemble, []any{1.0, 2.0, 3.0})
			So(b[1], ShouldResemble, []any{4.0})
			So(len(b[2]), ShouldEqual, 0)
		})

		Convey("Then Tail slices from a cursor", func() {
			So(b.Tail(1).Len(), ShouldEqual, 2)
			So(b.Tail(3), ShouldBeNil)
			So(b.Tail(7), ShouldBeNil)
			So(b.Tail(-1).Len(), ShouldEqual, 3)
		})
	})
}

func TestAssembleAll(t *testing.T) {
	Convey("Given a two-subject population", t, func() {
		var s session.Series
		s[session.Difficulty] = session.MetricSeries{{1, 2}, {3}}
		s[session.Speed] = session.MetricSeries{{10, 20}, {30}}
		s[session.Interval] = session.MetricSeries{{100, 200}, {300}}
		s[session.Range] = session.MetricSeries{{5, 6}, {7}}

		out := batch.AssembleAll(s)

		Convey("Then one batch per metric is produced", func() {
			So(out[session.Difficulty][1], ShouldResemble, []any{3.0})
			So(out[session.Speed][0], ShouldResemble, []any{10.0, 20.0})
			So(out[session.Range].Len(), ShouldEqual, 2)
		})
	})
}
