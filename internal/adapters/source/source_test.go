package source_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lanr/missionsync/internal/adapters/source"
	"github.com/lanr/missionsync/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func historyDoc(values ...int) string {
	var b strings.Builder
	b.WriteString("<Jugador><HistorialPartidas>")
	for _, v := range values {
		fmt.Fprintf(&b, "<Partida><dificultad>%d</dificultad><velocidad>%d</velocidad><intervalo>%d</intervalo><rango>%d</rango></Partida>", v, v, v, v)
	}
	b.WriteString("</HistorialPartidas></Jugador>")
	return b.String()
}

func TestLoadRecords(t *testing.T) {
	Convey("Given a delimited log with ragged rows", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "encuesta_data.txt")
		writeFile(t, path, "a,b,c\nd,\"e,f\"\ng,h,i,j\n")

		Convey("When loading leniently", func() {
			recs, err := source.LoadRecords(path)

			Convey("Then rows are kept as-is, in order", func() {
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 3)
				So([]string(recs[1]), ShouldResemble, []string{"d", "e,f"})
				So(len(recs[2]), ShouldEqual, 4)
			})
		})

		Convey("When loading strictly", func() {
			_, err := source.LoadRecords(path, source.WithStrict(true))

			Convey("Then the ragged row fails with a format error", func() {
				So(errors.Is(err, source.ErrFormat), ShouldBeTrue)
			})
		})
	})

	Convey("Given a semicolon delimited log", t, func() {
		path := filepath.Join(t.TempDir(), "log.txt")
		writeFile(t, path, "1;2;3\n")
		recs, err := source.LoadRecords(path, source.WithDelimiter(';'))
		So(err, ShouldBeNil)
		So([]string(recs[0]), ShouldResemble, []string{"1", "2", "3"})
	})

	Convey("Given an empty log", t, func() {
		path := filepath.Join(t.TempDir(), "empty.txt")
		writeFile(t, path, "")
		recs, err := source.LoadRecords(path)
		So(err, ShouldBeNil)
		So(len(recs), ShouldEqual, 0)
	})

	Convey("Given a missing path", t, func() {
		_, err := source.LoadRecords(filepath.Join(t.TempDir(), "nope.txt"))
		So(errors.Is(err, source.ErrSourceIO), ShouldBeTrue)
	})
}

func TestLoadSessions(t *testing.T) {
	Convey("Given documents indexed 1, 2 and 4", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "1_Data01.xml"), historyDoc(3, 2, 1))
		writeFile(t, filepath.Join(dir, "1_Data02.xml"), historyDoc(9))
		writeFile(t, filepath.Join(dir, "1_Data04.xml"), historyDoc(7))
		writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

		s, err := source.LoadSessions(dir)

		Convey("Then only subjects 1 and 2 are returned, in index order", func() {
			So(err, ShouldBeNil)
			So(s.Series.Subjects(), ShouldEqual, 2)
			So(len(s.Documents), ShouldEqual, 2)
			So(filepath.Base(s.Documents[1]), ShouldEqual, "1_Data02.xml")
			So(s.Series[session.Difficulty], ShouldResemble, session.MetricSeries{{1, 2, 3}, {9}})
		})
	})

	Convey("Given a window smaller than the history", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "1_Data01.xml"), historyDoc(5, 4, 3, 2, 1))

		s, err := source.LoadSessions(dir, source.WithMaxEntries(2))
		So(err, ShouldBeNil)
		So(s.Series[session.Speed][0], ShouldResemble, []float64{4, 5})
	})

	Convey("Given a directory with no first document", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "1_Data02.xml"), historyDoc(1))

		s, err := source.LoadSessions(dir)
		So(err, ShouldBeNil)
		So(s.Series.Subjects(), ShouldEqual, 0)
	})

	Convey("Given a malformed second document", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "1_Data01.xml"), historyDoc(1))
		writeFile(t, filepath.Join(dir, "1_Data02.xml"), "<Jugador/>")

		_, err := source.LoadSessions(dir)

		Convey("Then the whole directory fails and names the document", func() {
			So(errors.Is(err, session.ErrMalformedDocument), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "1_Data02.xml")
		})
	})

	Convey("Given a missing directory", t, func() {
		_, err := source.LoadSessions(filepath.Join(t.TempDir(), "absent"))
		So(errors.Is(err, source.ErrSourceIO), ShouldBeTrue)
	})
}
