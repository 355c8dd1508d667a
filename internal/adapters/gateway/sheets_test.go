package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"

	"github.com/lanr/missionsync/internal/adapters/gateway"
	"github.com/lanr/missionsync/internal/app"
	"github.com/lanr/missionsync/internal/domain/layout"
	"github.com/lanr/missionsync/internal/domain/record"
	"github.com/lanr/missionsync/pkg/logger"
	"github.com/lanr/missionsync/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

const columnLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// fakeSheets serves the subset of the values API used by the gateway. Rows are
// kept per block, keyed by sheet and anchor cell ("Todos!A1"), and reads are
// clipped to the height of the requested range like the real API.
type fakeSheets struct {
	mu       sync.Mutex
	values   map[string][][]any
	appended []appendCall
	deny     bool
}

type appendCall struct {
	Range     string
	InputMode string
	Values    [][]any
}

// block returns the storage key of an A1 range and the number of rows it
// spans, 0 when the range is open-ended.
func block(a1 string) (string, int) {
	sheet, cells, _ := strings.Cut(a1, "!")
	start, end, _ := strings.Cut(cells, ":")
	key := sheet + "!" + start
	first, err := strconv.Atoi(strings.TrimLeft(start, columnLetters))
	if err != nil {
		return key, 0
	}
	last, err := strconv.Atoi(strings.TrimLeft(end, columnLetters))
	if err != nil {
		return key, 0
	}
	return key, last - first + 1
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deny {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`))
		return
	}

	const prefix = "/v4/spreadsheets/sheet-id/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		key, height := block(rng)
		rows := f.values[key]
		if height > 0 && len(rows) > height {
			rows = rows[:height]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": rows})
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		rng = strings.TrimSuffix(rng, ":append")
		var body struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, appendCall{Range: rng, InputMode: r.URL.Query().Get("valueInputOption"), Values: body.Values})
		key, _ := block(rng)
		f.values[key] = append(f.values[key], body.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-id",
			"tableRange":    rng,
			"updates": map[string]any{
				"updatedRange": rng + "#tail",
				"updatedRows":  len(body.Values),
			},
		})
	default:
		http.Error(w, "unexpected", http.StatusBadRequest)
	}
}

func newSheets(t *testing.T, f *fakeSheets) *gateway.Sheets {
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	g, err := gateway.NewSheets(context.Background(), "sheet-id",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestSheets(t *testing.T) {
	Convey("Given a spreadsheet with three survey rows", t, func() {
		ctx := context.Background()
		conSensor := layout.Table{Sheet: "Con Sensor", Range: "A1:AK20"}
		f := &fakeSheets{values: map[string][][]any{
			"Todos!A1": {{"a"}, {"b"}, {"c"}},
		}}
		g := newSheets(t, f)

		Convey("Then RowCount reports the rows returned by the values API", func() {
			n, err := g.RowCount(ctx, todos)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)

			n, err = g.RowCount(ctx, conSensor)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When rows are appended", func() {
			res, err := g.AppendRows(ctx, conSensor, [][]any{{"d", 1.5}})

			Convey("Then values are sent user-entered to the table range", func() {
				So(err, ShouldBeNil)
				So(res.Rows, ShouldEqual, 1)
				So(res.Range, ShouldEqual, "Con Sensor!A1:AK20#tail")
				So(len(f.appended), ShouldEqual, 1)
				So(f.appended[0].Range, ShouldEqual, "Con Sensor!A1:AK20")
				So(f.appended[0].InputMode, ShouldEqual, "USER_ENTERED")
				So(f.appended[0].Values, ShouldResemble, [][]any{{"d", 1.5}})
			})
		})

		Convey("When the API denies access", func() {
			f.deny = true
			_, err := g.AppendRows(ctx, todos, [][]any{{"x"}})
			_, cerr := g.RowCount(ctx, todos)

			Convey("Then both calls fail as gateway errors naming the table", func() {
				So(errors.Is(err, gateway.ErrGateway), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Todos!A1:AK20")
				var ge *gateway.Error
				So(errors.As(cerr, &ge), ShouldBeTrue)
				So(ge.Op, ShouldEqual, gateway.OpRowCount)
			})
		})
	})

	Convey("Given an empty spreadsheet id", t, func() {
		_, err := gateway.NewSheets(context.Background(), "")
		So(err, ShouldNotBeNil)
	})
}

func TestSheetsRowCountBeyondAppendRange(t *testing.T) {
	Convey("Given a survey sheet holding more rows than its append range spans", t, func() {
		ctx := context.Background()
		rows := make([][]any, 25)
		for i := range rows {
			rows[i] = []any{strconv.Itoa(i + 1)}
		}
		f := &fakeSheets{values: map[string][][]any{"Todos!A1": rows}}
		g := newSheets(t, f)

		Convey("Then the layout table is counted over every row", func() {
			n, err := g.RowCount(ctx, layout.Default().Records[0].Table)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 25)
		})

		Convey("Then a table without a count range is capped at its height", func() {
			n, err := g.RowCount(ctx, todos)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 20)
		})
	})
}

func TestSheetsRepeatedSync(t *testing.T) {
	Convey("Given a log longer than the survey append range", t, func() {
		So(logger.Init(logger.WithOutput(io.Discard)), ShouldBeNil)
		ctx := context.Background()

		var recs []record.Record
		for i := 0; i < 25; i++ {
			r := make(record.Record, 31)
			for j := range r {
				r[j] = "0"
			}
			r[0] = strconv.Itoa(i + 1)
			recs = append(recs, r)
		}
		f := &fakeSheets{values: map[string][][]any{}}
		eng := app.New(newSheets(t, f),
			app.WithMetrics(metrics.NewManager()),
			app.WithRecordLoader(func() ([]record.Record, error) { return recs, nil }),
		)

		first, err := eng.Sync(ctx)
		So(err, ShouldBeNil)
		second, err := eng.Sync(ctx)
		So(err, ShouldBeNil)

		Convey("Then the second run appends nothing", func() {
			So(first.Appended(layout.All), ShouldEqual, 25)
			So(second.Appended(layout.All), ShouldEqual, 0)
			So(second.Failed(), ShouldBeFalse)
			So(len(f.values["Todos!A1"]), ShouldEqual, 25)
			So(len(f.values["Con Sensor!A1"]), ShouldEqual, 25)
		})
	})
}
