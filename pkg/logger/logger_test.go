package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "rows appended", String("destination", "all"), Int("rows", 2))

			Convey("Then the message, fields and caller are written", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "rows appended")
				So(out, ShouldContainSubstring, "destination=all")
				So(out, ShouldContainSubstring, "rows=2")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")
			So(SetLevelString("info"), ShouldBeNil)

			Convey("Then info lines are dropped", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})

		Convey("When using a named logger with bound fields", func() {
			Named("sync").With(String("run_id", "r-1")).Error(ctx, "append failed", Error(errors.New("boom")))

			Convey("Then the group and bound fields are present", func() {
				So(buf.String(), ShouldContainSubstring, "sync.run_id=r-1")
				So(buf.String(), ShouldContainSubstring, "boom")
			})
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithFormat("json")), ShouldBeNil)

		Get().Info(context.Background(), "hello", Bool("dry_run", true))

		Convey("Then each line is a JSON object", func() {
			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
			So(line["msg"], ShouldEqual, "hello")
			So(line["dry_run"], ShouldEqual, true)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error", " INFO "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		_ = SetLevelString("info")
	})
}
