package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/config"
	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/internal/telemetry"
	"github.com/okian/f1replay/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeLapReplay(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	w, err := repository.CreateReplay(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	h := telemetry.Header{PacketFormat: telemetry.Format2020, SessionTime: 12}
	lap, err := telemetry.EncodeLapData(h, []model.CarLapState{{SlotIndex: 0, CarPosition: 1, CurrentLapNum: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(ctx, repository.KindLapData, 12, lap); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			t.Setenv("F1REPLAY_ADDR", ":8080")
			t.Setenv("F1REPLAY_AVERAGE_SPEED_MPS", "50")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.AverageSpeedMPS, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			t.Setenv("F1REPLAY_ADDR", "")

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a replays directory with one recording", t, func() {
		dir := t.TempDir()
		writeLapReplay(t, filepath.Join(dir, "silverstone.sqlite3"))

		cfg := config.New()
		cfg.ReplaysDir = dir

		ctx := context.Background()
		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		convey.Reset(svc.Stop)

		mux := newMux(ctx, cfg, svc)
		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then every surface should be routed", func() {
			convey.So(get("/").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api/health").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/metrics").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the recording should be listed and served", func() {
			list := get("/api/replays")
			convey.So(list.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(list.Body.String(), convey.ShouldContainSubstring, `"filename":"silverstone"`)

			live := get("/api/replays/silverstone/live?time=30")
			convey.So(live.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(live.Body.String(), convey.ShouldContainSubstring, `"current_time":12`)
			convey.So(live.Body.String(), convey.ShouldContainSubstring, `"driver_name":"Driver 1"`)
		})

		convey.Convey("Then unknown and unsafe ids should be rejected", func() {
			convey.So(get("/api/replays/monaco/live").Code, convey.ShouldEqual, http.StatusNotFound)
			convey.So(get("/api/replays/a%5Cb/info").Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then it should return", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating system metrics", func() {
			convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		})
	})
}
