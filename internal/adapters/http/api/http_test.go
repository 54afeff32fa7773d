package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/f1replay/internal/adapters/http/api"
	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	replays  []model.ReplaySummary
	listErr  error
	err      error
	lastID   string
	lastTime float64
}

func (m *mockDependencies) ListReplays(context.Context) ([]model.ReplaySummary, error) {
	return m.replays, m.listErr
}

func (m *mockDependencies) GetReplayInfo(_ context.Context, id string) (model.ReplayInfo, error) {
	m.lastID = id
	if m.err != nil {
		return model.ReplayInfo{}, m.err
	}
	return model.ReplayInfo{ID: id, MinTime: 1, MaxTime: 9, Duration: 8, PacketCounts: map[int]int{2: 4}}, nil
}

func (m *mockDependencies) GetReplayOverview(_ context.Context, id string) (model.ReplayOverview, error) {
	m.lastID = id
	if m.err != nil {
		return model.ReplayOverview{}, m.err
	}
	return model.ReplayOverview{ReplayID: id, Participants: []model.Participant{}}, nil
}

func (m *mockDependencies) GetSnapshot(_ context.Context, id string, t float64) (model.Leaderboard, error) {
	m.lastID, m.lastTime = id, t
	if m.err != nil {
		return model.Leaderboard{}, m.err
	}
	return model.Leaderboard{
		ReplayID: id, RequestedTime: t, CurrentTime: t, MaxTime: 100, ProgressPercent: t,
		Entries: []model.LeaderboardEntry{{Position: 1, DriverName: "Alpha", SlotIndex: 0}},
	}, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}).
		Register(context.Background(), mux)
	return mux
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{replays: []model.ReplaySummary{{ID: "spa", DisplayName: "spa"}}}
		mux := newMux(deps)

		Convey("Then the health endpoint should report ok", func() {
			w := serve(mux, http.MethodGet, "/api/health")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then /healthz and /metrics should expose Prometheus metrics", func() {
			serve(mux, http.MethodGet, "/api/health")
			for _, path := range []string{"/healthz", "/metrics"} {
				w := serve(mux, http.MethodGet, path)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "f1replay_viewer_http_requests_total")
			}
		})

		Convey("Then stats should be served as JSON", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then the catalog should be listed", func() {
			w := serve(mux, http.MethodGet, "/api/replays")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got []map[string]string
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got, ShouldResemble, []map[string]string{{"filename": "spa", "display_name": "spa"}})
		})

		Convey("Then non-GET methods should be rejected", func() {
			w := serve(mux, http.MethodPost, "/api/replays")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then unknown paths should be not found", func() {
			w := serve(mux, http.MethodGet, "/unknown")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then every response should carry a request id", func() {
			w := serve(mux, http.MethodGet, "/api/health")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})
	})
}

func TestReplaysHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When requesting a live snapshot with a time", func() {
			w := serve(mux, http.MethodGet, "/api/replays/spa/live?time=42.5")

			Convey("Then the snapshot should be served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastID, ShouldEqual, "spa")
				So(deps.lastTime, ShouldEqual, 42.5)
				var got model.Leaderboard
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.CurrentTime, ShouldEqual, 42.5)
				So(got.Entries, ShouldHaveLength, 1)
				So(w.Body.String(), ShouldContainSubstring, `"leaderboard":[`)
			})
		})

		Convey("When the time is missing", func() {
			w := serve(mux, http.MethodGet, "/api/replays/spa/live")

			Convey("Then time 0 should be used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastTime, ShouldEqual, 0)
			})
		})

		Convey("When the time is not a finite number", func() {
			for _, raw := range []string{"abc", "NaN", "Inf", "-Inf"} {
				w := serve(mux, http.MethodGet, "/api/replays/spa/live?time="+raw)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
			}
		})

		Convey("When using the singular route prefix", func() {
			w := serve(mux, http.MethodGet, "/api/replay/monza/info")

			Convey("Then the same handler should answer", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastID, ShouldEqual, "monza")
				So(w.Body.String(), ShouldContainSubstring, `"packet_counts":{"2":4}`)
			})
		})

		Convey("When reading a replay overview", func() {
			w := serve(mux, http.MethodGet, "/api/replays/spa")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"replay_id":"spa"`)
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("snapshot: %w", repository.ErrReplayNotFound), http.StatusNotFound, "not_found"},
			{fmt.Errorf("open: %w", repository.ErrInvalidReplayID), http.StatusBadRequest, "bad_request"},
			{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}
		for _, c := range cases {
			Convey("When the failure is "+c.code, func() {
				mux := newMux(&mockDependencies{err: c.err, listErr: c.err})

				Convey("Then every replay route should map it", func() {
					for _, path := range []string{
						"/api/replays",
						"/api/replays/spa",
						"/api/replays/spa/info",
						"/api/replays/spa/live?time=1",
					} {
						w := serve(mux, http.MethodGet, path)
						So(w.Code, ShouldEqual, c.status)
						So(w.Body.String(), ShouldContainSubstring, `"code":"`+c.code+`"`)
					}
				})
			})
		}
	})
}

func TestError(t *testing.T) {
	Convey("Given API errors", t, func() {
		Convey("Then kinds and causes should both match with errors.Is", func() {
			cause := errors.New("boom")
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then store failures should be classified by kind", func() {
			missing := fmt.Errorf("info: %w", repository.ErrReplayNotFound)
			err := api.Classify("api.op", missing)
			So(errors.Is(err, api.ErrNotFound), ShouldBeTrue)
			So(errors.Is(err, repository.ErrReplayNotFound), ShouldBeTrue)
			So(strings.HasPrefix(err.Error(), "api.op"), ShouldBeTrue)

			err = api.Classify("api.op", repository.ErrInvalidReplayID)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)

			err = api.Classify("api.op", errors.New("disk"))
			So(errors.Is(err, api.ErrNotFound), ShouldBeFalse)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeFalse)
			So(api.Classify("api.op", nil), ShouldBeNil)
		})

		Convey("Then wrapping nil should stay nil", func() {
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
