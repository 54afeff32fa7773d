// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/f1replay/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ListReplays(ctx context.Context) ([]model.ReplaySummary, error)
	GetReplayInfo(ctx context.Context, replayID string) (model.ReplayInfo, error)
	GetReplayOverview(ctx context.Context, replayID string) (model.ReplayOverview, error)
	GetSnapshot(ctx context.Context, replayID string, t float64) (model.Leaderboard, error)
}

// Server wires HTTP routes for the replay API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	replaysHandler *ReplaysHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		replaysHandler: NewReplaysHandler(deps),
	}
}

// Register attaches all HTTP routes to mux. The singular /api/replay/
// prefix is kept for recorder front ends that still use it.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, route(endpoint, h))
	}

	handle("GET /api/health", "health", s.healthHandler.HandleHealth)
	handle("GET /healthz", "healthz", s.healthHandler.HandleMetrics)
	handle("GET /metrics", "metrics", s.healthHandler.HandleMetrics)
	handle("GET /stats", "stats", s.statsHandler.HandleStats)

	handle("GET /api/replays", "replays", s.replaysHandler.HandleList)
	for _, prefix := range []string{"/api/replays/", "/api/replay/"} {
		handle("GET "+prefix+"{id}", "replay", s.replaysHandler.HandleOverview)
		handle("GET "+prefix+"{id}/info", "replay_info", s.replaysHandler.HandleInfo)
		handle("GET "+prefix+"{id}/live", "replay_live", s.replaysHandler.HandleLive)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an error's kind to its response status.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
