package api

import (
	"math"
	"net/http"
	"strconv"
)

// ReplaysHandler serves the replay catalog and leaderboard snapshots.
type ReplaysHandler struct {
	deps Dependencies
}

// NewReplaysHandler creates a new replays handler.
func NewReplaysHandler(deps Dependencies) *ReplaysHandler {
	return &ReplaysHandler{deps: deps}
}

// HandleList handles GET /api/replays requests.
func (h *ReplaysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_replays"
	list, err := h.deps.ListReplays(r.Context())
	if err != nil {
		writeFailure(w, Classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleOverview handles GET /api/replays/{id} requests.
func (h *ReplaysHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_replay"
	ov, err := h.deps.GetReplayOverview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// HandleInfo handles GET /api/replays/{id}/info requests.
func (h *ReplaysHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_replay_info"
	info, err := h.deps.GetReplayInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleLive handles GET /api/replays/{id}/live?time=S requests. A missing
// time is the start of the replay.
func (h *ReplaysHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_replay_live"
	t, err := parseTime(r.URL.Query().Get("time"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	board, err := h.deps.GetSnapshot(r.Context(), r.PathValue("id"), t)
	if err != nil {
		writeFailure(w, Classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func parseTime(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, strconv.ErrRange
	}
	return t, nil
}
