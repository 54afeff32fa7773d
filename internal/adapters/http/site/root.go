// Package site serves the landing endpoint of the replay viewer.
package site

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
)

// RootHandler reports the service banner and whether the replays directory
// is present.
type RootHandler struct {
	replaysDir string
}

// NewRootHandler creates a new root handler over replaysDir.
func NewRootHandler(replaysDir string) *RootHandler {
	return &RootHandler{replaysDir: replaysDir}
}

// Register attaches the landing route to mux. Only the exact root is
// served; other unmatched paths stay 404.
func Register(_ context.Context, mux *http.ServeMux, replaysDir string) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", NewRootHandler(replaysDir).HandleRoot)
}

type rootResponse struct {
	Message      string `json:"message"`
	Status       string `json:"status"`
	ReplaysDir   string `json:"replays_folder"`
	ReplaysExist bool   `json:"replays_exist"`
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	info, err := os.Stat(h.replaysDir)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(rootResponse{
		Message:      "F1 replay server is running",
		Status:       "healthy",
		ReplaysDir:   h.replaysDir,
		ReplaysExist: err == nil && info.IsDir(),
	})
}
