package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shaharia-lab/audicord/internal/history"
	"github.com/shaharia-lab/audicord/internal/presence"
)

// SnapshotSource provides the current presence state
type SnapshotSource interface {
	Snapshot() presence.Snapshot
}

// HistorySource provides recent plays
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]history.Play, error)
}

// StatusHandler serves the status endpoints. History may be nil.
type StatusHandler struct {
	State   SnapshotSource
	History HistorySource
}

// Register mounts the status routes on ws
func (h *StatusHandler) Register(ws *WebServer) {
	r := ws.Router()
	r.Get("/ping", h.HandlePing())
	r.Get("/now", h.HandleNow())
	r.Get("/history", h.HandleHistory())
}

func (h *StatusHandler) HandlePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("pong"))
	}
}

// HandleNow returns the current presence snapshot
func (h *StatusHandler) HandleNow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, h.State.Snapshot())
	}
}

// HandleHistory returns recent plays, newest first
func (h *StatusHandler) HandleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.History == nil {
			http.Error(w, "history is disabled", http.StatusNotFound)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, fmt.Sprintf("invalid limit %q", raw), http.StatusBadRequest)
				return
			}
			limit = n
		}

		plays, err := h.History.Recent(r.Context(), history.ClampLimit(limit))
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to read history: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, plays)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}
