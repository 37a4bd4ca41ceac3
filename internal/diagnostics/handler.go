package diagnostics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const statsTimeout = 2 * time.Second

// HTTPHandler serves the diagnostics endpoints.
type HTTPHandler struct {
	stats StatsSource
}

func NewHTTPHandler(stats StatsSource) *HTTPHandler {
	return &HTTPHandler{stats: stats}
}

// NewRouter wires the diagnostics endpoints. ws and metrics are optional.
func NewRouter(stats StatsSource, ws, metrics http.Handler) http.Handler {
	h := NewHTTPHandler(stats)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.HandleHealth)
	r.Get("/stats", h.HandleStats)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	if ws != nil {
		r.Handle("/ws", ws)
	}
	r.Mount("/debug", middleware.Profiler())

	return r
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Warn("Failed to encode diagnostics response", "error", err)
		}
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, code int, message string) {
	h.writeJSON(w, code, map[string]string{"error": message})
}

// HandleHealth reports whether the coordinator is answering.
func (h *HTTPHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	if _, err := h.stats.Stats(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "coordinator unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleStats returns the coordinator snapshot as JSON.
func (h *HTTPHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
	defer cancel()

	stats, err := h.stats.Stats(ctx)
	if err != nil {
		slog.Error("Failed to read coordinator stats", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "coordinator unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
