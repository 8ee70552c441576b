package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quell-mod/quell-go/internal/audit"
	"github.com/quell-mod/quell-go/internal/config"
	"github.com/quell-mod/quell-go/internal/heuristic"
	"github.com/quell-mod/quell-go/internal/policy"
)

// AdminHandler serves the dashboard API: decision history, aggregate stats,
// and the effective runtime configuration.
type AdminHandler struct {
	store  audit.Store
	cfg    config.Config
	logger *slog.Logger
}

// NewAdminHandler wires the admin endpoints.
func NewAdminHandler(store audit.Store, cfg config.Config, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: store, cfg: cfg, logger: logger}
}

// ListDecisions handles GET /api/decisions with optional category, source,
// action, since (RFC 3339), and limit query parameters.
func (h *AdminHandler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Category: q.Get("category"),
		Source:   q.Get("source"),
		Action:   q.Get("action"),
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonError(w, "invalid since timestamp", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	records, err := h.store.ListDecisions(r.Context(), filter)
	if err != nil {
		h.logger.Error("list decisions failed", "err", err)
		jsonError(w, "query failed", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": records})
}

// GetDecision handles GET /api/decisions/{fingerprint}.
func (h *AdminHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	fingerprint := chi.URLParam(r, "fingerprint")
	rec, err := h.store.GetDecision(r.Context(), fingerprint)
	if errors.Is(err, audit.ErrNotFound) {
		jsonError(w, "decision not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get decision failed", "fingerprint", fingerprint, "err", err)
		jsonError(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetStats handles GET /api/stats.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats failed", "err", err)
		jsonError(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetConfig handles GET /api/config, exposing the effective (post-default,
// post-clamp) moderation settings.
func (h *AdminHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	sensitivity := h.cfg.Sensitivity()
	writeJSON(w, http.StatusOK, map[string]any{
		"sensitivity":         sensitivity,
		"threshold":           policy.Threshold(sensitivity),
		"auto_delete":         h.cfg.AutoDelete(),
		"honeypot_enabled":    h.cfg.HoneypotEnabled(),
		"skip_registered":     h.cfg.SkipRegistered(),
		"min_elapsed_seconds": h.cfg.MinElapsedSeconds(),
		"remote_provider":     h.cfg.Remote.Provider,
		"remote_timeout_sec":  int(h.cfg.RemoteTimeout().Seconds()),
		"heuristic_patterns":  heuristic.PatternCounts(),
	})
}
