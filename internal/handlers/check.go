// Package handlers exposes the moderation pipeline over HTTP: the intake
// check endpoint the CMS calls as its pre-persist hook, plus the admin API.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quell-mod/quell-go/internal/classify"
	"github.com/quell-mod/quell-go/internal/dispatch"
	"github.com/quell-mod/quell-go/internal/ratelimit"
	"github.com/quell-mod/quell-go/internal/sse"
	"github.com/quell-mod/quell-go/internal/submission"
)

const maxBodyLen = 1 << 20 // 1 MiB

// CheckHandler runs a submission through classify → dispatch and reports the
// verdict to the caller.
type CheckHandler struct {
	pipeline   *classify.Pipeline
	dispatcher *dispatch.Dispatcher
	hub        *sse.Hub
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
}

// NewCheckHandler wires the intake endpoint.
func NewCheckHandler(pipeline *classify.Pipeline, dispatcher *dispatch.Dispatcher, hub *sse.Hub, limiter *ratelimit.Limiter, logger *slog.Logger) *CheckHandler {
	return &CheckHandler{
		pipeline:   pipeline,
		dispatcher: dispatcher,
		hub:        hub,
		limiter:    limiter,
		logger:     logger,
	}
}

// checkResponse is the verdict returned to the CMS. Persist false means the
// caller must not store the submission (hard block).
type checkResponse struct {
	Action      dispatch.Kind          `json:"action"`
	Persist     bool                   `json:"persist"`
	Fingerprint string                 `json:"fingerprint"`
	Decision    classify.Outcome       `json:"decision"`
	BlockPage   *dispatch.BlockPayload `json:"block_page,omitempty"`
}

// Check handles POST /v1/check. A malformed submission (no content, no
// timestamp) is a caller bug and gets a 400; remote classifier trouble never
// surfaces here because the pipeline falls back locally.
func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.limiter.Check(w, r, "check") {
		return
	}

	var sub submission.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyLen)).Decode(&sub); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sub.EnsureID()
	if sub.OriginIP == "" {
		sub.OriginIP = r.RemoteAddr
	}
	if err := sub.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome := h.pipeline.Classify(r.Context(), sub)
	action, err := h.dispatcher.Dispatch(r.Context(), sub, outcome)
	if err != nil {
		h.logger.Error("dispatch failed", "submission_id", sub.ID, "err", err)
		jsonError(w, "moderation dispatch failed", http.StatusInternalServerError)
		return
	}

	h.publishDecision(action)

	writeJSON(w, http.StatusOK, checkResponse{
		Action:      action.Kind,
		Persist:     action.Kind != dispatch.KindHardBlock,
		Fingerprint: action.Fingerprint,
		Decision:    outcome,
		BlockPage:   action.BlockPage,
	})
}

func (h *CheckHandler) publishDecision(action *dispatch.Action) {
	data, err := json.Marshal(action)
	if err != nil {
		return
	}
	h.hub.Publish(sse.Event{Type: "decision", Data: data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
