package display

import (
	"encoding/json"
	"net/http"

	"github.com/glossydesign/pos-api/internal/common"
)

// Handler exposes the display session endpoints. The cashier UI POSTs
// snapshots, the customer screen GETs (and polls) them.
type Handler struct {
	Service *Service
}

// Publish handles POST /api/v1/display/session.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "display service not configured", nil)
		return
	}
	var req struct {
		Session string `json:"session,omitempty"`
		Snapshot
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	switch req.State {
	case StateIdle, StateCart, StateOrder, StatePaid:
	default:
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, "unknown display state", map[string]any{"state": req.State})
		return
	}
	snap, err := h.Service.Publish(r.Context(), req.Session, req.Snapshot)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}

// Current handles GET /api/v1/display/session.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "display service not configured", nil)
		return
	}
	snap, err := h.Service.Current(r.Context(), r.URL.Query().Get("session"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}

// Clear handles DELETE /api/v1/display/session.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "display service not configured", nil)
		return
	}
	if err := h.Service.Clear(r.Context(), r.URL.Query().Get("session")); err != nil {
		common.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
