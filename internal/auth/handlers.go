package auth

import (
	"encoding/json"
	"net/http"

	"github.com/glossydesign/pos-api/internal/common"
)

// Handler exposes the auth endpoints.
type Handler struct {
	Service *Service
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "auth service not configured", nil)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	staffID, ok := common.StaffID(r.Context())
	if !ok || staffID == "" {
		common.JSONError(w, http.StatusUnauthorized, common.CodeAuth, "authentication required", nil)
		return
	}
	role, _ := common.StaffRole(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"id": staffID, "role": role},
	})
}
