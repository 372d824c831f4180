package upload

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glossydesign/pos-api/internal/common"
)

// maxUploadBytes bounds a single multipart submission.
const maxUploadBytes = 100 << 20

// Handler exposes the upload endpoints.
type Handler struct {
	Service *Service
}

// Create handles POST /api/v1/upload (multipart form).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "upload service not configured", nil)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart payload", nil)
		return
	}
	in := CreateInput{
		CustomerName: r.FormValue("customerName"),
		Phone:        r.FormValue("phone"),
		Note:         r.FormValue("note"),
		Category:     r.FormValue("category"),
	}
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			file, err := header.Open()
			if err != nil {
				common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unreadable file part", nil)
				return
			}
			data, err := io.ReadAll(file)
			_ = file.Close()
			if err != nil {
				common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unreadable file part", nil)
				return
			}
			in.Files = append(in.Files, FileInput{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}
	view, err := h.Service.Create(r.Context(), in)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// List handles GET /api/v1/upload.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "upload service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	views, err := h.Service.List(r.Context(), page, perPage)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// UpdateStatus handles PATCH /api/v1/upload/{uploadId}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "upload service not configured", nil)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	view, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "uploadId"), req.Status)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Quota handles GET /api/v1/upload/quota.
func (h *Handler) Quota(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "upload service not configured", nil)
		return
	}
	quota, err := h.Service.StorageQuota(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quota})
}

// QuotaFolders handles GET /api/v1/upload/quota/folders.
func (h *Handler) QuotaFolders(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "upload service not configured", nil)
		return
	}
	usage, err := h.Service.FolderQuota(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": usage})
}
