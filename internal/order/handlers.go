package order

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/glossydesign/pos-api/internal/common"
)

type orderService interface {
	Create(ctx context.Context, in CreateInput) (View, error)
	Get(ctx context.Context, id string) (View, error)
	List(ctx context.Context, status string, page, perPage int) ([]View, int64, error)
	Payments(ctx context.Context, id string) ([]PaymentRecord, error)
	ApplyPayment(ctx context.Context, id string, in PaymentInput) (View, error)
	Cancel(ctx context.Context, id string) (View, error)
}

type summaryService interface {
	Summary(ctx context.Context) (Summary, error)
}

// Handler exposes the order endpoints.
type Handler struct {
	Service   orderService
	Summaries summaryService
}

// Create handles POST /api/v1/orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order service not configured", nil)
		return
	}
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	view, err := h.Service.Create(r.Context(), in)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	status := r.URL.Query().Get("status")
	views, total, err := h.Service.List(r.Context(), status, page, perPage)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.List(w, views, common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order service not configured", nil)
		return
	}
	view, err := h.Service.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Payments handles GET /api/v1/orders/{orderId}/payments.
func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order service not configured", nil)
		return
	}
	records, err := h.Service.Payments(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": records})
}

// ApplyPayment handles PATCH /api/v1/orders/{orderId}/payments.
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order service not configured", nil)
		return
	}
	var in PaymentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	view, err := h.Service.ApplyPayment(r.Context(), chi.URLParam(r, "orderId"), in)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Cancel handles POST /api/v1/orders/{orderId}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order service not configured", nil)
		return
	}
	view, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Summary handles GET /api/v1/orders/summary.
func (h *Handler) SummaryToday(w http.ResponseWriter, r *http.Request) {
	if h.Summaries == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "summary service not configured", nil)
		return
	}
	summary, err := h.Summaries.Summary(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}
