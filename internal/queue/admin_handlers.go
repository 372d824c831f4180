package queue

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glossydesign/pos-api/internal/common"
)

// AdminHandler exposes dead-letter management endpoints for the worker queue.
type AdminHandler struct {
	Store    Store
	Queue    Enqueuer
	PageSize int
	Logger   zerolog.Logger
}

type dlqItem struct {
	ID             uuid.UUID `json:"id"`
	Kind           string    `json:"kind"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
	Attempts       int       `json:"attempts"`
	LastError      *string   `json:"lastError,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ListDLQ returns parked tasks filtered by kind with pagination.
func (h *AdminHandler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "queue store unavailable", nil)
		return
	}
	ctx := r.Context()
	kind := sanitizeKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	page, perPage := common.ParsePagination(r, h.pageSize())

	entries, err := h.Store.ListQueueDlq(ctx, kind, perPage, (page-1)*perPage)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	total, err := h.Store.CountQueueDlq(ctx, kind)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	items := make([]dlqItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dlqItem{
			ID:             entry.ID,
			Kind:           entry.Kind,
			IdempotencyKey: entry.IdempotencyKey,
			Attempts:       entry.Attempts,
			LastError:      entry.LastError,
			CreatedAt:      entry.CreatedAt,
		})
	}
	common.List(w, items, common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

// ReplayDLQ requeues parked tasks by ID and removes them from the table.
func (h *AdminHandler) ReplayDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "queue store unavailable", nil)
		return
	}
	var in struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid JSON body", nil)
		return
	}
	if len(in.IDs) == 0 {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, "ids is required", nil)
		return
	}

	ctx := r.Context()
	replayed := make([]string, 0, len(in.IDs))
	for _, raw := range in.IDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		entry, err := h.Store.GetQueueDlq(ctx, id)
		if err != nil {
			continue
		}
		msg, err := decodeMessage(string(entry.Payload))
		if err != nil {
			h.Logger.Warn().Str("id", id.String()).Err(err).Msg("dlq_replay_decode_failed")
			continue
		}
		task := Task{
			Kind:        msg.Kind,
			Payload:     msg.Payload,
			MaxAttempts: msg.MaxAttempts,
		}
		if err := h.Queue.Enqueue(ctx, task); err != nil {
			h.Logger.Warn().Str("id", id.String()).Err(err).Msg("dlq_replay_enqueue_failed")
			continue
		}
		if err := h.Store.DeleteQueueDlq(ctx, id); err == nil {
			QueueDLQSize.WithLabelValues(entry.Kind).Dec()
		}
		replayed = append(replayed, id.String())
	}
	common.JSON(w, http.StatusOK, map[string]any{"replayed": replayed})
}

// Stats reports dead-letter sizes per task kind.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "queue store unavailable", nil)
		return
	}
	sizes, err := h.Store.QueueDlqSizeByKind(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"dlq": sizes})
}

func (h *AdminHandler) pageSize() int {
	if h.PageSize > 0 {
		return h.PageSize
	}
	return 50
}
