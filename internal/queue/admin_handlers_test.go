package queue_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/glossydesign/pos-api/internal/queue"
)

func TestAdminListAndReplayDLQ(t *testing.T) {
	client := newQueueRedis(t)

	store := newMemoryStore()
	msg := map[string]any{
		"kind":         queue.KindSummaryRefresh,
		"key":          "2026-08-30",
		"payload":      []byte(`{"date":"2026-08-30"}`),
		"attempt":      2,
		"max_attempts": 2,
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	id, err := store.InsertQueueDlq(context.Background(), queue.DLQEntry{
		Kind:           queue.KindSummaryRefresh,
		IdempotencyKey: "2026-08-30",
		Payload:        raw,
		Attempts:       2,
		CreatedAt:      time.Now(),
	})
	require.NoError(t, err)

	handler := &queue.AdminHandler{
		Store:  store,
		Queue:  queue.Enqueuer{R: client, Prefix: "pos"},
		Logger: zerolog.New(io.Discard),
	}

	rr := httptest.NewRecorder()
	handler.ListDLQ(rr, httptest.NewRequest(http.MethodGet, "/admin/queue/dlq?kind=summary-refresh", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var listResp struct {
		Data []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listResp))
	require.Len(t, listResp.Data, 1)
	require.Equal(t, queue.KindSummaryRefresh, listResp.Data[0].Kind)

	body := strings.NewReader(`{"ids":["` + id.String() + `"]}`)
	rr = httptest.NewRecorder()
	handler.ReplayDLQ(rr, httptest.NewRequest(http.MethodPost, "/admin/queue/dlq/replay", body))
	require.Equal(t, http.StatusOK, rr.Code)

	count, err := store.CountQueueDlq(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	depth, err := client.ZCard(context.Background(), "pos:queue:summary-refresh").Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), depth)
}

func TestAdminReplayRequiresIDs(t *testing.T) {
	handler := &queue.AdminHandler{Store: newMemoryStore(), Logger: zerolog.New(io.Discard)}
	rr := httptest.NewRecorder()
	handler.ReplayDLQ(rr, httptest.NewRequest(http.MethodPost, "/admin/queue/dlq/replay", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestAdminStats(t *testing.T) {
	store := newMemoryStore()
	_, err := store.InsertQueueDlq(context.Background(), queue.DLQEntry{Kind: queue.KindDisplayClear, Payload: []byte(`{}`)})
	require.NoError(t, err)

	handler := &queue.AdminHandler{Store: store, Logger: zerolog.New(io.Discard)}
	rr := httptest.NewRecorder()
	handler.Stats(rr, httptest.NewRequest(http.MethodGet, "/admin/queue/stats", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		DLQ map[string]int64 `json:"dlq"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.DLQ[queue.KindDisplayClear])
}
