package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGatewayProviderStore(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if got := r.URL.Query().Get("folder"); got != "artwork" {
			t.Errorf("unexpected folder %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "f-1",
			"name":        "นามบัตร.pdf",
			"sizeBytes":   4,
			"contentType": "application/pdf",
			"downloadUrl": "https://files.example/f-1",
		})
	}))
	defer srv.Close()

	provider := NewGatewayProvider(srv.URL, "secret")
	remote, err := provider.Store(context.Background(), "artwork", FileInput{
		Name:        "นามบัตร.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF"),
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if remote.ID != "f-1" || remote.DownloadURL != "https://files.example/f-1" {
		t.Fatalf("unexpected remote file %+v", remote)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestGatewayProviderQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	provider := NewGatewayProvider(srv.URL, "")
	_, err := provider.Store(context.Background(), "artwork", FileInput{Name: "a.pdf", Data: []byte("x")})
	if err != errQuotaExceeded {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestGatewayProviderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Quota{UsedBytes: 10, LimitBytes: 100})
	}))
	defer srv.Close()

	provider := NewGatewayProvider(srv.URL, "")
	provider.HTTP.BaseBackoff = 1
	quota, err := provider.Quota(context.Background())
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	if quota.UsedBytes != 10 || quota.LimitBytes != 100 {
		t.Fatalf("unexpected quota %+v", quota)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected retry, got %d calls", calls.Load())
	}
}
