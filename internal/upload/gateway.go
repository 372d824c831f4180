package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/glossydesign/pos-api/internal/resilience"
)

// GatewayProvider stores customer files through the shop's Drive gateway, a
// small HTTP service that owns the Google Drive credentials. Requests go
// through a retrying client with a circuit breaker so a flaky gateway does
// not hang the counter.
type GatewayProvider struct {
	BaseURL string
	Token   string
	HTTP    resilience.HTTPClient
}

// NewGatewayProvider wires a provider with sensible retry defaults.
func NewGatewayProvider(baseURL, token string) *GatewayProvider {
	return &GatewayProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Timeout: 30 * time.Second},
			Breaker:     resilience.NewBreaker(5, 0.5, 20*time.Second).WithTarget("artwork-storage"),
			BaseBackoff: 250 * time.Millisecond,
			MaxAttempts: 3,
			Jitter:      0.2,
		},
	}
}

type gatewayFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType"`
	DownloadURL string `json:"downloadUrl"`
}

// Store uploads one file into the given folder.
func (p *GatewayProvider) Store(ctx context.Context, folder string, file FileInput) (RemoteFile, error) {
	if strings.TrimSpace(file.Name) == "" {
		return RemoteFile{}, fmt.Errorf("upload: file name is required")
	}
	endpoint := fmt.Sprintf("%s/v1/files?folder=%s&name=%s", p.BaseURL, url.QueryEscape(folder), url.QueryEscape(file.Name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(file.Data))
	if err != nil {
		return RemoteFile{}, err
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	p.authorize(req)

	resp, err := p.HTTP.Do(ctx, req)
	if err != nil {
		return RemoteFile{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusInsufficientStorage:
		return RemoteFile{}, errQuotaExceeded
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return RemoteFile{}, fmt.Errorf("upload: gateway returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out gatewayFile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RemoteFile{}, err
	}
	return RemoteFile{
		ID:          out.ID,
		Name:        out.Name,
		SizeBytes:   out.SizeBytes,
		ContentType: out.ContentType,
		DownloadURL: out.DownloadURL,
	}, nil
}

// Quota fetches remote storage usage.
func (p *GatewayProvider) Quota(ctx context.Context) (Quota, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/v1/quota", nil)
	if err != nil {
		return Quota{}, err
	}
	p.authorize(req)

	resp, err := p.HTTP.Do(ctx, req)
	if err != nil {
		return Quota{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Quota{}, fmt.Errorf("upload: gateway returned %s", resp.Status)
	}

	var out Quota
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Quota{}, err
	}
	return out, nil
}

// Remove deletes a stored file by its remote identifier.
func (p *GatewayProvider) Remove(ctx context.Context, remoteID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.BaseURL+"/v1/files/"+url.PathEscape(remoteID), nil)
	if err != nil {
		return err
	}
	p.authorize(req)

	resp, err := p.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("upload: gateway returned %s", resp.Status)
	}
	return nil
}

func (p *GatewayProvider) authorize(req *http.Request) {
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}
}
