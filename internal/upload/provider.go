// Package upload receives customer print files, parks them in remote
// storage and tracks their print status at the counter.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FileInput is one incoming customer file.
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// RemoteFile is the stored copy as reported by the storage provider.
type RemoteFile struct {
	ID          string
	Name        string
	SizeBytes   int64
	ContentType string
	DownloadURL string
}

// Quota reports remote storage usage.
type Quota struct {
	UsedBytes  int64 `json:"usedBytes"`
	LimitBytes int64 `json:"limitBytes"`
}

// Provider abstracts the Drive-style storage backend customer files land in.
type Provider interface {
	Store(ctx context.Context, folder string, file FileInput) (RemoteFile, error)
	Quota(ctx context.Context) (Quota, error)
	Remove(ctx context.Context, remoteID string) error
}

// MemoryProvider keeps files in memory. It stands in for the real Drive
// client in tests and local development.
type MemoryProvider struct {
	LimitBytes int64

	mu    sync.Mutex
	files map[string]RemoteFile
	used  int64
}

var errQuotaExceeded = errors.New("upload: storage quota exceeded")

// Store records the file and synthesises a deterministic download URL.
func (p *MemoryProvider) Store(_ context.Context, folder string, file FileInput) (RemoteFile, error) {
	if strings.TrimSpace(file.Name) == "" {
		return RemoteFile{}, errors.New("upload: file name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	size := int64(len(file.Data))
	if p.LimitBytes > 0 && p.used+size > p.LimitBytes {
		return RemoteFile{}, errQuotaExceeded
	}
	if p.files == nil {
		p.files = make(map[string]RemoteFile)
	}
	id := uuid.NewString()
	remote := RemoteFile{
		ID:          id,
		Name:        file.Name,
		SizeBytes:   size,
		ContentType: file.ContentType,
		DownloadURL: fmt.Sprintf("memory://%s/%s", strings.Trim(folder, "/"), id),
	}
	p.files[id] = remote
	p.used += size
	return remote, nil
}

// Quota reports in-memory usage.
func (p *MemoryProvider) Quota(context.Context) (Quota, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Quota{UsedBytes: p.used, LimitBytes: p.LimitBytes}, nil
}

// Remove drops a stored file.
func (p *MemoryProvider) Remove(_ context.Context, remoteID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	remote, ok := p.files[remoteID]
	if !ok {
		return errors.New("upload: file not found")
	}
	p.used -= remote.SizeBytes
	delete(p.files, remoteID)
	return nil
}
