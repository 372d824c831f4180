package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/glossydesign/pos-api/internal/common"
	"github.com/glossydesign/pos-api/internal/events"
	"github.com/glossydesign/pos-api/internal/obs"
	"github.com/glossydesign/pos-api/internal/store"
)

// Print job statuses for received files.
const (
	StatusReceived  = "received"
	StatusPrinted   = "printed"
	StatusCollected = "collected"
)

const quotaCacheKey = "pos:upload:quota"

type uploadStore interface {
	InTx(ctx context.Context, fn func(uploadStore) error) error
	InsertUpload(ctx context.Context, arg store.InsertUploadParams) (store.Upload, error)
	InsertUploadFile(ctx context.Context, arg store.InsertUploadFileParams) error
	ListUploads(ctx context.Context, limit, offset int32) ([]store.Upload, error)
	ListUploadFiles(ctx context.Context, uploadID pgtype.UUID) ([]store.UploadFile, error)
	UpdateUploadStatus(ctx context.Context, id pgtype.UUID, status string) (store.Upload, error)
	UploadUsageByCategory(ctx context.Context) ([]store.UploadUsage, error)
}

// PGStore backs the service with the shared Postgres store, running job
// writes inside one transaction so a failed insert never leaves a partial
// record behind.
type PGStore struct {
	Pool *pgxpool.Pool
	*store.Store
}

func (p PGStore) InTx(ctx context.Context, fn func(uploadStore) error) error {
	if p.Pool == nil || p.Store == nil {
		return errNotConfigured
	}
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(PGStore{Pool: p.Pool, Store: p.Store.WithTx(tx)}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Service accepts customer files and tracks their print lifecycle.
type Service struct {
	Store    uploadStore
	Provider Provider
	Folder   string
	Redis    *redis.Client
	QuotaTTL time.Duration
	Events   *events.Bus
}

// CreateInput is a customer drop-off: who it belongs to plus the files.
type CreateInput struct {
	CustomerName string
	Phone        string
	Note         string
	Category     string
	Files        []FileInput
}

// File is a stored customer file as returned by the API.
type File struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType,omitempty"`
	DownloadURL string `json:"downloadUrl"`
}

// View is an upload job with its files.
type View struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customerName"`
	Phone        string    `json:"phone,omitempty"`
	Note         string    `json:"note,omitempty"`
	Category     string    `json:"category,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	Files        []File    `json:"files"`
}

var errNotConfigured = errors.New("upload service not configured")

const dedupGuardTTL = 2 * time.Minute

// Guard keys are hashed so customer names and filenames never reach the
// Redis keyspace verbatim.
func dedupKey(customer, filename string) string {
	sum := sha256.Sum256([]byte(customer + "\x00" + filename))
	return "pos:upload:dedup:" + hex.EncodeToString(sum[:])
}

// Create parks every file with the provider first, then records the job and
// its files in a single transaction. Any failure removes the remote copies
// already stored, so a rejected drop-off leaves neither a visible job nor a
// stray provider file.
func (s *Service) Create(ctx context.Context, in CreateInput) (View, error) {
	if s == nil || s.Store == nil || s.Provider == nil {
		return View{}, errNotConfigured
	}
	if in.CustomerName == "" {
		return View{}, common.Invalid("customerName is required", nil)
	}
	if len(in.Files) == 0 {
		return View{}, common.Invalid("at least one file is required", nil)
	}

	guards, err := s.acquireGuards(ctx, in)
	if err != nil {
		return View{}, err
	}
	defer s.releaseGuards(ctx, guards)

	stored := make([]RemoteFile, 0, len(in.Files))
	for _, file := range in.Files {
		remote, err := s.Provider.Store(ctx, s.Folder, file)
		if err != nil {
			s.removeStored(ctx, stored)
			if errors.Is(err, errQuotaExceeded) {
				return View{}, common.NewAppError("QUOTA_EXCEEDED", "storage quota exceeded", http.StatusInsufficientStorage, err)
			}
			return View{}, err
		}
		stored = append(stored, remote)
	}

	var row store.Upload
	err = s.Store.InTx(ctx, func(st uploadStore) error {
		var err error
		row, err = st.InsertUpload(ctx, store.InsertUploadParams{
			CustomerName: in.CustomerName,
			Phone:        store.NullableText(&in.Phone),
			Note:         store.NullableText(&in.Note),
			Category:     in.Category,
			Status:       StatusReceived,
		})
		if err != nil {
			return err
		}
		for _, remote := range stored {
			if err := st.InsertUploadFile(ctx, store.InsertUploadFileParams{
				UploadID:    row.ID,
				RemoteID:    remote.ID,
				Name:        remote.Name,
				SizeBytes:   remote.SizeBytes,
				ContentType: remote.ContentType,
				DownloadURL: remote.DownloadURL,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.removeStored(ctx, stored)
		return View{}, err
	}

	view := View{
		ID:           store.UUIDString(row.ID),
		CustomerName: row.CustomerName,
		Phone:        store.TextValue(row.Phone),
		Note:         store.TextValue(row.Note),
		Category:     row.Category,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt.Time,
		Files:        make([]File, 0, len(stored)),
	}
	for _, remote := range stored {
		obs.AddUploadStored(remote.SizeBytes)
		view.Files = append(view.Files, File{
			ID:          remote.ID,
			Name:        remote.Name,
			SizeBytes:   remote.SizeBytes,
			ContentType: remote.ContentType,
			DownloadURL: remote.DownloadURL,
		})
	}

	s.invalidateQuota(ctx)
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicUploadReceived, row.ID, map[string]any{
			"customerName": view.CustomerName,
			"files":        len(view.Files),
		})
	}
	return view, nil
}

// acquireGuards claims a short-lived dedup key per file so the same customer
// re-submitting the same filename while the first attempt is still in flight
// gets a 409 instead of a second copy. Redis errors fail open.
func (s *Service) acquireGuards(ctx context.Context, in CreateInput) ([]string, error) {
	if s.Redis == nil {
		return nil, nil
	}
	acquired := make([]string, 0, len(in.Files))
	for _, file := range in.Files {
		key := dedupKey(in.CustomerName, file.Name)
		ok, err := s.Redis.SetNX(ctx, key, "receiving", dedupGuardTTL).Result()
		if err != nil {
			continue
		}
		if !ok {
			s.releaseGuards(ctx, acquired)
			return nil, common.NewAppError(common.CodeConflict, "file is already being received",
				http.StatusConflict, nil)
		}
		acquired = append(acquired, key)
	}
	return acquired, nil
}

func (s *Service) releaseGuards(ctx context.Context, keys []string) {
	if s.Redis == nil || len(keys) == 0 {
		return
	}
	_ = s.Redis.Del(context.WithoutCancel(ctx), keys...).Err()
}

// removeStored compensates provider files after a failed create, best effort.
func (s *Service) removeStored(ctx context.Context, stored []RemoteFile) {
	for _, remote := range stored {
		_ = s.Provider.Remove(context.WithoutCancel(ctx), remote.ID)
	}
}

// List returns upload jobs newest first with their files.
func (s *Service) List(ctx context.Context, page, perPage int) ([]View, error) {
	if s == nil || s.Store == nil {
		return nil, errNotConfigured
	}
	offset := int32((page - 1) * perPage)
	rows, err := s.Store.ListUploads(ctx, int32(perPage), offset)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for _, row := range rows {
		files, err := s.Store.ListUploadFiles(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		view := View{
			ID:           store.UUIDString(row.ID),
			CustomerName: row.CustomerName,
			Phone:        store.TextValue(row.Phone),
			Note:         store.TextValue(row.Note),
			Category:     row.Category,
			Status:       row.Status,
			CreatedAt:    row.CreatedAt.Time,
			Files:        make([]File, 0, len(files)),
		}
		for _, f := range files {
			view.Files = append(view.Files, File{
				ID:          f.RemoteID,
				Name:        f.Name,
				SizeBytes:   f.SizeBytes,
				ContentType: f.ContentType,
				DownloadURL: f.DownloadURL,
			})
		}
		out = append(out, view)
	}
	return out, nil
}

// UpdateStatus moves an upload job through received -> printed -> collected.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errNotConfigured
	}
	switch status {
	case StatusReceived, StatusPrinted, StatusCollected:
	default:
		return View{}, common.Invalid("unknown upload status", map[string]any{"status": status})
	}
	uID, err := store.ToUUID(id)
	if err != nil {
		return View{}, common.NewAppError(common.CodeValidation, "invalid upload id", http.StatusBadRequest, err)
	}
	row, err := s.Store.UpdateUploadStatus(ctx, uID, status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NotFound("upload")
		}
		return View{}, err
	}
	return View{
		ID:           store.UUIDString(row.ID),
		CustomerName: row.CustomerName,
		Phone:        store.TextValue(row.Phone),
		Note:         store.TextValue(row.Note),
		Category:     row.Category,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt.Time,
	}, nil
}

// StorageQuota reports provider usage, cache-aside so the counter dashboard
// can poll it freely.
func (s *Service) StorageQuota(ctx context.Context) (Quota, error) {
	if s == nil || s.Provider == nil {
		return Quota{}, errNotConfigured
	}
	if s.Redis != nil {
		if data, err := s.Redis.Get(ctx, quotaCacheKey).Bytes(); err == nil {
			var cached Quota
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}
	quota, err := s.Provider.Quota(ctx)
	if err != nil {
		return Quota{}, err
	}
	if s.Redis != nil {
		if data, err := json.Marshal(quota); err == nil {
			_ = s.Redis.Set(ctx, quotaCacheKey, data, s.QuotaTTL).Err()
		}
	}
	return quota, nil
}

// FolderUsage is storage consumption for one drop-off category.
type FolderUsage struct {
	Folder    string `json:"folder"`
	Files     int64  `json:"files"`
	SizeBytes int64  `json:"sizeBytes"`
}

// FolderQuota breaks usage down per category folder.
func (s *Service) FolderQuota(ctx context.Context) ([]FolderUsage, error) {
	if s == nil || s.Store == nil {
		return nil, errNotConfigured
	}
	rows, err := s.Store.UploadUsageByCategory(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FolderUsage, 0, len(rows))
	for _, row := range rows {
		folder := row.Category
		if folder == "" {
			folder = "uncategorised"
		}
		out = append(out, FolderUsage{Folder: folder, Files: row.Files, SizeBytes: row.SizeBytes})
	}
	return out, nil
}

func (s *Service) invalidateQuota(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Del(ctx, quotaCacheKey).Err()
}
