package upload

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/glossydesign/pos-api/internal/common"
	"github.com/glossydesign/pos-api/internal/store"
)

type fakeUploadStore struct {
	uploads []store.Upload
	files   map[string][]store.UploadFile

	fileInserts       int
	failFileInsertOn  int
	fileInsertFailure error
}

func newFakeUploadStore() *fakeUploadStore {
	return &fakeUploadStore{files: make(map[string][]store.UploadFile)}
}

// InTx mimics transactional writes: state is restored when fn fails.
func (f *fakeUploadStore) InTx(_ context.Context, fn func(uploadStore) error) error {
	savedUploads := append([]store.Upload(nil), f.uploads...)
	savedFiles := make(map[string][]store.UploadFile, len(f.files))
	for key, rows := range f.files {
		savedFiles[key] = append([]store.UploadFile(nil), rows...)
	}
	if err := fn(f); err != nil {
		f.uploads = savedUploads
		f.files = savedFiles
		return err
	}
	return nil
}

func (f *fakeUploadStore) InsertUpload(_ context.Context, arg store.InsertUploadParams) (store.Upload, error) {
	row := store.Upload{
		ID:           store.NewUUID(),
		CustomerName: arg.CustomerName,
		Phone:        arg.Phone,
		Note:         arg.Note,
		Category:     arg.Category,
		Status:       arg.Status,
		CreatedAt:    pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.uploads = append([]store.Upload{row}, f.uploads...)
	return row, nil
}

func (f *fakeUploadStore) InsertUploadFile(_ context.Context, arg store.InsertUploadFileParams) error {
	f.fileInserts++
	if f.failFileInsertOn > 0 && f.fileInserts == f.failFileInsertOn {
		return f.fileInsertFailure
	}
	key := store.UUIDString(arg.UploadID)
	f.files[key] = append(f.files[key], store.UploadFile{
		ID:          store.NewUUID(),
		UploadID:    arg.UploadID,
		RemoteID:    arg.RemoteID,
		Name:        arg.Name,
		SizeBytes:   arg.SizeBytes,
		ContentType: arg.ContentType,
		DownloadURL: arg.DownloadURL,
	})
	return nil
}

func (f *fakeUploadStore) ListUploads(_ context.Context, limit, offset int32) ([]store.Upload, error) {
	if int(offset) >= len(f.uploads) {
		return nil, nil
	}
	end := int(offset + limit)
	if end > len(f.uploads) {
		end = len(f.uploads)
	}
	return f.uploads[offset:end], nil
}

func (f *fakeUploadStore) ListUploadFiles(_ context.Context, uploadID pgtype.UUID) ([]store.UploadFile, error) {
	return f.files[store.UUIDString(uploadID)], nil
}

func (f *fakeUploadStore) UpdateUploadStatus(_ context.Context, id pgtype.UUID, status string) (store.Upload, error) {
	for i, row := range f.uploads {
		if row.ID == id {
			f.uploads[i].Status = status
			return f.uploads[i], nil
		}
	}
	return store.Upload{}, pgx.ErrNoRows
}

func (f *fakeUploadStore) UploadUsageByCategory(context.Context) ([]store.UploadUsage, error) {
	usage := make(map[string]*store.UploadUsage)
	order := []string{}
	for _, row := range f.uploads {
		u, ok := usage[row.Category]
		if !ok {
			u = &store.UploadUsage{Category: row.Category}
			usage[row.Category] = u
			order = append(order, row.Category)
		}
		for _, file := range f.files[store.UUIDString(row.ID)] {
			u.Files++
			u.SizeBytes += file.SizeBytes
		}
	}
	sort.Strings(order)
	out := make([]store.UploadUsage, 0, len(order))
	for _, cat := range order {
		out = append(out, *usage[cat])
	}
	return out, nil
}

func newTestService(t *testing.T, provider Provider) (*Service, *fakeUploadStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := newFakeUploadStore()
	return &Service{
		Store:    st,
		Provider: provider,
		Folder:   "customer-files",
		Redis:    client,
		QuotaTTL: time.Minute,
	}, st
}

func TestCreateAndListUploads(t *testing.T) {
	svc, _ := newTestService(t, &MemoryProvider{LimitBytes: 1 << 20})
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateInput{
		CustomerName: "คุณน้ำฝน",
		Phone:        "0812345678",
		Category:     "document",
		Files: []FileInput{
			{Name: "thesis.pdf", ContentType: "application/pdf", Data: make([]byte, 2048)},
			{Name: "cover.jpg", ContentType: "image/jpeg", Data: make([]byte, 512)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusReceived, view.Status)
	require.Len(t, view.Files, 2)
	require.Equal(t, int64(2048), view.Files[0].SizeBytes)
	require.NotEmpty(t, view.Files[0].DownloadURL)

	listed, err := svc.List(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Files, 2)
}

func TestFolderQuotaGroupsByCategory(t *testing.T) {
	svc, _ := newTestService(t, &MemoryProvider{LimitBytes: 1 << 20})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		CustomerName: "a",
		Category:     "document",
		Files:        []FileInput{{Name: "a.pdf", Data: make([]byte, 100)}},
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{
		CustomerName: "b",
		Category:     "namecard",
		Files: []FileInput{
			{Name: "front.ai", Data: make([]byte, 300)},
			{Name: "back.ai", Data: make([]byte, 200)},
		},
	})
	require.NoError(t, err)

	usage, err := svc.FolderQuota(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 2)
	require.Equal(t, "document", usage[0].Folder)
	require.Equal(t, int64(1), usage[0].Files)
	require.Equal(t, int64(100), usage[0].SizeBytes)
	require.Equal(t, "namecard", usage[1].Folder)
	require.Equal(t, int64(2), usage[1].Files)
	require.Equal(t, int64(500), usage[1].SizeBytes)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, &MemoryProvider{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Files: []FileInput{{Name: "a.pdf"}}})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateInput{CustomerName: "x"})
	require.Error(t, err)
}

type failingProvider struct {
	MemoryProvider
	stores      int
	failOnStore int
}

func (p *failingProvider) Store(ctx context.Context, folder string, file FileInput) (RemoteFile, error) {
	p.stores++
	if p.failOnStore > 0 && p.stores == p.failOnStore {
		return RemoteFile{}, errors.New("drive: connection reset")
	}
	return p.MemoryProvider.Store(ctx, folder, file)
}

func TestCreateProviderFailureLeavesNothingBehind(t *testing.T) {
	provider := &failingProvider{failOnStore: 2}
	svc, st := newTestService(t, provider)

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerName: "x",
		Files: []FileInput{
			{Name: "front.pdf", Data: make([]byte, 100)},
			{Name: "back.pdf", Data: make([]byte, 100)},
		},
	})
	require.Error(t, err)

	require.Empty(t, st.uploads, "no job row may survive a failed drop-off")
	require.Empty(t, st.files)

	quota, err := provider.Quota(context.Background())
	require.NoError(t, err)
	require.Zero(t, quota.UsedBytes, "the stored remote file must be removed")
}

func TestCreateFileRowFailureRollsBack(t *testing.T) {
	provider := &MemoryProvider{LimitBytes: 1 << 20}
	svc, st := newTestService(t, provider)
	st.failFileInsertOn = 2
	st.fileInsertFailure = errors.New("insert failed")

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerName: "x",
		Files: []FileInput{
			{Name: "front.pdf", Data: make([]byte, 100)},
			{Name: "back.pdf", Data: make([]byte, 100)},
		},
	})
	require.Error(t, err)

	require.Empty(t, st.uploads)
	require.Empty(t, st.files)

	quota, err := provider.Quota(context.Background())
	require.NoError(t, err)
	require.Zero(t, quota.UsedBytes)
}

func TestCreateRejectsDuplicateInFlight(t *testing.T) {
	svc, _ := newTestService(t, &MemoryProvider{LimitBytes: 1 << 20})
	ctx := context.Background()

	held, err := svc.Redis.SetNX(ctx, dedupKey("x", "thesis.pdf"), "receiving", time.Minute).Result()
	require.NoError(t, err)
	require.True(t, held)

	_, err = svc.Create(ctx, CreateInput{
		CustomerName: "x",
		Files:        []FileInput{{Name: "thesis.pdf", Data: []byte("pdf")}},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestCreateReleasesDedupGuard(t *testing.T) {
	svc, _ := newTestService(t, &MemoryProvider{LimitBytes: 1 << 20})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		CustomerName: "x",
		Files:        []FileInput{{Name: "thesis.pdf", Data: []byte("pdf")}},
	})
	require.NoError(t, err)

	exists, err := svc.Redis.Exists(ctx, dedupKey("x", "thesis.pdf")).Result()
	require.NoError(t, err)
	require.Zero(t, exists, "guard key must be released after the job is recorded")
}

func TestCreateQuotaExceeded(t *testing.T) {
	svc, _ := newTestService(t, &MemoryProvider{LimitBytes: 100})
	_, err := svc.Create(context.Background(), CreateInput{
		CustomerName: "x",
		Files:        []FileInput{{Name: "big.pdf", Data: make([]byte, 200)}},
	})
	require.Error(t, err)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	svc, st := newTestService(t, &MemoryProvider{})
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateInput{
		CustomerName: "x",
		Files:        []FileInput{{Name: "a.pdf", Data: []byte("pdf")}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, view.ID, StatusPrinted)
	require.NoError(t, err)
	require.Equal(t, StatusPrinted, updated.Status)
	require.Equal(t, StatusPrinted, st.uploads[0].Status)

	_, err = svc.UpdateStatus(ctx, view.ID, "shredded")
	require.Error(t, err)

	_, err = svc.UpdateStatus(ctx, store.UUIDString(store.NewUUID()), StatusPrinted)
	require.Error(t, err)
}

func TestStorageQuotaCached(t *testing.T) {
	provider := &MemoryProvider{LimitBytes: 1000}
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	quota, err := svc.StorageQuota(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), quota.UsedBytes)

	_, err = provider.Store(ctx, "f", FileInput{Name: "a", Data: make([]byte, 100)})
	require.NoError(t, err)

	// cached value still served
	quota, err = svc.StorageQuota(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), quota.UsedBytes)

	svc.invalidateQuota(ctx)
	quota, err = svc.StorageQuota(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(100), quota.UsedBytes)
}
