package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Upload struct {
	ID           pgtype.UUID
	CustomerName string
	Phone        pgtype.Text
	Note         pgtype.Text
	Category     string
	Status       string
	CreatedAt    pgtype.Timestamptz
}

type UploadFile struct {
	ID          pgtype.UUID
	UploadID    pgtype.UUID
	RemoteID    string
	Name        string
	SizeBytes   int64
	ContentType string
	DownloadURL string
}

const insertUpload = `
INSERT INTO uploads (id, customer_name, phone, note, category, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, customer_name, phone, note, category, status, created_at
`

type InsertUploadParams struct {
	CustomerName string
	Phone        pgtype.Text
	Note         pgtype.Text
	Category     string
	Status       string
}

func (s *Store) InsertUpload(ctx context.Context, arg InsertUploadParams) (Upload, error) {
	var u Upload
	err := s.db.QueryRow(ctx, insertUpload,
		NewUUID(), arg.CustomerName, arg.Phone, arg.Note, arg.Category, arg.Status).
		Scan(&u.ID, &u.CustomerName, &u.Phone, &u.Note, &u.Category, &u.Status, &u.CreatedAt)
	return u, err
}

const insertUploadFile = `
INSERT INTO upload_files (id, upload_id, remote_id, name, size_bytes, content_type, download_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertUploadFileParams struct {
	UploadID    pgtype.UUID
	RemoteID    string
	Name        string
	SizeBytes   int64
	ContentType string
	DownloadURL string
}

func (s *Store) InsertUploadFile(ctx context.Context, arg InsertUploadFileParams) error {
	_, err := s.db.Exec(ctx, insertUploadFile,
		NewUUID(), arg.UploadID, arg.RemoteID, arg.Name, arg.SizeBytes, arg.ContentType, arg.DownloadURL)
	return err
}

const listUploads = `
SELECT id, customer_name, phone, note, category, status, created_at
FROM uploads
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

func (s *Store) ListUploads(ctx context.Context, limit, offset int32) ([]Upload, error) {
	rows, err := s.db.Query(ctx, listUploads, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.CustomerName, &u.Phone, &u.Note, &u.Category, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const listUploadFiles = `
SELECT id, upload_id, remote_id, name, size_bytes, content_type, download_url
FROM upload_files
WHERE upload_id = $1
ORDER BY name
`

func (s *Store) ListUploadFiles(ctx context.Context, uploadID pgtype.UUID) ([]UploadFile, error) {
	rows, err := s.db.Query(ctx, listUploadFiles, uploadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UploadFile
	for rows.Next() {
		var f UploadFile
		if err := rows.Scan(&f.ID, &f.UploadID, &f.RemoteID, &f.Name, &f.SizeBytes, &f.ContentType, &f.DownloadURL); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type UploadUsage struct {
	Category  string
	Files     int64
	SizeBytes int64
}

const uploadUsageByCategory = `
SELECT u.category, COUNT(f.id), COALESCE(SUM(f.size_bytes), 0)
FROM uploads u
LEFT JOIN upload_files f ON f.upload_id = u.id
GROUP BY u.category
ORDER BY u.category
`

func (s *Store) UploadUsageByCategory(ctx context.Context) ([]UploadUsage, error) {
	rows, err := s.db.Query(ctx, uploadUsageByCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UploadUsage
	for rows.Next() {
		var u UploadUsage
		if err := rows.Scan(&u.Category, &u.Files, &u.SizeBytes); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const updateUploadStatus = `
UPDATE uploads SET status = $2 WHERE id = $1
RETURNING id, customer_name, phone, note, category, status, created_at
`

func (s *Store) UpdateUploadStatus(ctx context.Context, id pgtype.UUID, status string) (Upload, error) {
	var u Upload
	err := s.db.QueryRow(ctx, updateUploadStatus, id, status).
		Scan(&u.ID, &u.CustomerName, &u.Phone, &u.Note, &u.Category, &u.Status, &u.CreatedAt)
	return u, err
}
