package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Staff struct {
	ID           pgtype.UUID
	Username     string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    pgtype.Timestamptz
}

const getStaffByUsername = `
SELECT id, username, display_name, password_hash, role, created_at
FROM staff
WHERE username = $1
`

func (s *Store) GetStaffByUsername(ctx context.Context, username string) (Staff, error) {
	var st Staff
	err := s.db.QueryRow(ctx, getStaffByUsername, username).
		Scan(&st.ID, &st.Username, &st.DisplayName, &st.PasswordHash, &st.Role, &st.CreatedAt)
	return st, err
}

const insertStaff = `
INSERT INTO staff (id, username, display_name, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username) DO UPDATE SET
  display_name = EXCLUDED.display_name,
  password_hash = EXCLUDED.password_hash,
  role = EXCLUDED.role
RETURNING id
`

type InsertStaffParams struct {
	Username     string
	DisplayName  string
	PasswordHash string
	Role         string
}

func (s *Store) InsertStaff(ctx context.Context, arg InsertStaffParams) (pgtype.UUID, error) {
	var id pgtype.UUID
	err := s.db.QueryRow(ctx, insertStaff,
		NewUUID(), arg.Username, arg.DisplayName, arg.PasswordHash, arg.Role).Scan(&id)
	return id, err
}
