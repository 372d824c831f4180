package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/glossydesign/pos-api/internal/auth"
	"github.com/glossydesign/pos-api/internal/common"
	"github.com/glossydesign/pos-api/internal/store"
)

type fakeStaffStore struct {
	rows map[string]store.Staff
}

func (f *fakeStaffStore) GetStaffByUsername(_ context.Context, username string) (store.Staff, error) {
	row, ok := f.rows[username]
	if !ok {
		return store.Staff{}, pgx.ErrNoRows
	}
	return row, nil
}

func newAuthService(t *testing.T) (*auth.Service, store.Staff) {
	t.Helper()
	hash, err := auth.HashPassword("correct horse battery")
	require.NoError(t, err)
	row := store.Staff{
		ID:           store.NewUUID(),
		Username:     "nok",
		DisplayName:  "Nok",
		PasswordHash: hash,
		Role:         "staff",
	}
	svc, err := auth.NewService(auth.Config{
		Staff:          &fakeStaffStore{rows: map[string]store.Staff{"nok": row}},
		Secret:         "test-secret",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc, row
}

func TestLoginAndParseToken(t *testing.T) {
	svc, row := newAuthService(t)

	result, err := svc.Login(context.Background(), "NOK", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, store.UUIDString(row.ID), result.Staff.ID)
	require.NotEmpty(t, result.AccessToken)

	identity, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.Staff.ID, identity.StaffID)
	require.Equal(t, "staff", identity.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), "nok", "wrong password")
	require.Error(t, err)

	_, err = svc.Login(context.Background(), "somchai", "correct horse battery")
	require.Error(t, err)

	_, err = svc.Login(context.Background(), "", "")
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc, _ := newAuthService(t)

	svc.WithNow(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	result, err := svc.Login(context.Background(), "nok", "correct horse battery")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthService(t)
	_, err := svc.ParseAccessToken("not.a.token")
	require.Error(t, err)
	_, err = svc.ParseAccessToken("")
	require.Error(t, err)
}

func TestMiddlewareRequireAuth(t *testing.T) {
	svc, _ := newAuthService(t)
	result, err := svc.Login(context.Background(), "nok", "correct horse battery")
	require.NoError(t, err)

	mw := auth.Middleware{Service: svc}
	var gotID string
	protected := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = common.StaffID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, result.Staff.ID, gotID)

	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler(t *testing.T) {
	svc, _ := newAuthService(t)
	handler := &auth.Handler{Service: svc}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"nok","password":"correct horse battery"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"nok","password":"nope"}`))
	rec = httptest.NewRecorder()
	handler.Login(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
