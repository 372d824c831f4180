package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/glossydesign/pos-api/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware gates routes on a valid staff access token.
type Middleware struct {
	Service *Service
}

// RequireAuth rejects the request with 401 unless the bearer token parses
// and validates; on success the staff identity rides the request context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.identify(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		ctx := common.WithStaff(r.Context(), identity.StaffID, identity.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) identify(r *http.Request) (Identity, error) {
	if m.Service == nil {
		return Identity{}, errors.New("auth: service not configured")
	}
	token := bearerToken(r)
	if token == "" {
		return Identity{}, errNoToken
	}
	return m.Service.ParseAccessToken(token)
}

func writeAuthError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusUnauthorized
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusUnauthorized, common.CodeAuth, "missing or invalid token", nil)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}
