package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem is an Idempotency-Key middleware backed by Redis SetNX. Cashier
// tablets retry order submission over flaky shop wifi; the first request
// claims the key and replays get 409 until the TTL runs out.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// Keys are hashed so arbitrary client input never reaches the keyspace.
func idemKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "pos:idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces at-most-once semantics for write endpoints. Requests
// without an Idempotency-Key header pass through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := idemKey(header)
		claimed, err := i.R.SetNX(r.Context(), key, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, CodeInternal, "idempotency store error", nil)
			return
		}
		if !claimed {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}

		// Re-arm the TTL on the way out so a panicking handler cannot
		// leave the key claimed forever.
		defer func() {
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
