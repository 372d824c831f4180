package security

import "net/http"

// BodyLimit caps request payload size. JSON endpoints get a small cap, the
// artwork upload route a much larger one, so the router mounts two of these.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests with a declared length over the cap and wraps
// the body in a MaxBytesReader so chunked requests are cut off at the same
// point instead of being buffered here.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
