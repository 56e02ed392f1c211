package security

import (
	"errors"
	"net/http"
)

// BodyLimit caps request payload sizes. Carts and checkout requests are
// tiny JSON documents, so anything past the limit is either a mistake or
// abuse.
type BodyLimit struct {
	Max int64
}

// Middleware rejects oversized payloads with HTTP 413. The declared
// Content-Length is checked up front; chunked bodies are capped while the
// handler reads them.
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

// IsBodyTooLarge reports whether a decode error came from the body cap,
// letting handlers answer 413 instead of a generic 400.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
