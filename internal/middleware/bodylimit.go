package middleware

import (
	"net/http"

	"github.com/usersvc/usersvc/internal/handler/dto"
)

// MaxBodySize returns middleware that caps the request body at maxBytes.
// Every write endpoint takes a small JSON document, so oversized bodies
// are rejected up front instead of being buffered into the decoder.
//
// Declared lengths over the limit are rejected immediately; chunked
// bodies are wrapped with MaxBytesReader so the decoder fails once the
// limit is crossed.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeEnvelope(w, http.StatusRequestEntityTooLarge, dto.StatusFail, "Request body too large.")
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}
