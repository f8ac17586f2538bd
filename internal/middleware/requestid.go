// AngelaMos | 2026
// requestid.go

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/acquisitions/api/internal/core"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates a caller supplied request id or mints a UUIDv4.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(core.WithRequestID(r.Context(), id)))
	})
}
