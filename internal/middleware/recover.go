package middleware

import (
	"log/slog"
	"net/http"

	"github.com/goldvault/backend/internal/api/httpx"
)

// Recover turns handler panics into a 500 instead of tearing the connection
// down. The panic value is logged with the request's correlation id.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered", "err", rec, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()))
				httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
