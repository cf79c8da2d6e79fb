package middleware

import (
	"crypto/subtle"
	"net/http"

	"fishbot-economy-api/pkg/apierror"
	"fishbot-economy-api/pkg/response"
)

// LoginKeyHeader carries the admin key.
const LoginKeyHeader = "X-Login-Key"

// RequireLoginKey rejects requests whose X-Login-Key does not match key.
// An empty key disables the protected routes entirely.
func RequireLoginKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				response.Error(w, apierror.ServiceUnavailable("admin endpoints are disabled"))
				return
			}

			got := r.Header.Get(LoginKeyHeader)
			if got == "" {
				response.Error(w, apierror.Unauthorized("X-Login-Key header required"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				response.Error(w, apierror.Forbidden("invalid login key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
