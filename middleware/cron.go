package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// CronSecretMiddleware admits requests carrying "Authorization: Bearer
// <secret>". An empty secret disables the endpoint.
func CronSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				respondWithError(w, http.StatusServiceUnavailable, "Cron endpoint disabled")
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
