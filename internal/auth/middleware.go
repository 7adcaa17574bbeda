package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	edgemetrics "github.com/dreschagin/edge-adapter/internal/metrics"
)

// Middleware requires a bearer token for the protected paths. An empty token
// disables the check.
func Middleware(bearerToken string, protectedPaths []string, metrics *edgemetrics.Metrics, next http.Handler) http.Handler {
	if bearerToken == "" {
		return next
	}

	protected := make(map[string]struct{}, len(protectedPaths))
	for _, path := range protectedPaths {
		protected[path] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := protected[r.URL.Path]; !ok {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			metrics.AuthFailures.Inc()
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(bearerToken)) != 1 {
			metrics.AuthFailures.Inc()
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
