// Package middleware provides HTTP middleware for request handling.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mandalnilabja/drawgate/internal/types"
)

// CORS adds Cross-Origin Resource Sharing headers so browser pages can call
// the generate endpoints directly.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Goog-Api-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AdminAuth protects admin routes with an optional bearer token.
// An empty token leaves the routes open.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				types.WriteError(w, http.StatusUnauthorized, types.ErrAuthentication("authorization required"))
				return
			}

			supplied := strings.TrimPrefix(auth, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				types.WriteError(w, http.StatusUnauthorized, types.ErrAuthentication("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
