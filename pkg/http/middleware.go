// Package http carries shared HTTP middleware for the packsnap services.
package http

import (
	"net/http"
	"strings"

	"github.com/packsnap/packsnap/pkg/models"
)

// CommonMiddleware applies CORS headers and answers preflight requests.
// An empty allowed-origins list means same-origin only: no CORS headers
// are emitted at all.
func CommonMiddleware(next http.Handler, cors models.CORSConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if allowed := matchOrigin(cors.AllowedOrigins, origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if cors.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func matchOrigin(allowed []string, origin string) string {
	if origin == "" {
		return ""
	}

	for _, candidate := range allowed {
		if candidate == "*" {
			return "*"
		}

		if strings.EqualFold(candidate, origin) {
			return origin
		}
	}

	return ""
}

// CheckWebSocketOrigin builds the origin check gorilla/websocket upgrades
// use, from the same CORS configuration as the HTTP middleware. Requests
// without an Origin header are allowed.
func CheckWebSocketOrigin(cors models.CORSConfig) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		return matchOrigin(cors.AllowedOrigins, origin) != ""
	}
}
