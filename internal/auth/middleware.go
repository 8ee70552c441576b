// Package auth guards the admin API. The moderation service is called
// server-to-server, so a static API key in the Authorization header is the
// whole story; there is no browser login flow.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireAPIKey is chi middleware that validates the bearer token against the
// configured key. An empty configured key disables the admin API entirely
// rather than leaving it open.
func RequireAPIKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || !validToken(r, apiKey) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"authentication required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validToken(r *http.Request, apiKey string) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1
}
