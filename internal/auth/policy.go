// Package auth guards the HTTP API with a static bearer token.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Policy decides which requests get through. An empty Token disables
// authentication entirely. NFCPublic leaves the NFC endpoints open so
// readers without credential storage can still post scans.
type Policy struct {
	Token     string
	NFCPublic bool
}

func (p Policy) authorized(r *http.Request) bool {
	if p.Token == "" {
		return true
	}
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(token), []byte(p.Token)) == 1
}

// RequireAPI rejects requests without a valid bearer token.
func (p Policy) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.authorized(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireNFC is RequireAPI unless the NFC surface is configured public.
func (p Policy) RequireNFC(next http.Handler) http.Handler {
	if p.NFCPublic {
		return next
	}
	return p.RequireAPI(next)
}
