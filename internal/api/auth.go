package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// AdminAuth guards mutating endpoints with a static bearer token.
// A zero AdminAuth (no token configured) lets every request through.
type AdminAuth struct {
	digest []byte
}

// NewAdminAuth creates a guard for token. An empty token disables the check.
func NewAdminAuth(token string) *AdminAuth {
	if token == "" {
		log.Println("⚠️ Admin authentication DISABLED (set ADMIN_TOKEN to enable)")
		return &AdminAuth{}
	}
	sum := sha256.Sum256([]byte(token))
	return &AdminAuth{digest: sum[:]}
}

// Enabled reports whether a token is required.
func (a *AdminAuth) Enabled() bool {
	return a != nil && a.digest != nil
}

// Authorized checks the request's bearer token.
func (a *AdminAuth) Authorized(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	// digests have equal length, so the comparison is constant time
	sum := sha256.Sum256([]byte(token))
	return hmac.Equal(sum[:], a.digest)
}

// Middleware rejects unauthorized requests with 401.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Authorized(r) {
			RecordConnectionRejected("unauthorized")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": "Admin token required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
