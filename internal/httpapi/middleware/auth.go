package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// apiKey extracts the caller's key from "Authorization: Bearer <key>" or
// the X-API-Key header.
func apiKey(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

type keyring [][]byte

func newKeyring(keys []string) keyring {
	kr := make(keyring, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			kr = append(kr, []byte(k))
		}
	}
	return kr
}

// contains compares against every key so timing does not reveal which
// one matched.
func (kr keyring) contains(given string) bool {
	if given == "" {
		return false
	}
	g := []byte(given)
	found := 0
	for _, k := range kr {
		found |= subtle.ConstantTimeCompare(k, g)
	}
	return found == 1
}

// RequireKey rejects requests without one of keys with 401. With no keys
// configured every request passes (local dev).
func RequireKey(keys []string) func(http.Handler) http.Handler {
	kr := newKeyring(keys)
	return func(next http.Handler) http.Handler {
		if len(kr) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !kr.contains(apiKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="upbot"`)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
