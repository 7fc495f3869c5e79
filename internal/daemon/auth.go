package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireToken gates a handler behind bearer-token auth. An empty token
// leaves the handler open: the default bind is loopback-only, so auth is
// opt-in for deployments that expose the API on a network interface.
func requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
