package server

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"veil/veil-verifier/logging"
)

// Paths served without a key. Health probes carry no credentials.
var unguardedPaths = map[string]bool{
	"/health": true,
}

func GetAPIKeyFromEnv() string {
	return os.Getenv("VERIFIER_API_KEY")
}

// conditionalAuthMiddleware enforces the configured API key on every
// route except the unguarded ones. With an empty key the handler chain
// is returned untouched.
func conditionalAuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unguardedPaths[r.URL.Path] || presentedKeyMatches(r, apiKey) {
				next.ServeHTTP(w, r)
				return
			}

			logging.Logger().Warn().
				Str("remote_addr", r.RemoteAddr).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Rejected request with missing or invalid API key")

			authError := &Error{
				StatusCode: http.StatusUnauthorized,
				Code:       "unauthorized",
				Message:    "Invalid or missing API key. Send it as 'Authorization: Bearer <key>' or in the X-API-Key header.",
			}
			authError.send(w)
		})
	}
}

func presentedKeyMatches(r *http.Request, want string) bool {
	got := r.Header.Get("X-API-Key")
	if got == "" {
		if bearer := r.Header.Get("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
			got = strings.TrimPrefix(bearer, "Bearer ")
		}
	}
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
