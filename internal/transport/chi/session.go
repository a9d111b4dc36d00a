package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type sessionCtxKey struct{}

// sessionExemptPrefixes are routes that never need a session cookie.
// The configured static image mount joins them at wiring time.
var sessionExemptPrefixes = []string{"/health", "/metrics"}

// SessionMiddleware returns a middleware that mints an opaque session
// cookie when the request carries none, and threads the session id
// into the request context. The id is the key of the feedback store;
// there is no server-side session registry. extraExempt lists further
// path prefixes, such as the static image mount, that skip the cookie.
func SessionMiddleware(cookieName string, extraExempt ...string) func(http.Handler) http.Handler {
	exempt := append(append([]string{}, sessionExemptPrefixes...), extraExempt...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exempt {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			var sessionID string
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				sessionID = c.Value
			} else {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey{}, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext extracts the session id threaded by
// SessionMiddleware.
func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionCtxKey{}).(string)
	return id, ok
}
