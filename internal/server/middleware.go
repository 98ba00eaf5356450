package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ahumphreys/spindle/internal/auth"
	"github.com/ahumphreys/spindle/internal/models"
	"github.com/ahumphreys/spindle/internal/shared"
	"github.com/charmbracelet/log"
)

type contextKey int

const (
	sessionKey contextKey = iota
	userKey
)

// SessionFromContext returns the validated session injected by [SessionMiddleware].
func SessionFromContext(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey).(*models.Session)
	return session
}

// UserFromContext returns the authenticated user injected by [SessionMiddleware].
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// isPublicPath reports whether a request may proceed without a session.
func isPublicPath(path string) bool {
	return path == "/login" || strings.HasPrefix(path, "/auth/")
}

// SessionMiddleware authenticates every request against the session store.
//
// Flow per request: extract the session cookie; on the public paths pass through
// without a session. Otherwise validate; an absent or expired session clears the
// cookie and redirects to /login (401 for /api/ paths). A fresh session gets its
// cookie reissued with the original attributes. When the access token is inside
// the refresh window the refresh runs synchronously; a failed refresh is logged
// and the request proceeds with the stale token. Authenticated users are bounced
// away from /login.
func SessionMiddleware(manager *auth.Manager, cookies CookieConfig, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				if isPublicPath(r.URL.Path) {
					next.ServeHTTP(w, r)
					return
				}
				rejectUnauthenticated(w, r)
				return
			}

			session, user, err := manager.Validate(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, shared.ErrNotAuthenticated) {
					http.SetCookie(w, cookies.blankSessionCookie())
					if isPublicPath(r.URL.Path) {
						next.ServeHTTP(w, r)
						return
					}
					rejectUnauthenticated(w, r)
					return
				}
				logger.Error("session validation failed", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			if session.Fresh {
				http.SetCookie(w, cookies.sessionCookie(session.ID, session.ExpiresAt))
			}

			if err := manager.RefreshIfNeeded(r.Context(), session); err != nil {
				// Non-fatal: the stale token is used and the downstream Spotify
				// call surfaces the upstream error.
				logger.Warn("token refresh failed", "session_id", session.ID, "error", err)
			}

			// Connected users have no business on the login page.
			if strings.HasPrefix(r.URL.Path, "/login") {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			ctx = context.WithValue(ctx, userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rejectUnauthenticated redirects browsers to the login page; API consumers get 401.
func rejectUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Logging emits one line per request.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}
