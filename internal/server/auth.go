package server

import (
	"fmt"
	"net/http"

	"github.com/ahumphreys/spindle/internal/auth"
	"github.com/ahumphreys/spindle/internal/repositories"
	"github.com/ahumphreys/spindle/internal/services"
	"github.com/ahumphreys/spindle/internal/shared"
	"github.com/charmbracelet/log"
)

// stateTokenBytes of entropy for the OAuth state parameter.
const stateTokenBytes = 16

// AuthHandler implements the OAuth login, callback, and logout endpoints.
type AuthHandler struct {
	oauth   auth.Authenticator
	manager *auth.Manager
	users   *repositories.UserRepository
	library services.Library
	cookies CookieConfig
	logger  *log.Logger
}

// NewAuthHandler creates the handler for the authentication flow.
func NewAuthHandler(oauth auth.Authenticator, manager *auth.Manager, users *repositories.UserRepository, library services.Library, cookies CookieConfig, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		oauth:   oauth,
		manager: manager,
		users:   users,
		library: library,
		cookies: cookies,
		logger:  logger,
	}
}

// Routes returns the method-qualified patterns this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{
		"GET /login",
		"GET /auth/login",
		"GET /auth/callback",
		"POST /logout",
	}
}

// ServeHTTP dispatches to the flow step matching the request path.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		h.loginPage(w, r)
	case "/auth/login":
		h.login(w, r)
	case "/auth/callback":
		h.callback(w, r)
	case "/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AuthHandler) loginPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>spindle</title></head>
<body><a href="/auth/login">Log in with Spotify</a></body>
</html>
`)
}

// login starts the authorization-code flow: random state, short-lived state
// cookie, redirect to the Spotify consent page.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateToken(stateTokenBytes)
	http.SetCookie(w, h.cookies.stateCookie(state))
	http.Redirect(w, r, h.oauth.AuthorizationURL(state), http.StatusFound)
}

// callback completes the flow: state verification, code exchange, profile fetch,
// find-or-create user, session issuance.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		http.Error(w, errParam, http.StatusBadRequest)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || query.Get("state") == "" || query.Get("state") != stateCookie.Value {
		http.Error(w, shared.ErrStateMismatch.Error(), http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "auth code missing", http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("code exchange failed", "error", err)
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}

	profile, err := h.library.CurrentUser(r.Context(), token.AccessToken)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.GetBySpotifyID(r.Context(), profile.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if user == nil {
		if user, err = h.users.Create(r.Context(), profile.DisplayName, profile.ID); err != nil {
			writeError(w, h.logger, err)
			return
		}
	} else if user.Username != profile.DisplayName {
		// Display names drift on the Spotify side; keep ours current.
		if err := h.users.UpdateUsername(r.Context(), user.ID, profile.DisplayName); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	session, err := h.manager.CreateSession(r.Context(), user.ID, token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, h.cookies.sessionCookie(session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/", http.StatusFound)
}

// logout invalidates the session, clears the cookie, and opportunistically sweeps
// expired sessions.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := h.manager.Invalidate(r.Context(), session.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, h.cookies.blankSessionCookie())

	if err := h.manager.DeleteExpired(r.Context()); err != nil {
		h.logger.Warn("expired session sweep failed", "error", err)
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}
