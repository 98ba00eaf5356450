package server

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName carries the opaque session identifier.
	SessionCookieName = "spindle_session"

	// stateCookieName carries the OAuth state parameter between login and callback.
	stateCookieName = "oauth_state"

	stateCookieMaxAge = 10 * time.Minute
)

// CookieConfig controls the attributes shared by all issued cookies.
type CookieConfig struct {
	// Secure should be true behind TLS. Development setups keep it false.
	Secure bool
}

// sessionCookie issues the session-bound cookie with the canonical attributes.
// Reissues after a freshness extension use the same attributes as the original.
func (c CookieConfig) sessionCookie(sessionID string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// blankSessionCookie clears the session cookie.
func (c CookieConfig) blankSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// stateCookie stores the OAuth state for callback verification.
func (c CookieConfig) stateCookie(state string) *http.Cookie {
	return &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
