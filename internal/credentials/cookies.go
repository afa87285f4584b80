// Package credentials defines how the session credential travels between the
// browser, the front-end server and the GraphQL backend.
//
// The backend issues an HTTP-only cookie pair (accessToken, refreshToken) and
// rotates it on its own schedule. The front end never mints or decodes those
// cookies on the server; it only checks for their presence, forwards them
// verbatim, and expires them on logout.
package credentials

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	// DefaultMaxAge is the lifetime used when the front end sets a session cookie itself
	DefaultMaxAge = 7 * 24 * time.Hour
)

// SessionCookieNames lists the cookies that constitute a session
var SessionCookieNames = []string{AccessTokenCookie, RefreshTokenCookie}

// HasSession reports whether any session cookie is present with a non-empty value.
// It is a presence check only; the value is never inspected.
func HasSession(r *http.Request) bool {
	for _, name := range SessionCookieNames {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return true
		}
	}
	return false
}

// CookieHeader rebuilds a Cookie header from the individual cookies of r.
// Cookies with empty values are dropped. The result is empty when r carries no cookies.
func CookieHeader(r *http.Request) string {
	cookies := r.Cookies()
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" || c.Value == "" {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// IsSecureRequest reports whether r arrived over TLS, directly or via a proxy
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// NewSessionCookie builds a session cookie with the standard attribute set
func NewSessionCookie(name, value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(DefaultMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpireSession writes deletion cookies for every session cookie name
func ExpireSession(w http.ResponseWriter, secure bool) {
	for _, name := range SessionCookieNames {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
