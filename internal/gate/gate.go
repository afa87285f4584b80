// Package gate is the edge check in front of the admin area. It looks only
// at whether session cookies are present; the admin guard makes the real
// authorization decision on every request.
package gate

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/carepulse-dev/carepulse/internal/credentials"
)

// Policy decides what happens to an /admin request without session cookies
type Policy string

const (
	// Permissive lets every request through to the guard
	Permissive Policy = "permissive"
	// Redirect sends cookieless requests to the home page
	Redirect Policy = "redirect"
	// RedirectWithLogin sends cookieless requests to the home page with the admin login prompt open
	RedirectWithLogin Policy = "redirect-with-login"

	// SessionPresentKey is set on the gin context for downstream logging
	SessionPresentKey = "session_present"

	adminPrefix = "/admin"
)

// ErrInvalidPolicy is returned by ParsePolicy for unknown values
var ErrInvalidPolicy = errors.New("invalid admin gate policy")

// ParsePolicy validates a configured policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Permissive, Redirect, RedirectWithLogin:
		return p, nil
	case "":
		return Permissive, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// Target returns where a cookieless request is sent, or "" to continue
func (p Policy) Target() string {
	switch p {
	case Redirect:
		return "/"
	case RedirectWithLogin:
		return "/?admin=true"
	}
	return ""
}

// Matches reports whether path is under the admin area
func Matches(path string) bool {
	return path == adminPrefix || strings.HasPrefix(path, adminPrefix+"/")
}

// Middleware applies policy to /admin and /admin/* and ignores every other path
func Middleware(policy Policy, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Matches(c.Request.URL.Path) {
			c.Next()
			return
		}

		present := credentials.HasSession(c.Request)
		c.Set(SessionPresentKey, present)

		if !present {
			if target := policy.Target(); target != "" {
				log.Debug().
					Str("path", c.Request.URL.Path).
					Str("policy", string(policy)).
					Msg("No session cookie, redirecting")
				c.Redirect(http.StatusSeeOther, target)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
