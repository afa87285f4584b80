package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carepulse-dev/carepulse/internal/credentials"
	"github.com/carepulse-dev/carepulse/internal/graphql"
	"github.com/carepulse-dev/carepulse/internal/proxy"
)

const (
	msgAccessDenied     = "Access denied. Admin privileges required."
	msgInvalidLogin     = "Invalid email or password. Please try again."
	msgLoginUnavailable = "An unexpected error occurred. Please check your connection and try again."
	msgLoginIncomplete  = "Please enter a valid email and password."
)

// LoginForm is the admin login form
type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

// homeView is rendered by home.html
type homeView struct {
	ShowAdminLogin bool
	Email          string
	Error          string
}

// home renders the landing page. A signed-in admin goes straight to the dashboard.
func (s *Server) home(c *gin.Context) {
	if credentials.HasSession(c.Request) {
		auth := s.guard.Authorize(c.Request.Context(), credentials.CookieHeader(c.Request))
		if !auth.Denied() {
			c.Redirect(http.StatusSeeOther, "/admin")
			return
		}
	}

	c.HTML(http.StatusOK, "home.html", homeView{
		ShowAdminLogin: c.Query("admin") == "true",
	})
}

// login runs the login mutation on the browser's behalf. The login prompt
// stays open with the entered email on any failure.
func (s *Server) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderLoginError(c, http.StatusBadRequest, form.Email, msgLoginIncomplete)
		return
	}

	client := s.upstreamClient(credentials.CookieHeader(c.Request))
	payload, resp, err := client.Login(c.Request.Context(), graphql.LoginInput{
		Email:    form.Email,
		Password: form.Password,
	})

	// Relay whatever cookies the backend issued, success or not
	if resp != nil {
		proxy.RelaySetCookies(c.Writer.Header(), resp.SetCookies, time.Now())
	}

	if err != nil {
		var re *graphql.ResponseError
		if errors.As(err, &re) && re.Message() != "" {
			s.renderLoginError(c, http.StatusUnauthorized, form.Email, re.Message())
			return
		}
		s.logger.Error().Err(err).Msg("Login request failed")
		s.renderLoginError(c, http.StatusBadGateway, form.Email, msgLoginUnavailable)
		return
	}

	if payload == nil || !payload.Success || payload.User == nil {
		s.renderLoginError(c, http.StatusUnauthorized, form.Email, payload.FirstError(msgInvalidLogin))
		return
	}

	if !payload.User.IsAdmin() {
		s.logger.Info().Str("user_id", payload.User.ID).Msg("Non-admin attempted admin login")
		s.renderLoginError(c, http.StatusForbidden, form.Email, msgAccessDenied)
		return
	}

	s.logger.Info().Str("user_id", payload.User.ID).Msg("Admin signed in")
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (s *Server) renderLoginError(c *gin.Context, status int, email, message string) {
	c.HTML(status, "home.html", homeView{
		ShowAdminLogin: true,
		Email:          email,
		Error:          message,
	})
}

// logout ends the session upstream (best effort) and always clears it locally
func (s *Server) logout(c *gin.Context) {
	cookieHeader := credentials.CookieHeader(c.Request)
	if cookieHeader != "" {
		client := s.upstreamClient(cookieHeader)
		resp, err := client.Logout(c.Request.Context())
		if err != nil {
			s.logger.Warn().Err(err).Msg("Backend logout failed, clearing cookies anyway")
		}
		if resp != nil {
			proxy.RelaySetCookies(c.Writer.Header(), resp.SetCookies, time.Now())
		}
	}

	credentials.ExpireSession(c.Writer, s.secureCookies(c))
	c.Redirect(http.StatusSeeOther, "/")
}

// @Router /api/session [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) getSession(c *gin.Context) {
	cookieHeader := credentials.CookieHeader(c.Request)
	if cookieHeader == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	me, err := s.upstreamClient(cookieHeader).Me(c.Request.Context())
	if err != nil && !graphql.IsAuthFailure(err) {
		respondWithError(c, s.logger, http.StatusBadGateway, err, "Unable to reach the API")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": me != nil,
		"user":          me,
	})
}

func (s *Server) secureCookies(c *gin.Context) bool {
	return s.config.Production() || credentials.IsSecureRequest(c.Request)
}
