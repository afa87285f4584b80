// Package session tracks who is signed in on a long-lived client and runs the
// login, registration and logout flows against the GraphQL API.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/carepulse-dev/carepulse/internal/auth"
	"github.com/carepulse-dev/carepulse/internal/credentials"
	"github.com/carepulse-dev/carepulse/internal/graphql"
	"github.com/carepulse-dev/carepulse/internal/models"
	"github.com/carepulse-dev/carepulse/internal/validation"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgRegistrationFailed = "Registration failed"
	msgNetworkError       = "Network error. Please check your connection and try again."
	msgUnexpectedError    = "An unexpected error occurred. Please try again."
	msgSaveFailed         = "Signed in, but the session could not be saved."
)

// Client is the GraphQL surface the session needs
type Client interface {
	Me(ctx context.Context) (*models.Identity, error)
	Login(ctx context.Context, input graphql.LoginInput) (*models.AuthPayload, *graphql.Response, error)
	Register(ctx context.Context, input graphql.RegisterInput) (*models.AuthPayload, *graphql.Response, error)
	Logout(ctx context.Context) (*graphql.Response, error)
	ClearStore()
}

// Navigator moves the user to another page after logout
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// AuthResult is the outcome of Login and Register. Failures are values, not errors.
type AuthResult struct {
	Success bool
	User    *models.Identity
	Errors  []models.FieldError
}

// Message returns the first error message, or "" on success
func (r AuthResult) Message() string {
	for _, e := range r.Errors {
		if e.Message != "" {
			return e.Message
		}
	}
	return ""
}

func failure(msg string) AuthResult {
	return AuthResult{Errors: []models.FieldError{{Message: msg}}}
}

// Options configures a Session
type Options struct {
	Client Client
	Store  credentials.Store
	// Jar holds the session cookies in cookie mode
	Jar       *credentials.Jar
	Mode      credentials.Mode
	Navigator Navigator
	Logger    zerolog.Logger
}

// Session is the client-side view of the signed-in user
type Session struct {
	client   Client
	store    credentials.Store
	jar      *credentials.Jar
	mode     credentials.Mode
	nav      Navigator
	log      zerolog.Logger
	validate *validator.Validate

	mu   sync.Mutex
	user *models.Identity
}

// New creates a session
func New(opts Options) *Session {
	nav := opts.Navigator
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	mode := opts.Mode
	if mode == "" {
		mode = credentials.ModeCookie
	}
	s := &Session{
		client:   opts.Client,
		store:    opts.Store,
		jar:      opts.Jar,
		mode:     mode,
		nav:      nav,
		log:      opts.Logger,
		validate: validation.New(),
	}
	if s.jar != nil && s.mode == credentials.ModeCookie && s.store != nil {
		s.jar.OnChange(s.saveCookies)
	}
	return s
}

// saveCookies writes rotated or deleted cookies through to the store, so a
// refresh seen on any request survives the process.
func (s *Session) saveCookies(cookies []credentials.StoredCookie) {
	if err := s.store.Save(&credentials.Credentials{Cookies: cookies, SavedAt: time.Now()}); err != nil {
		s.log.Warn().Err(err).Msg("Failed to save rotated cookies")
	}
}

// Resume loads persisted cookies into the jar. A missing credential is not an error.
func (s *Session) Resume() error {
	creds, err := s.store.Load()
	if errors.Is(err, credentials.ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.jar != nil {
		s.jar.Restore(creds.Cookies)
	}
	return nil
}

// CurrentUser asks the backend who is signed in. It always goes to the
// network. An auth failure means nobody is signed in and is not an error.
func (s *Session) CurrentUser(ctx context.Context) (*models.Identity, error) {
	me, err := s.client.Me(ctx)
	if err != nil && !graphql.IsAuthFailure(err) {
		return nil, err
	}

	s.mu.Lock()
	s.user = me
	s.mu.Unlock()
	return me, nil
}

// User returns the identity seen by the last CurrentUser call
func (s *Session) User() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsAuthenticated reports whether the backend recognises the session
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	me, err := s.CurrentUser(ctx)
	return err == nil && me != nil
}

// Login signs in with email and password
func (s *Session) Login(ctx context.Context, input graphql.LoginInput) AuthResult {
	if err := s.validate.Struct(input); err != nil {
		return AuthResult{Errors: validation.FieldErrors(err)}
	}
	payload, _, err := s.client.Login(ctx, input)
	return s.complete(ctx, payload, err, msgInvalidCredentials)
}

// Register creates an account and signs in
func (s *Session) Register(ctx context.Context, input graphql.RegisterInput) AuthResult {
	if err := s.validate.Struct(input); err != nil {
		return AuthResult{Errors: validation.FieldErrors(err)}
	}
	payload, _, err := s.client.Register(ctx, input)
	return s.complete(ctx, payload, err, msgRegistrationFailed)
}

func (s *Session) complete(ctx context.Context, payload *models.AuthPayload, err error, fallback string) AuthResult {
	if err != nil {
		return s.errorResult(err)
	}
	if payload == nil || !payload.Success {
		if payload != nil && len(payload.Errors) > 0 {
			return AuthResult{Errors: payload.Errors}
		}
		return failure(fallback)
	}

	// Persist before asking who we are, so the identity query carries the new credential
	if err := s.persist(payload); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist credentials")
		return failure(msgSaveFailed)
	}

	user, err := s.CurrentUser(ctx)
	if err != nil || user == nil {
		s.log.Warn().Err(err).Msg("Identity refresh after sign-in failed, using payload user")
		user = payload.User
		s.mu.Lock()
		s.user = user
		s.mu.Unlock()
	}

	return AuthResult{Success: true, User: user}
}

func (s *Session) persist(payload *models.AuthPayload) error {
	creds := &credentials.Credentials{SavedAt: time.Now()}
	switch s.mode {
	case credentials.ModeBearer:
		creds.Token = payload.Token
	default:
		if s.jar != nil {
			creds.Cookies = s.jar.Snapshot()
		}
	}
	if creds.Empty() {
		return errors.New("backend returned no credential")
	}
	return s.store.Save(creds)
}

func (s *Session) errorResult(err error) AuthResult {
	var re *graphql.ResponseError
	switch {
	case graphql.IsTransportError(err):
		s.log.Warn().Err(err).Msg("Network error during sign-in")
		return failure(msgNetworkError)
	case errors.As(err, &re) && re.Message() != "":
		return failure(re.Message())
	default:
		s.log.Error().Err(err).Msg("Unexpected sign-in error")
		return failure(msgUnexpectedError)
	}
}

// Logout ends the session. The backend call is best effort; local state is
// always cleared and the user is sent home. Calling it twice is harmless.
func (s *Session) Logout(ctx context.Context) {
	if _, err := s.client.Logout(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Backend logout failed, clearing local session anyway")
	}

	if err := s.store.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear stored credentials")
	}
	if s.jar != nil {
		s.jar.Clear()
	}
	s.client.ClearStore()

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	s.nav.Navigate("/")
}

// Token returns the raw access token: the stored bearer token, or the
// accessToken cookie in cookie mode.
func (s *Session) Token() string {
	if s.mode == credentials.ModeBearer {
		creds, err := s.store.Load()
		if err != nil {
			return ""
		}
		return creds.Token
	}
	if s.jar == nil {
		return ""
	}
	for _, c := range s.jar.Snapshot() {
		if c.Name == credentials.AccessTokenCookie {
			return c.Value
		}
	}
	return ""
}

// TokenExpiry returns when the access token expires, for display only
func (s *Session) TokenExpiry() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	exp, err := auth.ExpiresAt(token)
	if err != nil {
		return time.Time{}, false
	}
	return exp, true
}
