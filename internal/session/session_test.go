package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepulse-dev/carepulse/internal/credentials"
	"github.com/carepulse-dev/carepulse/internal/graphql"
	"github.com/carepulse-dev/carepulse/internal/models"
)

var proxyURL, _ = url.Parse("http://localhost:3000/api/graphql")

// fakeClient plays the backend. On successful login it sets cookies in jar
// the way the HTTP client would after the proxy's Set-Cookie.
type fakeClient struct {
	jar *credentials.Jar

	me        *models.Identity
	meErr     error
	payload   *models.AuthPayload
	loginErr  error
	logoutErr error

	loginCalls   int
	logoutCalls  int
	clearCalls   int
	meSawStored  bool
	storeToCheck credentials.Store
}

func (f *fakeClient) Me(ctx context.Context) (*models.Identity, error) {
	if f.storeToCheck != nil {
		_, err := f.storeToCheck.Load()
		f.meSawStored = err == nil
	}
	return f.me, f.meErr
}

func (f *fakeClient) Login(ctx context.Context, in graphql.LoginInput) (*models.AuthPayload, *graphql.Response, error) {
	f.loginCalls++
	if f.loginErr == nil && f.payload != nil && f.payload.Success && f.jar != nil {
		f.jar.SetCookies(proxyURL, []*http.Cookie{
			{Name: credentials.AccessTokenCookie, Value: f.payload.Token, Path: "/"},
			{Name: credentials.RefreshTokenCookie, Value: "r1", Path: "/"},
		})
	}
	return f.payload, &graphql.Response{}, f.loginErr
}

func (f *fakeClient) Register(ctx context.Context, in graphql.RegisterInput) (*models.AuthPayload, *graphql.Response, error) {
	return f.Login(ctx, graphql.LoginInput{Email: in.Email, Password: in.Password})
}

func (f *fakeClient) Logout(ctx context.Context) (*graphql.Response, error) {
	f.logoutCalls++
	return nil, f.logoutErr
}

func (f *fakeClient) ClearStore() { f.clearCalls++ }

type recordingNav struct{ paths []string }

func (n *recordingNav) Navigate(path string) { n.paths = append(n.paths, path) }

func newTestSession(client *fakeClient, mode credentials.Mode) (*Session, *credentials.MemoryStore, *credentials.Jar, *recordingNav) {
	store := credentials.NewMemoryStore()
	jar := credentials.NewJar()
	nav := &recordingNav{}
	client.jar = jar
	s := New(Options{
		Client:    client,
		Store:     store,
		Jar:       jar,
		Mode:      mode,
		Navigator: nav,
		Logger:    zerolog.Nop(),
	})
	return s, store, jar, nav
}

var validLogin = graphql.LoginInput{Email: "ada@carepulse.test", Password: "correct horse"}

func TestLogin_ValidationErrors(t *testing.T) {
	client := &fakeClient{}
	s, _, _, _ := newTestSession(client, credentials.ModeCookie)

	res := s.Login(context.Background(), graphql.LoginInput{Email: "nope"})

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "email", res.Errors[0].Field)
	assert.Equal(t, "Invalid email address", res.Errors[0].Message)
	assert.Equal(t, "password is required", res.Errors[1].Message)
	assert.Zero(t, client.loginCalls)
}

func TestLogin_CookieModePersistsBeforeIdentityQuery(t *testing.T) {
	admin := &models.Identity{ID: "u1", Role: models.RoleAdmin}
	client := &fakeClient{
		payload: &models.AuthPayload{Success: true, Token: "a1", User: admin},
		me:      admin,
	}
	s, store, _, _ := newTestSession(client, credentials.ModeCookie)
	client.storeToCheck = store

	res := s.Login(context.Background(), validLogin)

	require.True(t, res.Success)
	assert.Equal(t, admin, res.User)
	assert.True(t, client.meSawStored, "credential stored before identity re-query")

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, creds.Cookies, 2)
	assert.Empty(t, creds.Token)
	assert.Equal(t, admin, s.User())
}

func TestLogin_BearerModeStoresToken(t *testing.T) {
	client := &fakeClient{
		payload: &models.AuthPayload{Success: true, Token: "tok-1", User: &models.Identity{ID: "u1"}},
		me:      &models.Identity{ID: "u1"},
	}
	s, store, _, _ := newTestSession(client, credentials.ModeBearer)

	res := s.Login(context.Background(), validLogin)
	require.True(t, res.Success)

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", creds.Token)
	assert.Equal(t, "tok-1", s.Token())
}

func TestLogin_IdentityRefreshFailureFallsBackToPayloadUser(t *testing.T) {
	user := &models.Identity{ID: "u1", Role: models.RoleUser}
	client := &fakeClient{
		payload: &models.AuthPayload{Success: true, Token: "a1", User: user},
		meErr:   &graphql.TransportError{Err: errors.New("reset")},
	}
	s, _, _, _ := newTestSession(client, credentials.ModeCookie)

	res := s.Login(context.Background(), validLogin)
	require.True(t, res.Success)
	assert.Equal(t, user, res.User)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		payload *models.AuthPayload
		err     error
		want    string
	}{
		{
			name:    "payload error message",
			payload: &models.AuthPayload{Errors: []models.FieldError{{Field: "password", Message: "Wrong password"}}},
			want:    "Wrong password",
		},
		{
			name:    "unsuccessful without errors",
			payload: &models.AuthPayload{Success: false},
			want:    "Invalid email or password",
		},
		{
			name: "null payload",
			want: "Invalid email or password",
		},
		{
			name: "graphql error",
			err:  &graphql.ResponseError{Errors: []graphql.Error{{Message: "Account locked"}}},
			want: "Account locked",
		},
		{
			name: "network error",
			err:  &graphql.TransportError{Err: errors.New("dial tcp: connection refused")},
			want: "Network error. Please check your connection and try again.",
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			want: "An unexpected error occurred. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{payload: tt.payload, loginErr: tt.err}
			s, store, _, _ := newTestSession(client, credentials.ModeCookie)

			res := s.Login(context.Background(), validLogin)

			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Message())
			_, err := store.Load()
			assert.ErrorIs(t, err, credentials.ErrNoCredentials)
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	client := &fakeClient{}
	s, _, _, _ := newTestSession(client, credentials.ModeCookie)

	res := s.Register(context.Background(), graphql.RegisterInput{
		Name: "A", Email: "ada@carepulse.test", Phone: "555", Password: "short",
	})

	assert.False(t, res.Success)
	fields := map[string]string{}
	for _, e := range res.Errors {
		fields[e.Field] = e.Message
	}
	assert.Contains(t, fields, "name")
	assert.Equal(t, "Invalid phone number", fields["phone"])
	assert.Equal(t, "password must be at least 8 characters", fields["password"])
	assert.Zero(t, client.loginCalls)
}

func TestLogout_IsIdempotent(t *testing.T) {
	client := &fakeClient{
		payload: &models.AuthPayload{Success: true, Token: "a1", User: &models.Identity{ID: "u1"}},
		me:      &models.Identity{ID: "u1"},
	}
	s, store, jar, nav := newTestSession(client, credentials.ModeCookie)
	require.True(t, s.Login(context.Background(), validLogin).Success)

	s.Logout(context.Background())
	client.logoutErr = &graphql.TransportError{Err: errors.New("already gone")}
	s.Logout(context.Background())

	assert.Equal(t, 2, client.logoutCalls)
	assert.Equal(t, 2, client.clearCalls)
	assert.Equal(t, []string{"/", "/"}, nav.paths)
	assert.Nil(t, s.User())
	assert.False(t, jar.HasSession())
	_, err := store.Load()
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)
}

func TestCurrentUser_AuthFailureMeansAnonymous(t *testing.T) {
	client := &fakeClient{meErr: &graphql.ResponseError{Errors: []graphql.Error{
		{Message: "Not authenticated", Extensions: map[string]any{"code": "UNAUTHENTICATED"}},
	}}}
	s, _, _, _ := newTestSession(client, credentials.ModeCookie)

	me, err := s.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, me)
	assert.False(t, s.IsAuthenticated(context.Background()))

	client.meErr = &graphql.TransportError{Err: errors.New("offline")}
	_, err = s.CurrentUser(context.Background())
	require.Error(t, err)
}

func TestResumeAndTokenExpiry(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	client := &fakeClient{}
	s, store, jar, _ := newTestSession(client, credentials.ModeCookie)
	require.NoError(t, store.Save(&credentials.Credentials{Cookies: []credentials.StoredCookie{
		{Name: credentials.AccessTokenCookie, Value: token, Path: "/"},
	}}))

	require.NoError(t, s.Resume())
	assert.True(t, jar.HasSession())

	got, ok := s.TokenExpiry()
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
}

func TestResume_NothingStored(t *testing.T) {
	s, _, jar, _ := newTestSession(&fakeClient{}, credentials.ModeCookie)
	require.NoError(t, s.Resume())
	assert.False(t, jar.HasSession())

	_, ok := s.TokenExpiry()
	assert.False(t, ok)
}

func TestCookieRotationIsSaved(t *testing.T) {
	s, store, jar, _ := newTestSession(&fakeClient{}, credentials.ModeCookie)
	require.NoError(t, store.Save(&credentials.Credentials{Cookies: []credentials.StoredCookie{
		{Name: credentials.AccessTokenCookie, Value: "old", Path: "/"},
		{Name: credentials.RefreshTokenCookie, Value: "r1", Path: "/"},
	}}))
	require.NoError(t, s.Resume())

	// a refresh on an ordinary query rotates the access token
	jar.SetCookies(proxyURL, []*http.Cookie{{Name: credentials.AccessTokenCookie, Value: "rotated", Path: "/"}})

	creds, err := store.Load()
	require.NoError(t, err)
	values := map[string]string{}
	for _, c := range creds.Cookies {
		values[c.Name] = c.Value
	}
	assert.Equal(t, "rotated", values[credentials.AccessTokenCookie])
	assert.Equal(t, "r1", values[credentials.RefreshTokenCookie])

	jar.SetCookies(proxyURL, []*http.Cookie{
		{Name: credentials.AccessTokenCookie, MaxAge: -1},
		{Name: credentials.RefreshTokenCookie, MaxAge: -1},
	})
	_, err = store.Load()
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)
}

func TestCookieRotation_BearerModeDoesNotTouchStore(t *testing.T) {
	s, store, jar, _ := newTestSession(&fakeClient{}, credentials.ModeBearer)
	require.NoError(t, store.Save(&credentials.Credentials{Token: "t1"}))
	require.NoError(t, s.Resume())

	jar.SetCookies(proxyURL, []*http.Cookie{{Name: credentials.AccessTokenCookie, Value: "x", Path: "/"}})

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "t1", creds.Token)
	assert.Empty(t, creds.Cookies)
}
