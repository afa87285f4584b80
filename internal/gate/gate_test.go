package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(policy Policy) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(policy, zerolog.Nop()))
	ok := func(c *gin.Context) { c.String(http.StatusOK, "reached") }
	r.GET("/", ok)
	r.GET("/admin", ok)
	r.GET("/admin/appointments", ok)
	r.GET("/administrator", ok)
	return r
}

func do(r http.Handler, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{
		"":                     Permissive,
		"permissive":           Permissive,
		"REDIRECT":             Redirect,
		" redirect-with-login": RedirectWithLogin,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePolicy("strict")
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("/admin"))
	assert.True(t, Matches("/admin/appointments/1/cancel"))
	assert.False(t, Matches("/administrator"))
	assert.False(t, Matches("/"))
	assert.False(t, Matches("/api/graphql"))
}

func TestMiddleware_NoCookie(t *testing.T) {
	tests := []struct {
		policy   Policy
		status   int
		location string
	}{
		{Permissive, http.StatusOK, ""},
		{Redirect, http.StatusSeeOther, "/"},
		{RedirectWithLogin, http.StatusSeeOther, "/?admin=true"},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			for _, path := range []string{"/admin", "/admin/appointments"} {
				rec := do(newRouter(tt.policy), path, "")
				assert.Equal(t, tt.status, rec.Code, path)
				assert.Equal(t, tt.location, rec.Header().Get("Location"), path)
			}
		})
	}
}

func TestMiddleware_CookiePresentAlwaysPasses(t *testing.T) {
	for _, policy := range []Policy{Permissive, Redirect, RedirectWithLogin} {
		for _, cookie := range []string{"accessToken=garbage", "refreshToken=r1"} {
			rec := do(newRouter(policy), "/admin", cookie)
			assert.Equal(t, http.StatusOK, rec.Code, "%s with %s", policy, cookie)
			assert.Equal(t, "reached", rec.Body.String())
		}
	}
}

func TestMiddleware_IgnoresOtherPaths(t *testing.T) {
	r := newRouter(RedirectWithLogin)
	assert.Equal(t, http.StatusOK, do(r, "/", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/administrator", "").Code)
}
