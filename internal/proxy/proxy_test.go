package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepulse-dev/carepulse/internal/graphql"
)

const genericFailure = `{"errors":[{"message":"Internal server error","extensions":{"code":"INTERNAL_SERVER_ERROR"}}]}`

func newTestRouter(t *testing.T, upstreamURL string) (*gin.Engine, *Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := NewMetrics(prometheus.NewRegistry())
	h := New(upstreamURL, graphql.NewHTTPClient(nil, 5*time.Second), zerolog.Nop(), metrics)
	h.now = func() time.Time { return fixedNow }

	r := gin.New()
	r.POST("/api/graphql", h.Forward)
	r.OPTIONS("/api/graphql", h.Preflight)
	return r, metrics
}

func post(r http.Handler, body, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestForward_RelaysBodyAndStatusVerbatim(t *testing.T) {
	const upstreamBody = `{"data":{"me":{"id":"u1"}}}`
	var gotBody, gotCookie atomic.Value

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody.Store(string(b))
		gotCookie.Store(r.Header.Get("Cookie"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(upstreamBody))
	}))
	defer upstream.Close()

	r, metrics := newTestRouter(t, upstream.URL)
	rec := post(r, `{"query":"{ me { id } }"}`, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, upstreamBody, rec.Body.String())
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
	assert.Equal(t, `{"query":"{ me { id } }"}`, gotBody.Load())
	assert.Equal(t, "", gotCookie.Load(), "no Cookie header without browser cookies")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("relayed")))
}

func TestForward_PreservesUpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"Syntax Error"}]}`))
	}))
	defer upstream.Close()

	r, _ := newTestRouter(t, upstream.URL)
	rec := post(r, `{"query":"{"}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"errors":[{"message":"Syntax Error"}]}`, rec.Body.String())
}

func TestForward_ForwardsCookiesAndRewritesSetCookie(t *testing.T) {
	var gotCookie atomic.Value
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie.Store(r.Header.Get("Cookie"))
		w.Header().Add("Set-Cookie", "accessToken=new; Domain=api.carepulse.test; Path=/; HttpOnly")
		w.Header().Add("Set-Cookie", "refreshToken=r2; Path=/; Expires="+expiresIn(time.Hour))
		w.Header().Add("Set-Cookie", "broken")
		w.Write([]byte(`{"data":{"login":{"success":true}}}`))
	}))
	defer upstream.Close()

	r, metrics := newTestRouter(t, upstream.URL)
	rec := post(r, `{"query":"mutation { login }"}`, "accessToken=old; refreshToken=r1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accessToken=old; refreshToken=r1", gotCookie.Load())
	assert.Equal(t, []string{
		"accessToken=new; Path=/; HttpOnly",
		"refreshToken=r2; Path=/; Expires=" + expiresIn(time.Hour) + "; Max-Age=3600",
	}, rec.Header().Values("Set-Cookie"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cookies.WithLabelValues("skipped")))
}

func TestForward_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		upstream http.HandlerFunc
	}{
		{
			name: "invalid request json",
			body: `{not json`,
			upstream: func(w http.ResponseWriter, r *http.Request) {
				t.Error("upstream must not be called")
			},
		},
		{
			name: "invalid upstream json",
			body: `{"query":"{ me { id } }"}`,
			upstream: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>bad gateway</html>`))
			},
		},
		{
			name: "upstream redirect",
			body: `{"query":"{ me { id } }"}`,
			upstream: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Set-Cookie", "accessToken=x; Path=/")
				http.Redirect(w, r, "/login", http.StatusFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(tt.upstream)
			defer upstream.Close()

			r, metrics := newTestRouter(t, upstream.URL)
			rec := post(r, tt.body, "")

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, genericFailure, rec.Body.String())
			assert.Empty(t, rec.Header().Values("Set-Cookie"))
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("failed")))
		})
	}
}

func TestForward_NetworkFailure(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	r, _ := newTestRouter(t, url)
	rec := post(r, `{"query":"{ me { id } }"}`, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, genericFailure, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	r, _ := newTestRouter(t, "http://127.0.0.1:1/never")

	req := httptest.NewRequest(http.MethodOptions, "/api/graphql", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Cookie", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observeRequest("relayed")
	m.observeCookies(1, 1)
	m.observeUpstream(time.Second)
}
