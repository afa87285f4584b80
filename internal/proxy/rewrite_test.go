package proxy

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func expiresIn(d time.Duration) string {
	return fixedNow.Add(d).Format(http.TimeFormat)
}

func TestRewriteSetCookie(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "domain is stripped",
			raw:  "accessToken=abc; Domain=api.carepulse.test; Path=/; HttpOnly; SameSite=Lax",
			want: "accessToken=abc; Path=/; HttpOnly; SameSite=Lax",
		},
		{
			name: "domain match is case-insensitive",
			raw:  "accessToken=abc; domain=.carepulse.test; Secure",
			want: "accessToken=abc; Secure",
		},
		{
			name: "future expires gains max-age",
			raw:  "refreshToken=r1; Path=/; Expires=" + expiresIn(time.Hour),
			want: "refreshToken=r1; Path=/; Expires=" + expiresIn(time.Hour) + "; Max-Age=3600",
		},
		{
			name: "past expires gets no max-age",
			raw:  "accessToken=; Path=/; Expires=" + expiresIn(-time.Hour),
			want: "accessToken=; Path=/; Expires=" + expiresIn(-time.Hour),
		},
		{
			name: "positive max-age is kept and not recomputed",
			raw:  "accessToken=abc; Max-Age=900; Expires=" + expiresIn(time.Hour),
			want: "accessToken=abc; Max-Age=900; Expires=" + expiresIn(time.Hour),
		},
		{
			name: "zero max-age with past expires keeps deleting",
			raw:  "accessToken=; Path=/; Max-Age=0; Expires=" + expiresIn(-time.Minute),
			want: "accessToken=; Path=/; Expires=" + expiresIn(-time.Minute) + "; Max-Age=0",
		},
		{
			name: "zero max-age with future expires is recomputed",
			raw:  "accessToken=abc; Max-Age=0; Expires=" + expiresIn(90*time.Second),
			want: "accessToken=abc; Expires=" + expiresIn(90*time.Second) + "; Max-Age=90",
		},
		{
			name: "non-numeric max-age is dropped",
			raw:  "accessToken=abc; Max-Age=soon; HttpOnly",
			want: "accessToken=abc; HttpOnly",
		},
		{
			name: "dashed expires format",
			raw:  "accessToken=abc; Expires=Sun, 01-Mar-2026 10:10:00 GMT",
			want: "accessToken=abc; Expires=Sun, 01-Mar-2026 10:10:00 GMT; Max-Age=600",
		},
		{
			name: "unparseable expires is preserved untouched",
			raw:  "accessToken=abc; Expires=tomorrow",
			want: "accessToken=abc; Expires=tomorrow",
		},
		{
			name: "bare cookie",
			raw:  "theme=dark",
			want: "theme=dark",
		},
		{
			name: "value containing equals and blank segments",
			raw:  " token=a=b ;; Path=/ ",
			want: "token=a=b; Path=/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RewriteSetCookie(tt.raw, fixedNow)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteSetCookie_MalformedIsSkipped(t *testing.T) {
	for _, raw := range []string{"", "garbage", "HttpOnly; Path=/"} {
		_, ok := RewriteSetCookie(raw, fixedNow)
		assert.False(t, ok, "cookie %q", raw)
	}
}

func TestRewriteSetCookie_MaxAgeWithinTolerance(t *testing.T) {
	expires := time.Now().Add(2 * time.Hour).UTC().Format(http.TimeFormat)

	got, ok := RewriteSetCookie("accessToken=abc; Expires="+expires, time.Now())
	require.True(t, ok)

	idx := strings.LastIndex(got, "Max-Age=")
	require.NotEqual(t, -1, idx)
	secs, err := strconv.Atoi(got[idx+len("Max-Age="):])
	require.NoError(t, err)

	// Expires has second precision, so allow the truncated second plus drift
	assert.InDelta(t, 7200, secs, 2)
}

func TestRelaySetCookies(t *testing.T) {
	h := http.Header{}
	relayed, skipped := RelaySetCookies(h, []string{
		"accessToken=a; Domain=x.test; Path=/",
		"nonsense",
		"refreshToken=r; Path=/",
	}, fixedNow)

	assert.Equal(t, 2, relayed)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []string{"accessToken=a; Path=/", "refreshToken=r; Path=/"}, h.Values("Set-Cookie"))
}
