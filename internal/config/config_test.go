package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "LISTEN_ADDR", "CAREPULSE_API_URL", "REQUEST_TIMEOUT", "PROXY_TIMEOUT",
		"ADMIN_GATE_POLICY", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.Production())
	assert.Equal(t, ":3000", cfg.HTTP.Addr)
	assert.Equal(t, "http://localhost:4000/graphql", cfg.Upstream.URL)
	assert.Equal(t, 8*time.Second, cfg.Upstream.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.Upstream.ProxyTimeout)
	assert.Equal(t, "permissive", cfg.Admin.GatePolicy)
	assert.Equal(t, "/?admin=true", cfg.Admin.DeniedRedirectTo)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Empty(t, cfg.Telemetry.Endpoint)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("CAREPULSE_API_URL", "https://api.carepulse.test/graphql")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("ADMIN_GATE_POLICY", "redirect-with-login")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, "https://api.carepulse.test/graphql", cfg.Upstream.URL)
	assert.Equal(t, 3*time.Second, cfg.Upstream.RequestTimeout)
	assert.Equal(t, "redirect-with-login", cfg.Admin.GatePolicy)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.HTTP.CORSAllowedOrigins)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load()
	require.ErrorIs(t, err, ErrInvalidValue)
}
