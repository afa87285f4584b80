package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidValue is returned when an environment variable cannot be parsed
var ErrInvalidValue = errors.New("invalid configuration value")

// Config holds all configuration for the application
type Config struct {
	// Environment name; "production" forces Secure cookies
	Env string

	// HTTP Configuration
	HTTP HTTPConfig

	// Upstream GraphQL API
	Upstream UpstreamConfig

	// Admin gate / guard
	Admin AdminConfig

	// Logging Configuration
	Logging LoggingConfig

	// Telemetry Configuration
	Telemetry TelemetryConfig
}

// HTTPConfig holds listener configuration
type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins []string
}

// UpstreamConfig describes the GraphQL backend
type UpstreamConfig struct {
	URL            string
	RequestTimeout time.Duration // identity and dashboard queries
	ProxyTimeout   time.Duration // proxied browser requests
	ProbeSchedule  string        // cron spec for the readiness probe
}

// AdminConfig holds the edge gate policy and where denied visitors go
type AdminConfig struct {
	GatePolicy       string // permissive, redirect, redirect-with-login
	DeniedRedirectTo string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// TelemetryConfig holds OTLP exporter settings. Tracing is off when Endpoint is empty.
type TelemetryConfig struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// Production reports whether the deployment runs in production mode
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	requestTimeout, err := durationEnv("REQUEST_TIMEOUT", 8*time.Second)
	if err != nil {
		return nil, err
	}

	proxyTimeout, err := durationEnv("PROXY_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		Env: stringEnv("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Addr:               stringEnv("LISTEN_ADDR", ":3000"),
			CORSAllowedOrigins: listEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Upstream: UpstreamConfig{
			URL:            stringEnv("CAREPULSE_API_URL", "http://localhost:4000/graphql"),
			RequestTimeout: requestTimeout,
			ProxyTimeout:   proxyTimeout,
			ProbeSchedule:  stringEnv("UPSTREAM_PROBE_SCHEDULE", "@every 30s"),
		},
		Admin: AdminConfig{
			GatePolicy:       stringEnv("ADMIN_GATE_POLICY", "permissive"),
			DeniedRedirectTo: stringEnv("ADMIN_DENIED_REDIRECT", "/?admin=true"),
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
		Telemetry: TelemetryConfig{
			ServiceName: stringEnv("OTEL_SERVICE_NAME", "carepulse-web"),
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:    os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, raw)
	}
	return d, nil
}

func listEnv(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
