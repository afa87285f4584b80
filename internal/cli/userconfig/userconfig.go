package userconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/carepulse-dev/carepulse/internal/credentials"
)

const (
	configDirName  = "carepulse"
	configFileName = "config.yaml"

	// DefaultServerURL is used until a server is configured
	DefaultServerURL = "http://localhost:3000"

	// serverEnv overrides the configured server for a single invocation
	serverEnv = "CAREPULSE_SERVER"
)

// ErrInvalidServerURL is returned for anything that is not an absolute http(s) URL
var ErrInvalidServerURL = errors.New("server URL must be an absolute http or https URL")

// UserConfig represents the user's local configuration stored in ~/.config/carepulse/config.yaml
type UserConfig struct {
	ServerURL    string   `yaml:"server_url,omitempty"`
	AuthMode     string   `yaml:"auth_mode,omitempty"`
	KnownServers []string `yaml:"known_servers,omitempty"`
}

// Server returns the effective server URL
func (c *UserConfig) Server() string {
	if v := strings.TrimSpace(os.Getenv(serverEnv)); v != "" {
		return strings.TrimRight(v, "/")
	}
	if c.ServerURL != "" {
		return c.ServerURL
	}
	return DefaultServerURL
}

// Mode returns the configured credential mode
func (c *UserConfig) Mode() (credentials.Mode, error) {
	return credentials.ParseMode(c.AuthMode)
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", configDirName)
	return filepath.Join(configDir, configFileName), nil
}

// Load reads the user configuration file
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// NormalizeServerURL validates a server URL and strips any trailing slash
func NormalizeServerURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidServerURL, raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// SetServer selects a server (and optionally a credential mode) and
// remembers it for later selection.
func SetServer(serverURL, authMode string) (*UserConfig, error) {
	normalized, err := NormalizeServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	if authMode != "" {
		if _, err := credentials.ParseMode(authMode); err != nil {
			return nil, err
		}
	}

	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	cfg.ServerURL = normalized
	if authMode != "" {
		cfg.AuthMode = authMode
	}
	if !slices.Contains(cfg.KnownServers, normalized) {
		cfg.KnownServers = append(cfg.KnownServers, normalized)
	}
	return cfg, Save(cfg)
}
