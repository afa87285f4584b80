package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/carepulse-dev/carepulse/internal/credentials"
)

const (
	service = "carepulse-cli"
)

// KeyringStore persists session credentials in the OS keychain/credential
// manager, one entry per front-end server.
type KeyringStore struct {
	serverURL string
}

// NewKeyringStore returns a store for the given server
func NewKeyringStore(serverURL string) *KeyringStore {
	return &KeyringStore{serverURL: serverURL}
}

// getKeyringKey returns a unique key for storing a session per server
func getKeyringKey(serverURL string) string {
	return fmt.Sprintf("session-%s", strings.TrimRight(serverURL, "/"))
}

// Load retrieves the stored credentials
func (k *KeyringStore) Load() (*credentials.Credentials, error) {
	raw, err := keyring.Get(service, getKeyringKey(k.serverURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, credentials.ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	var creds credentials.Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("stored credentials are corrupt: %w", err)
	}
	return &creds, nil
}

// Save replaces the stored credentials. Saving nothing clears the entry.
func (k *KeyringStore) Save(creds *credentials.Credentials) error {
	if creds.Empty() {
		return k.Clear()
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := keyring.Set(service, getKeyringKey(k.serverURL), string(data)); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Clear removes the stored credentials
func (k *KeyringStore) Clear() error {
	if err := keyring.Delete(service, getKeyringKey(k.serverURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
