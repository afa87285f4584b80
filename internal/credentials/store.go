package credentials

import (
	"errors"
	"sync"
	"time"
)

// ErrNoCredentials is returned by Load when nothing is stored
var ErrNoCredentials = errors.New("no stored credentials")

// Mode selects how the credential reaches the backend
type Mode string

const (
	// ModeCookie relies on the backend-issued cookie pair
	ModeCookie Mode = "cookie"
	// ModeBearer sends the token returned by login as an Authorization header
	ModeBearer Mode = "bearer"
)

// ParseMode validates a mode string; empty means ModeCookie
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeCookie:
		return ModeCookie, nil
	case ModeBearer:
		return ModeBearer, nil
	}
	return "", errors.New("auth mode must be \"cookie\" or \"bearer\"")
}

// StoredCookie is the persisted form of a session cookie
type StoredCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// Expired reports whether the cookie has a deadline before now
func (c StoredCookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// Credentials is what a Store persists for one session
type Credentials struct {
	Token   string         `json:"token,omitempty"`
	Cookies []StoredCookie `json:"cookies,omitempty"`
	SavedAt time.Time      `json:"saved_at"`
}

// Empty reports whether the credentials carry neither a token nor cookies
func (c *Credentials) Empty() bool {
	return c == nil || (c.Token == "" && len(c.Cookies) == 0)
}

// Store persists the session credential between invocations.
// Implementations must be safe for concurrent use; the last Save wins.
type Store interface {
	Load() (*Credentials, error)
	Save(creds *Credentials) error
	Clear() error
}

// MemoryStore keeps credentials in process memory
type MemoryStore struct {
	mu    sync.Mutex
	creds *Credentials
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds.Empty() {
		return nil, ErrNoCredentials
	}
	cp := *m.creds
	cp.Cookies = append([]StoredCookie(nil), m.creds.Cookies...)
	return &cp, nil
}

func (m *MemoryStore) Save(creds *Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if creds.Empty() {
		m.creds = nil
		return nil
	}
	cp := *creds
	cp.Cookies = append([]StoredCookie(nil), creds.Cookies...)
	m.creds = &cp
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.creds = nil
	m.mu.Unlock()
	return nil
}
