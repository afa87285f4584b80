package credentials

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Jar is a cookie jar bound to a single origin, the same-origin GraphQL proxy.
// Unlike net/http/cookiejar it can export and re-import its contents, which
// lets the CLI persist the session between runs.
type Jar struct {
	mu       sync.Mutex
	cookies  map[string]StoredCookie // keyed by name
	now      func() time.Time
	onChange func([]StoredCookie)
}

// NewJar creates an empty jar
func NewJar() *Jar {
	return &Jar{
		cookies: make(map[string]StoredCookie),
		now:     time.Now,
	}
}

// OnChange registers fn to receive a snapshot whenever a response sets or
// deletes a cookie. Restore and Clear do not trigger it.
func (j *Jar) OnChange(fn func([]StoredCookie)) {
	j.mu.Lock()
	j.onChange = fn
	j.mu.Unlock()
}

// SetCookies implements http.CookieJar. Deletion cookies (Max-Age<=0 or an
// Expires in the past) remove the stored entry.
func (j *Jar) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	changed := j.setLocked(cookies)
	hook := j.onChange
	j.mu.Unlock()

	if changed && hook != nil {
		hook(j.Snapshot())
	}
}

func (j *Jar) setLocked(cookies []*http.Cookie) bool {
	now := j.now()
	changed := false
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now)) || c.Value == "" {
			if _, ok := j.cookies[c.Name]; ok {
				delete(j.cookies, c.Name)
				changed = true
			}
			continue
		}

		stored := StoredCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if c.MaxAge > 0 {
			stored.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		} else if !c.Expires.IsZero() {
			stored.Expires = c.Expires
		}
		if j.cookies[c.Name] != stored {
			j.cookies[c.Name] = stored
			changed = true
		}
	}
	return changed
}

// Cookies implements http.CookieJar
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	var out []*http.Cookie
	for name, c := range j.cookies {
		if c.Expired(now) {
			delete(j.cookies, name)
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		if !pathMatch(u.Path, c.Path) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// Snapshot returns the live cookies
func (j *Jar) Snapshot() []StoredCookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	out := make([]StoredCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		if !c.Expired(now) {
			out = append(out, c)
		}
	}
	return out
}

// Restore replaces the jar's contents, skipping expired cookies
func (j *Jar) Restore(cookies []StoredCookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	j.cookies = make(map[string]StoredCookie, len(cookies))
	for _, c := range cookies {
		if c.Name != "" && !c.Expired(now) {
			j.cookies[c.Name] = c
		}
	}
}

// Clear drops every cookie
func (j *Jar) Clear() {
	j.mu.Lock()
	j.cookies = make(map[string]StoredCookie)
	j.mu.Unlock()
}

// HasSession reports whether a session cookie is held
func (j *Jar) HasSession() bool {
	for _, c := range j.Snapshot() {
		if c.Name == AccessTokenCookie || c.Name == RefreshTokenCookie {
			return true
		}
	}
	return false
}

// pathMatch follows RFC 6265 section 5.1.4: the cookie path must equal the
// request path or be a prefix of it ending on a segment boundary.
func pathMatch(requestPath, cookiePath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	if requestPath == "" {
		requestPath = "/"
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return len(requestPath) == len(cookiePath) ||
		strings.HasSuffix(cookiePath, "/") ||
		requestPath[len(cookiePath)] == '/'
}
