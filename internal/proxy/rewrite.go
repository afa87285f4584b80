package proxy

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// cookieExpiresLayout is the dashed date form still emitted by some servers
const cookieExpiresLayout = "Mon, 02-Jan-2006 15:04:05 MST"

// RewriteSetCookie adapts an upstream Set-Cookie value so the browser stores
// it for the front-end origin:
//
//   - the Domain attribute is removed
//   - when Expires is present and Max-Age is absent or zero, Max-Age is set to
//     the whole seconds remaining, unless the cookie has already expired
//   - a positive Max-Age is kept as is; a non-numeric one is dropped
//   - every other attribute is preserved in order
//
// ok is false when the first segment has no '=' and the cookie must be skipped.
func RewriteSetCookie(raw string, now time.Time) (string, bool) {
	parts := strings.Split(raw, ";")
	nameValue := strings.TrimSpace(parts[0])
	if !strings.Contains(nameValue, "=") {
		return "", false
	}

	var (
		attrs      []string
		expires    time.Time
		hasExpires bool
		maxAge     int
		zeroMaxAge string // a Max-Age<=0 token, kept unless replaced
	)

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)

		switch {
		case strings.HasPrefix(lower, "domain="):
			continue
		case strings.HasPrefix(lower, "expires="):
			if t, err := parseExpires(part[len("expires="):]); err == nil {
				expires, hasExpires = t, true
			}
			attrs = append(attrs, part)
		case strings.HasPrefix(lower, "max-age="):
			n, err := strconv.Atoi(strings.TrimSpace(part[len("max-age="):]))
			if err != nil {
				continue
			}
			if n > 0 {
				maxAge = n
				attrs = append(attrs, part)
			} else if zeroMaxAge == "" {
				zeroMaxAge = part
			}
		default:
			attrs = append(attrs, part)
		}
	}

	if maxAge == 0 {
		recomputed := false
		if hasExpires {
			secs := int64(expires.Sub(now) / time.Second)
			if secs > 0 {
				attrs = append(attrs, "Max-Age="+strconv.FormatInt(secs, 10))
				recomputed = true
			}
		}
		if !recomputed && zeroMaxAge != "" {
			attrs = append(attrs, zeroMaxAge)
		}
	}

	if len(attrs) == 0 {
		return nameValue, true
	}
	return nameValue + "; " + strings.Join(attrs, "; "), true
}

func parseExpires(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := http.ParseTime(v); err == nil {
		return t, nil
	}
	return time.Parse(cookieExpiresLayout, v)
}

// RelaySetCookies rewrites each raw cookie and appends the survivors to dst as
// separate Set-Cookie headers. It returns how many were relayed and skipped.
func RelaySetCookies(dst http.Header, raw []string, now time.Time) (relayed, skipped int) {
	for _, c := range raw {
		rewritten, ok := RewriteSetCookie(c, now)
		if !ok {
			skipped++
			continue
		}
		dst.Add("Set-Cookie", rewritten)
		relayed++
	}
	return relayed, skipped
}
