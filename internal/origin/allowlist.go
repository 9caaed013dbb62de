// Package origin decides whether a browser-originated request comes from a
// host a tenant has allowed their widget to run on.
package origin

import (
	"net/http"
	"net/url"
	"strings"
)

// operatorHosts are first-party surfaces that are trusted regardless of
// tenant configuration.
var operatorHosts = map[string]bool{
	"tikozap.com":      true,
	"app.tikozap.com":  true,
	"demo.tikozap.com": true,
}

// NormalizeHost lower-cases, drops any port and strips a leading "www.".
func NormalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndexByte(h, ':'); i >= 0 && !strings.Contains(h[i:], "]") {
		h = h[:i]
	}
	h = strings.TrimSuffix(h, ".")
	return strings.TrimPrefix(h, "www.")
}

// IsHostAllowed reports whether host is trusted given the tenant's patterns.
//
// Patterns support an exact host ("example.com") and a wildcard-subdomain
// form ("*.example.com") which deliberately requires a subdomain: the apex
// must be listed separately. No host is allowed by default.
func IsHostAllowed(host string, patterns []string) bool {
	h := NormalizeHost(host)
	if h == "" {
		return false
	}
	if operatorHosts[h] {
		return true
	}

	for _, p := range patterns {
		p = NormalizeHost(p)
		if p == "" {
			continue
		}
		if after, ok := strings.CutPrefix(p, "*."); ok {
			if strings.HasSuffix(h, "."+after) {
				return true
			}
			continue
		}
		if h == p {
			return true
		}
	}
	return false
}

// RequestHost extracts the requesting page's host from the Origin header,
// falling back to Referer. Returns "" when neither parses.
func RequestHost(r *http.Request) string {
	for _, raw := range []string{r.Header.Get("Origin"), r.Header.Get("Referer")} {
		if raw == "" || raw == "null" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		return u.Hostname()
	}
	return ""
}

// RequestAllowed combines RequestHost and IsHostAllowed for handler use.
func RequestAllowed(r *http.Request, patterns []string) bool {
	return IsHostAllowed(RequestHost(r), patterns)
}
