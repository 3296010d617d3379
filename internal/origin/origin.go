// Package origin decides whether a browser Origin header may open a
// signaling connection. Origins are normalized before comparison so that
// case, default ports and trailing slashes never cause spurious rejections.
package origin

import (
	"net/url"
	"strconv"
	"strings"
)

// Checker holds the configured allowlist. The zero value (or an empty
// allowlist) falls back to a same-host policy: the Origin must match the
// request's Host header.
type Checker struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewChecker builds a Checker from configured origins. Entries are
// normalized; "*" allows every origin and "null" allows the opaque origin
// sent by sandboxed or file:// pages.
func NewChecker(allowedOrigins []string) *Checker {
	c := &Checker{allowed: make(map[string]struct{})}
	for _, entry := range allowedOrigins {
		if entry == "*" {
			c.allowAll = true
			continue
		}
		if norm, _, ok := normalize(entry); ok {
			c.allowed[norm] = struct{}{}
		}
	}
	return c
}

// Allow reports whether a request with the given Origin and Host headers
// may proceed. Requests without an Origin header are allowed; they come
// from non-browser clients which are not subject to cross-site rules.
func (c *Checker) Allow(originHeader, requestHost string) bool {
	if strings.TrimSpace(originHeader) == "" {
		return true
	}
	if c.allowAll {
		return true
	}

	norm, originHost, ok := normalize(originHeader)
	if !ok {
		return false
	}
	if len(c.allowed) > 0 {
		_, found := c.allowed[norm]
		return found
	}

	// Same-host fallback. Scheme is not compared because a TLS-terminating
	// proxy in front of the server makes the request look like plain HTTP
	// while the browser Origin stays https.
	scheme, _, _ := strings.Cut(norm, "://")
	if scheme != "http" && scheme != "https" {
		return false
	}
	reqHost, ok := normalizeHost(requestHost, scheme)
	if !ok {
		return false
	}
	return originHost == reqHost
}

// normalize validates an Origin header value and returns the canonical
// "scheme://host[:port]" form plus the host[:port] part. The literal
// origin "null" is passed through unchanged.
func normalize(header string) (norm, host string, ok bool) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", "", false
	}
	if trimmed == "null" {
		return "null", "", true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", false
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", "", false
	}

	host, ok = normalizeHost(u.Host, scheme)
	if !ok {
		return "", "", false
	}
	return scheme + "://" + host, host, true
}

// normalizeHost lowercases a host[:port] authority, validates the port and
// strips it when it is the scheme default.
func normalizeHost(rawHost, scheme string) (string, bool) {
	hostname, rawPort, ok := splitHostPort(strings.ToLower(strings.TrimSpace(rawHost)))
	if !ok || hostname == "" {
		return "", false
	}

	var port uint64
	if rawPort != "" {
		n, err := strconv.ParseUint(rawPort, 10, 16)
		if err != nil || n == 0 {
			return "", false
		}
		port = n
	}
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		port = 0
	}

	host := hostname
	if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}
	if port != 0 {
		host = host + ":" + strconv.FormatUint(port, 10)
	}
	return host, true
}

// splitHostPort splits host[:port], handling bracketed IPv6 literals. The
// hostname is returned without brackets; the port is not validated here.
func splitHostPort(rawHost string) (hostname, port string, ok bool) {
	if rawHost == "" {
		return "", "", false
	}

	if strings.HasPrefix(rawHost, "[") {
		end := strings.IndexByte(rawHost, ']')
		if end < 0 {
			return "", "", false
		}
		hostname = rawHost[1:end]
		rest := rawHost[end+1:]
		if rest == "" {
			return hostname, "", true
		}
		if !strings.HasPrefix(rest, ":") || len(rest) == 1 {
			return "", "", false
		}
		return hostname, rest[1:], true
	}

	switch strings.Count(rawHost, ":") {
	case 0:
		return rawHost, "", true
	case 1:
		hostname, port, _ = strings.Cut(rawHost, ":")
		if hostname == "" || port == "" {
			return "", "", false
		}
		return hostname, port, true
	default:
		// Unbracketed IPv6 literals are not valid authority syntax.
		return "", "", false
	}
}
