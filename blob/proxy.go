package blob

import (
	"net/url"
	"strings"
)

// DefaultProxyPrefix is the path the HTTP layer serves stored objects under.
const DefaultProxyPrefix = "/api/blob/"

func (s Settings) proxyPrefix() string {
	if p := strings.TrimSpace(s.ProxyPrefix); p != "" {
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		return p
	}
	return DefaultProxyPrefix
}

// proxyURL builds the serving URL for a normalized key. With a public base
// configured the key resolves against it; otherwise the proxy prefix is
// used. Key segments are percent-encoded independently.
func proxyURL(s Settings, key string) string {
	encoded := encodeKeyPath(key)

	base := strings.TrimSpace(s.PublicBase)
	if base == "" {
		return s.proxyPrefix() + encoded
	}

	base = strings.TrimSuffix(base, "/")
	if !isAbsoluteURL(base) && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base + "/" + encoded
}

// extractKey inverts proxyURL. It recognizes proxy-prefixed paths, URLs
// under the configured public base (matched on origin plus path prefix),
// and treats any other non-URL, non-data-URI input as an already
// normalized key. Unrecognized absolute URLs and data URIs are not ours:
// the second return is false and no error is possible.
func extractKey(s Settings, input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	if strings.HasPrefix(trimmed, "data:") {
		return "", false
	}

	prefix := s.proxyPrefix()

	u, err := url.Parse(trimmed)
	if err != nil {
		// Not URL-shaped at all; treat as a bare key.
		return NormalizeKey(trimmed), true
	}

	if u.Scheme != "" && u.Host != "" {
		if base, ok := parsedPublicBase(s); ok {
			basePath := strings.TrimSuffix(base.EscapedPath(), "/") + "/"
			if sameOrigin(u, base) && strings.HasPrefix(u.EscapedPath(), basePath) {
				return decodeKeyPath(strings.TrimPrefix(u.EscapedPath(), basePath)), true
			}
		}
		if strings.HasPrefix(u.EscapedPath(), prefix) {
			return decodeKeyPath(strings.TrimPrefix(u.EscapedPath(), prefix)), true
		}
		return "", false
	}

	escaped := u.EscapedPath()
	if strings.HasPrefix(escaped, prefix) {
		return decodeKeyPath(strings.TrimPrefix(escaped, prefix)), true
	}

	if base := strings.TrimSpace(s.PublicBase); base != "" && !isAbsoluteURL(base) {
		if !strings.HasPrefix(base, "/") {
			base = "/" + base
		}
		basePath := strings.TrimSuffix(base, "/") + "/"
		if strings.HasPrefix(escaped, basePath) {
			return decodeKeyPath(strings.TrimPrefix(escaped, basePath)), true
		}
	}

	return NormalizeKey(trimmed), true
}

func parsedPublicBase(s Settings) (*url.URL, bool) {
	base := strings.TrimSpace(s.PublicBase)
	if base == "" || !isAbsoluteURL(base) {
		return nil, false
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, false
	}
	return u, true
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

// downloadURL appends the marker the proxy route reads to force an
// attachment content disposition.
func downloadURL(u string) string {
	if strings.Contains(u, "?") {
		return u + "&download=1"
	}
	return u + "?download=1"
}
