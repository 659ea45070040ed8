package cards

import (
	"net/url"
	"strings"
)

// ResolveURL resolves ref against base following RFC 3986 reference
// resolution, so dot segments are collapsed and protocol-relative references
// take the base scheme.
//
//   - an empty ref yields ""
//   - an absolute ref is returned unchanged
//   - a base without scheme or host yields ""
func ResolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return ref
	}

	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil || b.Scheme == "" || b.Host == "" {
		return ""
	}
	return b.ResolveReference(r).String()
}

// absoluteHTTPURL resolves ref against base and keeps it only if the result
// is an http(s) URL with a host.
func absoluteHTTPURL(ref, base string) string {
	resolved := ResolveURL(ref, base)
	if resolved == "" {
		return ""
	}
	u, err := url.Parse(resolved)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return resolved
	default:
		return ""
	}
}
