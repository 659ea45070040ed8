package cards

import (
	"crypto/md5"
	"encoding/hex"
	"net/netip"
	"net/url"
	"strings"
)

// MaxURLLength bounds accepted URLs to what the store's url column holds.
const MaxURLLength = 2048

// reservedPrefixes are ranges that are not globally routable and are not
// already covered by the netip.Addr predicates used in isBlockedAddr.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// isBlockedAddr reports whether addr is loopback, private, link-local,
// multicast, unspecified or otherwise reserved.
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() {
		return true
	}
	if addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() {
		return true
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ValidateURL checks that raw is an absolute http(s) URL whose host is not
// a local or non-routable address. It performs no network access; hostnames
// are checked again against their resolved addresses at dial time.
func ValidateURL(raw string) error {
	_, err := validateURL(raw, false)
	return err
}

// IsValid reports whether ValidateURL accepts raw.
func IsValid(raw string) bool {
	return ValidateURL(raw) == nil
}

func validateURL(raw string, allowPrivate bool) (*url.URL, error) {
	invalid := func(reason string) error {
		return &ValidationError{URL: raw, Reason: reason}
	}

	if raw == "" {
		return nil, invalid("empty")
	}
	if len(raw) > MaxURLLength {
		return nil, invalid("too long")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, invalid("malformed")
	}
	if !u.IsAbs() || u.Opaque != "" {
		return nil, invalid("not an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, invalid("scheme must be http or https")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, invalid("missing host")
	}
	if allowPrivate {
		return u, nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return nil, invalid("local host")
	}
	if addr, err := netip.ParseAddr(host); err == nil && isBlockedAddr(addr) {
		return nil, invalid("private or reserved address")
	}
	return u, nil
}

// NormalizeURL trims surrounding whitespace and lowercases the scheme and
// host so that equivalent spellings share a cache key. Path, query and
// fragment are left untouched.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// HashURL returns the 32-character hex digest used as the card's storage
// and cache key. It is not a security boundary.
func HashURL(u string) string {
	sum := md5.Sum([]byte(u))
	return hex.EncodeToString(sum[:])
}

// IsURLHash reports whether s has the shape HashURL produces.
func IsURLHash(s string) bool {
	if len(s) != md5.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// hostOf returns the lowercase host component of u, or "" if u does not parse.
func hostOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
