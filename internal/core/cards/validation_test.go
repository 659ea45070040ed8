package cards

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"public https", "https://example.com/post/1", true},
		{"public http with port", "http://example.com:8080/a?b=c", true},
		{"public ipv4 literal", "http://93.184.216.34/", true},
		{"public ipv6 literal", "http://[2606:4700::1111]/", true},
		{"empty", "", false},
		{"relative", "/just/a/path", false},
		{"no scheme", "example.com/page", false},
		{"ftp scheme", "ftp://example.com/file", false},
		{"javascript scheme", "javascript:alert(1)", false},
		{"missing host", "https:///path", false},
		{"localhost", "http://localhost/", false},
		{"localhost uppercase", "http://LOCALHOST:3000/", false},
		{"dot localhost", "http://app.localhost/", false},
		{"loopback v4", "http://127.0.0.1/", false},
		{"loopback v4 range", "http://127.8.9.10/", false},
		{"loopback v6", "http://[::1]/", false},
		{"rfc1918 10", "http://10.1.2.3/", false},
		{"rfc1918 172", "http://172.16.0.1/", false},
		{"rfc1918 192", "http://192.168.1.1/", false},
		{"link-local", "http://169.254.169.254/latest/meta-data", false},
		{"unspecified", "http://0.0.0.0/", false},
		{"cgnat", "http://100.64.0.1/", false},
		{"documentation range", "http://203.0.113.5/", false},
		{"v4-mapped loopback", "http://[::ffff:127.0.0.1]/", false},
		{"v6 unique local", "http://[fd00::1]/", false},
		{"v6 link-local", "http://[fe80::1]/", false},
		{"too long", "https://example.com/" + strings.Repeat("a", MaxURLLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			assert.Equal(t, tt.valid, err == nil, "ValidateURL(%q) = %v", tt.url, err)
			assert.Equal(t, tt.valid, IsValid(tt.url))
			if !tt.valid {
				assert.True(t, errors.Is(err, ErrInvalidURL))
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.NotEmpty(t, ve.Reason)
			}
		})
	}
}

func TestValidateURL_AllowPrivate(t *testing.T) {
	_, err := validateURL("http://127.0.0.1:8080/", true)
	assert.NoError(t, err)

	_, err = validateURL("file:///etc/passwd", true)
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/A/b?Q=1#Frag", NormalizeURL("  HTTPS://Example.COM/A/b?Q=1#Frag \n"))
	assert.Equal(t, "not a url", NormalizeURL(" not a url "))
}

func TestHashURL(t *testing.T) {
	h := HashURL("https://example.com/")
	assert.Len(t, h, 32)
	assert.True(t, IsURLHash(h))
	assert.Equal(t, h, HashURL("https://example.com/"))
	assert.NotEqual(t, h, HashURL("https://example.com/other"))

	// Equivalent spellings share a key once normalized.
	assert.Equal(t, HashURL(NormalizeURL("HTTPS://EXAMPLE.com/")), h)
}

func TestIsURLHash(t *testing.T) {
	assert.True(t, IsURLHash("d41d8cd98f00b204e9800998ecf8427e"))
	assert.False(t, IsURLHash("D41D8CD98F00B204E9800998ECF8427E"))
	assert.False(t, IsURLHash("d41d8cd98f00b204"))
	assert.False(t, IsURLHash("zz1d8cd98f00b204e9800998ecf8427e"))
	assert.False(t, IsURLHash(""))
}
