package cards

import (
	"log/slog"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// decodeHTML converts body to UTF-8. contentType is the response header and
// may be empty, in which case a BOM or <meta charset> in the first KiB is
// used. A body that is already valid UTF-8 is kept as is unless the header
// names another charset, since many pages declare Latin-1 and send UTF-8.
func decodeHTML(body []byte, contentType string) []byte {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return body
	}
	if !certain && utf8.Valid(trimPartialRune(body)) {
		return body
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		slog.Debug("[CARDS] charset decode failed, using raw body", "charset", name, "error", err)
		return body
	}
	return decoded
}

// trimPartialRune drops an incomplete UTF-8 sequence at the end of b, which
// a truncated body can leave behind.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if utf8.FullRune(b[len(b)-i:]) {
				return b
			}
			return b[:len(b)-i]
		}
	}
	return b
}
