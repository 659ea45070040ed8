package cards

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// leadingURLToken matches a stray "http(s)://... " token at the start of a
// value, left behind by some upstream editors.
var leadingURLToken = regexp.MustCompile(`^https?://\S+\s+`)

// Sanitize turns value into plain text: markup is removed, whitespace is
// collapsed and any leading stray URL token is dropped. Entities are left
// as written. Invalid UTF-8 is replaced with U+FFFD.
// Sanitize(Sanitize(s)) == Sanitize(s) for every s.
func Sanitize(value string) string {
	value = strings.ToValidUTF8(value, "\uFFFD")
	for {
		next := sanitizeOnce(value)
		if next == value {
			return next
		}
		value = next
	}
}

// sanitizeOnce never grows its input except by replacing whitespace runs
// with a single space, so iterating it reaches a fixed point.
func sanitizeOnce(value string) string {
	s := collapseSpace(stripTags(value))
	for {
		loc := leadingURLToken.FindStringIndex(s)
		if loc == nil {
			return s
		}
		s = s[loc[1]:]
	}
}

// stripTags keeps only the raw text tokens of value. Text inside script and
// style elements is dropped with the elements.
func stripTags(value string) string {
	if !strings.Contains(value, "<") {
		return value
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(value))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Raw())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style:
				skip++
			case atom.Br, atom.P, atom.Div, atom.Li, atom.Tr:
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style:
				if skip > 0 {
					skip--
				}
			case atom.P, atom.Div, atom.Li, atom.Tr:
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Br {
				b.WriteByte(' ')
			}
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
