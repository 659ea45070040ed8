package cards

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// metaSource names one place a field can come from: a meta tag whose
// property or name attribute equals token, or, when itemprop is set, a meta
// tag whose itemprop attribute equals token.
type metaSource struct {
	token    string
	itemprop bool
}

var (
	titleSources = []metaSource{
		{token: "og:title"},
		{token: "twitter:title"},
		{token: "name", itemprop: true},
	}
	descriptionSources = []metaSource{
		{token: "og:description"},
		{token: "twitter:description"},
		{token: "description", itemprop: true},
		{token: "description"},
	}
	imageSources = []metaSource{
		{token: "og:image"},
		{token: "twitter:image:src"},
		{token: "twitter:image"},
		{token: "image", itemprop: true},
	}
)

// Extract pulls card fields out of an HTML document. It never fails:
// malformed markup is parsed best-effort and a missing title falls back to
// the host of baseURL. Image URLs are resolved against baseURL and dropped
// if they do not end up as absolute http(s) URLs. All fields are sanitized.
// Bodies in a legacy charset declared by <meta charset> are decoded first.
func Extract(body []byte, baseURL string) Fields {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decodeHTML(body, "")))
	if err != nil {
		// x/net/html only fails on reader errors; keep going with nothing found.
		doc = nil
	}

	var f Fields
	var metas *goquery.Selection
	if doc != nil {
		metas = doc.Find("meta")
	}

	f.Title = firstMeta(metas, titleSources)
	if f.Title == "" && doc != nil {
		f.Title = Sanitize(doc.Find("title").First().Text())
	}
	if f.Title == "" {
		f.Title = hostOf(baseURL)
	}

	f.Description = firstMeta(metas, descriptionSources)

	for _, src := range imageSources {
		raw := metaContent(metas, src)
		if raw == "" {
			continue
		}
		if img := absoluteHTTPURL(Sanitize(raw), baseURL); img != "" {
			f.Image = img
			break
		}
	}

	return f
}

// firstMeta returns the first non-empty sanitized value among sources, in order.
func firstMeta(metas *goquery.Selection, sources []metaSource) string {
	for _, src := range sources {
		if v := Sanitize(metaContent(metas, src)); v != "" {
			return v
		}
	}
	return ""
}

// metaContent returns the content of the first meta tag matching src with
// a non-blank content attribute. Matching is on the whole attribute value.
func metaContent(metas *goquery.Selection, src metaSource) string {
	if metas == nil {
		return ""
	}

	var found string
	metas.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !matches(s, src) {
			return true
		}
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return true
		}
		found = content
		return false
	})
	return found
}

func matches(s *goquery.Selection, src metaSource) bool {
	if src.itemprop {
		return strings.TrimSpace(s.AttrOr("itemprop", "")) == src.token
	}
	for _, attr := range []string{"property", "name"} {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr(attr, "")), src.token) {
			return true
		}
	}
	return false
}
