package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello world", "Hello world"},
		{"trims and collapses", "  Hello \n\t world  ", "Hello world"},
		{"strips tags", "<b>Bold</b> move", "Bold move"},
		{"drops script", `Safe<script>alert("x")</script> text`, "Safe text"},
		{"drops style", "<style>p{color:red}</style>Styled", "Styled"},
		{"drops attributes", `<img src=x onerror="alert(1)">Caption`, "Caption"},
		{"block tags become spaces", "one<br>two<p>three</p>four", "one two three four"},
		{"leading url token", "https://example.com/x Actual title", "Actual title"},
		{"repeated url tokens", "http://a.example/ https://b.example/ Title", "Title"},
		{"lone url kept", "https://example.com/page", "https://example.com/page"},
		{"url not at start kept", "See https://example.com/ now", "See https://example.com/ now"},
		{"entities kept as written", "Tom &amp; Jerry", "Tom &amp; Jerry"},
		{"bare ampersand", "Q&A", "Q&A"},
		{"unclosed tag", "Title <b", "Title"},
		{"invalid utf-8 replaced", "Caf\xe9 bar", "Caf\uFFFD bar"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"<p>para</p><p>graph</p>",
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"https://a.example/ <b>https://b.example/</b> title",
		"<scr<script>ipt>alert(1)</script>",
		"<<>>< >",
		" non breaking ",
		"<a href='https://x.example/'>https://x.example/</a> tail",
		"<!-- comment -->text<![CDATA[data]]>",
		"https://x.example/\thttps://y.example/\n",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
		assert.NotContains(t, once, "<script")
	}
}
