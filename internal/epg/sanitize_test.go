package epg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"News", "News"},
		{"  padded  ", "padded"},
		{"Tom & Jerry", "Tom &amp; Jerry"},
		{"a < b > c", "a &lt; b &gt; c"},
		{"<p>Hello <i>World</i></p>", "Hello World"},
		{"Fish &amp; Chips", "Fish &amp; Chips"},
		{"&lt;b&gt;", "&lt;b&gt;"},
		{"AT&T", "AT&amp;T"},
		{"bad\x00\x1bchars", "badchars"},
		{"Café", "Café"},
		{"<!-- hidden -->visible", "visible"},
		{"a<b", "a&lt;b"},
		{"Score: 3<x", "Score: 3&lt;x"},
		{"<i>Tom</i> &amp; <b", "Tom &amp; &lt;b"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Sanitize(tc.in), "input %q", tc.in)
	}
}

func TestSanitize_CleanTextUnchanged(t *testing.T) {
	inputs := []string{
		"plain text",
		"Café Zürich",
		"Cafe\u0301 Zu\u0308rich",
		"Tom &amp; Jerry",
		"1 &lt; 2",
		"Line one\nLine two",
		"日本語のニュース",
	}
	for _, in := range inputs {
		assert.Equal(t, []byte(in), []byte(Sanitize(in)), "input %q", in)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"Tom & Jerry <i>Classic</i>",
		"a < b && c > d",
		"&amp;&lt;&gt;",
		"Ärger im Büro",
		"\tTabbed\nLines\r",
		"unterminated <tag",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func FuzzSanitize_Idempotent(f *testing.F) {
	for _, seed := range []string{"", "a & b", "<b>x</b>", "&amp;lt;", "<3 & >"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := Sanitize(s)
		if twice := Sanitize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}
