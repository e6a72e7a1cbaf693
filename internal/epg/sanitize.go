// SPDX-License-Identifier: MIT

package epg

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Sanitize strips markup tags from s and escapes &, < and >. Entities in the
// input are decoded first, so sanitizing sanitized text returns it unchanged.
// Text without markup, entities or raw &, < and > passes through byte for byte.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	text := stripTags(s)
	text = strings.TrimSpace(dropInvalidXML(text))
	// single pass: & is handled before the entities produced for < and >
	return escaper.Replace(text)
}

// stripTags returns the decoded text content of s. A tag left open at the end
// of s is kept as text.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	b.Grow(len(s))
	consumed := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if consumed < len(s) {
				b.WriteString(html.UnescapeString(s[consumed:]))
			}
			return b.String()
		}
		consumed += len(z.Raw())
		if tt == html.TextToken {
			b.Write(z.Text())
		}
	}
}

func dropInvalidXML(s string) string {
	s = strings.ToValidUTF8(s, "")
	ok := true
	for _, r := range s {
		if !isXMLChar(r) {
			ok = false
			break
		}
	}
	if ok {
		return s
	}
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if isXMLChar(r) {
			b = utf8.AppendRune(b, r)
		}
	}
	return string(b)
}

func isXMLChar(r rune) bool {
	return r == '\t' || r == '\n' || r == '\r' ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
