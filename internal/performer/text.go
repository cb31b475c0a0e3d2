package performer

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags separate words; other tags, such as a search-term highlight,
// are removed without leaving a gap.
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "td": true, "tr": true,
}

// CleanText turns an HTML fragment captured by a pattern into plain text.
// Tags are dropped, entities are decoded and runs of white space, including
// non-breaking spaces, collapse to a single space.
func CleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte(' ')
			}
		}
	}
}
