package adapter

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockElements get a trailing space so adjacent blocks don't run together.
const blockElements = "p, li, br, div, tr, h1, h2, h3, h4, h5, h6"

// extractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (Greenhouse double-encodes content; this is
// a no-op on real HTML), walks the document with goquery, then collapses
// whitespace.
func extractText(content string) string {
	if content == "" {
		return ""
	}
	unescaped := html.UnescapeString(content)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(unescaped))
	if err != nil {
		return strings.Join(strings.Fields(unescaped), " ")
	}
	doc.Find(blockElements).AppendHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}
