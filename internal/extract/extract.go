// Package extract turns fetched HTML into the pieces the insert engines need:
// a charset-decoded document, a de-noised content region, its text with block
// boundaries kept as line breaks, and the page's hyperlinks.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// NoiseSelectors are removed before a content region is chosen. They carry
// site chrome or embedded media, never insert text.
var NoiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "header", "footer",
	"iframe", "svg", "canvas",
	"video", "audio", "object", "embed", "picture",
}

// Parse decodes body using the charset declared by contentType or the
// document itself and builds a goquery document.
func Parse(body []byte, contentType string) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// StripNoise removes NoiseSelectors from doc in place.
func StripNoise(doc *goquery.Document) {
	for _, sel := range NoiseSelectors {
		doc.Find(sel).Remove()
	}
}

// Region returns the first element matching selectors, tried in order, or nil
// when none matches.
func Region(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, s := range selectors {
		if strings.TrimSpace(s) == "" {
			continue
		}
		sel := doc.Find(s)
		if sel.Length() > 0 {
			return sel.First()
		}
	}
	return nil
}

// Text extracts the text below sel. Block elements end a line and table cells
// are separated by a space; runs of inline whitespace are left for the
// normalizer to collapse.
func Text(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectText(&b, n, false)
	}
	return b.String()
}

// Link is a hyperlink found on a page.
type Link struct {
	Href string
	Text string
}

// Links lists every a[href] of doc in document order.
func Links(doc *goquery.Document) []Link {
	var out []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		out = append(out, Link{Href: href, Text: strings.TrimSpace(s.Text())})
	})
	return out
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		name := strings.ToLower(n.Data)
		switch name {
		case "script", "style", "noscript", "template":
			return
		case "pre":
			inPre = true
			b.WriteString("\n")
		case "br", "hr":
			b.WriteString("\n")
		default:
			if isBlock(name) {
				b.WriteString("\n")
			}
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.ReplaceAll(data, "\t", " ")
			data = strings.ReplaceAll(data, "\r", " ")
			data = strings.ReplaceAll(data, "\n", " ")
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		name := strings.ToLower(n.Data)
		switch {
		case name == "td" || name == "th":
			b.WriteString(" ")
		case name == "pre" || isBlock(name):
			b.WriteString("\n")
		}
	}
}

func isBlock(name string) bool {
	switch name {
	case "p", "div", "section", "article", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd",
		"table", "thead", "tbody", "tfoot", "tr", "caption",
		"blockquote", "figure", "figcaption", "form", "fieldset", "address":
		return true
	}
	return false
}
