package insert

import (
	"net/url"
	"strings"

	"github.com/hyperifyio/insertwatch/internal/extract"
)

// DefaultBaseURL is the registry origin serving detail pages.
const DefaultBaseURL = "https://mcp.fda.gov.tw"

// Options configures the engines.
type Options struct {
	// BaseURL is the registry origin; detail pages live under /im_detail_1/.
	BaseURL string
	// ContentSelectors are tried in order; the first match is the content
	// region.
	ContentSelectors []string
	// Keywords are section terms of a real insert. A page needs at least
	// MinKeywordHits distinct keywords to count as content.
	Keywords       []string
	MinKeywordHits int
	// DeadPageMarkers identify the registry's empty-result page. All of them
	// must be present.
	DeadPageMarkers []string
	// DocumentLinkMarkers are link-text terms that mark an insert document.
	// A target containing DocumentHrefMarker also qualifies.
	DocumentLinkMarkers []string
	DocumentHrefMarker  string
	// DocumentExt is the required suffix of a document link's path.
	DocumentExt string
}

// DefaultOptions returns the settings for the registry's current layout.
func DefaultOptions() Options {
	return Options{
		BaseURL:             DefaultBaseURL,
		ContentSelectors:    []string{"div.im_detail_content", "div.container", "body"},
		Keywords:            []string{"適應症", "用法用量", "警語", "副作用", "禁忌", "交互作用", "劑型"},
		MinKeywordHits:      1,
		DeadPageMarkers:     []string{"查無資料", "電子仿單"},
		DocumentLinkMarkers: []string{"仿單", "說明書", "使用說明"},
		DocumentHrefMarker:  "insert",
		DocumentExt:         ".pdf",
	}
}

// DetailURL builds the canonical detail-page URL for an identifier. The same
// string is fetched and persisted as the record's source URL.
func DetailURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/im_detail_1/" + escapeID(id)
}

// escapeID percent-encodes every byte outside the RFC 3986 unreserved set,
// leaving '/' alone. url.PathEscape differs on '/' and the sub-delims.
func escapeID(id string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '-', c == '.', c == '_', c == '~', c == '/':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&15])
		}
	}
	return b.String()
}

func (o Options) isDeadPage(text string) bool {
	if len(o.DeadPageMarkers) == 0 {
		return false
	}
	for _, m := range o.DeadPageMarkers {
		if !strings.Contains(text, m) {
			return false
		}
	}
	return true
}

func (o Options) keywordHits(text string) int {
	n := 0
	for _, k := range o.Keywords {
		if k != "" && strings.Contains(text, k) {
			n++
		}
	}
	return n
}

// documentLink returns the absolute URL of the first link that points at an
// insert document, or "".
func (o Options) documentLink(pageURL string, links []extract.Link) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(o.DocumentExt)
	hrefMarker := strings.ToLower(o.DocumentHrefMarker)
	for _, l := range links {
		ref, err := url.Parse(l.Href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if ext != "" && !strings.HasSuffix(strings.ToLower(abs.Path), ext) {
			continue
		}
		if (hrefMarker != "" && strings.Contains(strings.ToLower(l.Href), hrefMarker)) || containsAny(l.Text, o.DocumentLinkMarkers) {
			return abs.String()
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
