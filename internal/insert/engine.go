package insert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/insertwatch/internal/extract"
	"github.com/hyperifyio/insertwatch/internal/fetch"
	"github.com/hyperifyio/insertwatch/internal/pdftext"
)

// Page is a fetched detail page shared by all engines.
type Page struct {
	URL         string
	Body        []byte
	ContentType string
}

// Engine turns a detail page into insert text or a sentinel.
type Engine interface {
	Name() string
	Extract(ctx context.Context, page *Page) Result
}

// PageEngine reads the insert from the structured detail page itself.
type PageEngine struct {
	Options Options
}

func (e *PageEngine) Name() string { return "page" }

func (e *PageEngine) Extract(ctx context.Context, page *Page) Result {
	doc, err := extract.Parse(page.Body, page.ContentType)
	if err != nil {
		return unexpectedSentinel(err)
	}
	extract.StripNoise(doc)
	region := extract.Region(doc, e.Options.ContentSelectors)
	if region == nil {
		return Sentinel(ReasonStructure, MsgStructure)
	}
	text := extract.Text(region)
	if e.Options.isDeadPage(text) {
		return Sentinel(ReasonDeadPage, MsgDeadPage)
	}
	if e.Options.keywordHits(text) < e.Options.MinKeywordHits {
		return Sentinel(ReasonImplausible, MsgImplausible)
	}
	return Content(text)
}

// DocumentEngine follows the page's insert document link and extracts the
// document text.
type DocumentEngine struct {
	Options Options
	Client  *fetch.Client
}

func (e *DocumentEngine) Name() string { return "document" }

func (e *DocumentEngine) Extract(ctx context.Context, page *Page) Result {
	// Parse again: the page engine strips markup that may hold the link.
	doc, err := extract.Parse(page.Body, page.ContentType)
	if err != nil {
		return unexpectedSentinel(err)
	}
	target := e.Options.documentLink(page.URL, extract.Links(doc))
	if target == "" {
		return Sentinel(ReasonDocumentNotFound, MsgDocumentNotFound)
	}
	body, _, err := e.Client.Get(ctx, target)
	if err != nil {
		return fetchSentinel(err)
	}
	text, err := pdftext.Text(body)
	if err != nil {
		return unexpectedSentinel(err)
	}
	if strings.TrimSpace(text) == "" {
		return Sentinel(ReasonDocumentUnreadable, MsgDocumentUnreadable)
	}
	return Content(text)
}

// fetchSentinel describes a failed GET. Responses the client rejected for
// their type or size are read failures, everything else is transport.
func fetchSentinel(err error) Result {
	if errors.Is(err, fetch.ErrUnsupportedContentType) || errors.Is(err, fetch.ErrBodyTooLarge) {
		return unexpectedSentinel(err)
	}
	var se *fetch.StatusError
	if errors.As(err, &se) {
		return Sentinel(ReasonTransport, fmt.Sprintf("連線錯誤 (Code %d)", se.Code))
	}
	return Sentinel(ReasonTransport, "連線錯誤: "+err.Error())
}

func unexpectedSentinel(v any) Result {
	return Sentinel(ReasonUnexpected, fmt.Sprintf("讀取失敗: %v", v))
}
