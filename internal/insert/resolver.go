package insert

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/insertwatch/internal/fetch"
)

// Resolver fetches an identifier's detail page once and asks each engine in
// turn for the insert text.
type Resolver struct {
	Options Options
	// Pages fetches detail pages.
	Pages   *fetch.Client
	Engines []Engine
}

// NewResolver wires the page engine and the document engine, in that order.
// docs fetches insert documents and normally has the longer timeout.
func NewResolver(opts Options, pages, docs *fetch.Client) *Resolver {
	return &Resolver{
		Options: opts,
		Pages:   pages,
		Engines: []Engine{
			&PageEngine{Options: opts},
			&DocumentEngine{Options: opts, Client: docs},
		},
	}
}

var errNoEngines = errors.New("no extraction engines configured")

// Resolve never fails: every error, including a panic inside an engine,
// becomes a sentinel.
func (r *Resolver) Resolve(ctx context.Context, id string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("license", id).Interface("panic", p).Msg("extraction panicked")
			res = unexpectedSentinel(p)
		}
	}()

	pageURL := DetailURL(r.Options.BaseURL, id)
	body, ct, err := r.Pages.Get(ctx, pageURL)
	if err != nil {
		log.Debug().Err(err).Str("license", id).Str("url", pageURL).Msg("detail page fetch failed")
		return fetchSentinel(err)
	}
	page := &Page{URL: pageURL, Body: body, ContentType: ct}

	var best Result
	tried := false
	for _, e := range r.Engines {
		out := e.Extract(ctx, page)
		if !out.IsSentinel() {
			log.Debug().Str("license", id).Str("engine", e.Name()).Int("chars", len([]rune(out.Text))).Msg("content extracted")
			return out
		}
		log.Debug().Str("license", id).Str("engine", e.Name()).Stringer("reason", out.Reason).Msg("no content")
		if !tried || !(best.Reason == ReasonDeadPage && out.Reason == ReasonDocumentNotFound) {
			best = out
		}
		tried = true
	}
	if !tried {
		return unexpectedSentinel(errNoEngines)
	}
	return best
}
