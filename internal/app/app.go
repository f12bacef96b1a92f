package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/insertwatch/internal/cache"
	"github.com/hyperifyio/insertwatch/internal/catalog"
	"github.com/hyperifyio/insertwatch/internal/fetch"
	"github.com/hyperifyio/insertwatch/internal/insert"
	"github.com/hyperifyio/insertwatch/internal/normalize"
	"github.com/hyperifyio/insertwatch/internal/report"
	"github.com/hyperifyio/insertwatch/internal/robots"
	"github.com/hyperifyio/insertwatch/internal/snapshot"
)

// pageMaxBytes caps detail page bodies.
const pageMaxBytes = 8 << 20

// App runs one monitoring pass: read the catalog, resolve every identifier
// against the registry, compare with the previous state and write the result.
type App struct {
	cfg        Config
	loc        *time.Location
	httpClient *http.Client
	robots     *fetch.Client
	resolver   *insert.Resolver
	norm       normalize.Options
	now        func() time.Time
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Items     int
	Changed   int
	Sentinels int
	// StateBytes is the size of the written state file.
	StateBytes int64
	Elapsed    time.Duration
}

// New wires the fetch clients, cache and resolver for cfg.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := validateFetch(cfg); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}

	var httpCache *cache.HTTPCache
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if st, err := cache.Purge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if st.Entries > 0 {
				log.Debug().Int("entries", st.Entries).Int64("bytes", st.Bytes).Dur("max_age", cfg.CacheMaxAge).Msg("purged stale cache entries")
			}
		}
		httpCache = &cache.HTTPCache{Dir: cfg.CacheDir}
	}

	httpClient := newRegistryHTTPClient(cfg.Workers)
	pages := &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.PageTimeout,
		Cache:             httpCache,
		AllowedTypes:      fetch.HTMLTypes,
		MaxBodyBytes:      pageMaxBytes,
	}
	docs := &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.DocumentTimeout,
		Cache:             httpCache,
		MaxBodyBytes:      cfg.DocumentMaxBytes,
	}
	robotsClient := &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       1,
		PerRequestTimeout: cfg.PageTimeout,
		Cache:             httpCache,
		AllowedTypes:      []string{"text/plain"},
		MaxBodyBytes:      512 << 10,
	}

	return &App{
		cfg:        cfg,
		loc:        loc,
		httpClient: httpClient,
		robots:     robotsClient,
		resolver:   insert.NewResolver(cfg.InsertOptions(), pages, docs),
		norm:       cfg.NormalizeOptions(),
		now:        time.Now,
	}, nil
}

// Close releases idle connections.
func (a *App) Close() {
	if a == nil || a.httpClient == nil {
		return
	}
	a.httpClient.CloseIdleConnections()
}

// Inspection is the outcome of resolving a single identifier.
type Inspection struct {
	URL        string
	Raw        insert.Result
	Normalized insert.Result
}

// Inspect resolves one identifier without touching the state file.
func (a *App) Inspect(ctx context.Context, id string) Inspection {
	raw := a.resolver.Resolve(ctx, id)
	return Inspection{
		URL:        insert.DetailURL(a.cfg.BaseURL, id),
		Raw:        raw,
		Normalized: normalize.Apply(raw, a.norm),
	}
}

// Run performs one pass. A cancelled context aborts the run before the state
// file is touched, so the previous state stays intact.
func (a *App) Run(ctx context.Context) (Summary, error) {
	start := a.now()
	sum := Summary{RunID: uuid.NewString()}
	logger := log.With().Str("run", sum.RunID).Logger()

	if err := ValidateConfig(a.cfg); err != nil {
		return sum, err
	}
	entries, err := catalog.Load(a.cfg.CatalogPath, a.cfg.CatalogOptions())
	if err != nil {
		return sum, err
	}
	for _, dup := range catalog.Duplicates(entries) {
		logger.Warn().Str("license", dup).Msg("duplicate catalog entry")
	}
	prior, err := snapshot.Load(a.cfg.StatePath)
	if err != nil {
		logger.Warn().Err(err).Str("path", a.cfg.StatePath).Msg("previous state unreadable; every entry counts as first sight")
	}
	logger.Info().
		Str("build", BuildString()).
		Int("entries", len(entries)).
		Int("known", len(prior)).
		Msg("run started")

	if a.cfg.DryRun {
		for _, e := range entries {
			_, known := prior[e.License]
			logger.Info().
				Str("license", e.License).
				Str("name", e.Name).
				Str("url", insert.DetailURL(a.cfg.BaseURL, e.License)).
				Bool("known", known).
				Msg("would fetch")
		}
		sum.Items = len(entries)
		sum.Elapsed = a.now().Sub(start)
		return sum, nil
	}

	results, err := a.resolveAll(ctx, logger, entries)
	if err != nil {
		return sum, err
	}

	now := a.now().In(a.loc)
	today := now.Format(snapshot.DateLayout)
	records := make([]snapshot.Record, len(entries))
	for i, e := range entries {
		var prev *snapshot.Record
		if p, ok := prior[e.License]; ok {
			prev = &p
		}
		id := snapshot.Identity{
			License: e.License,
			Name:    e.Name,
			Code:    e.Code,
			URL:     insert.DetailURL(a.cfg.BaseURL, e.License),
		}
		rec := snapshot.Next(id, prev, results[i], today)
		if results[i].IsSentinel() {
			sum.Sentinels++
		}
		if rec.Changed {
			sum.Changed++
			logger.Info().
				Str("license", e.License).
				Str("name", e.Name).
				Str("status", rec.Status).
				Msg("insert changed")
		}
		records[i] = rec
	}
	sum.Items = len(records)

	st := snapshot.State{LastUpdated: now.Format(snapshot.TimestampLayout), Records: records}
	if err := snapshot.Save(a.cfg.StatePath, st); err != nil {
		return sum, fmt.Errorf("save state: %w", err)
	}
	if fi, err := os.Stat(a.cfg.StatePath); err == nil {
		sum.StateBytes = fi.Size()
	}
	if a.cfg.ExportPath != "" {
		if err := report.WriteXLSX(a.cfg.ExportPath, records); err != nil {
			return sum, fmt.Errorf("export report: %w", err)
		}
		logger.Info().Str("path", a.cfg.ExportPath).Msg("report written")
	}

	sum.Elapsed = a.now().Sub(start)
	logger.Info().
		Int("items", sum.Items).
		Int("changed", sum.Changed).
		Int("sentinels", sum.Sentinels).
		Int64("state_bytes", sum.StateBytes).
		Dur("elapsed", sum.Elapsed).
		Msg("run finished")
	return sum, nil
}

// resolveAll fetches every entry under the politeness delay. Results keep
// catalog order regardless of completion order.
func (a *App) resolveAll(ctx context.Context, logger zerolog.Logger, entries []catalog.Entry) ([]insert.Result, error) {
	delay := a.politeDelay(ctx, logger)
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]insert.Result, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i, e := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			res := normalize.Apply(a.resolver.Resolve(gctx, e.License), a.norm)
			results[i] = res
			ev := logger.Debug().Int("n", i+1).Int("of", len(entries)).Str("license", e.License)
			if res.IsSentinel() {
				ev = ev.Str("reason", res.Reason.String()).Str("detail", res.Text)
			} else {
				ev = ev.Int("chars", len([]rune(res.Text)))
			}
			ev.Msg("resolved")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	// Resolver turns cancellation into transport sentinels; those must not
	// reach the state file.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// politeDelay returns the configured delay, raised to the registry's
// robots.txt Crawl-delay when that is longer.
func (a *App) politeDelay(ctx context.Context, logger zerolog.Logger) time.Duration {
	delay := a.cfg.Delay
	if a.cfg.IgnoreRobots {
		return delay
	}
	rules, err := robots.Fetch(ctx, a.robots, a.cfg.BaseURL)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("robots.txt unavailable; using configured delay")
		}
		return delay
	}
	if cd := rules.CrawlDelay(a.cfg.UserAgent); cd > delay {
		logger.Info().Dur("crawl_delay", cd).Dur("configured", delay).Msg("raising delay to robots.txt crawl-delay")
		delay = cd
	}
	detailPath := insert.DetailURL("", "x")
	detailPath = detailPath[:strings.LastIndexByte(detailPath, '/')+1]
	if !rules.IsAllowed(a.cfg.UserAgent, detailPath) {
		logger.Warn().Str("path", detailPath).Msg("robots.txt disallows detail pages")
	}
	return delay
}
