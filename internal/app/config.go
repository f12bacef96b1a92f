package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hyperifyio/insertwatch/internal/catalog"
	"github.com/hyperifyio/insertwatch/internal/insert"
	"github.com/hyperifyio/insertwatch/internal/normalize"
)

// DefaultUserAgent is a desktop browser string; the registry serves reduced
// pages to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds runtime configuration for the application.
type Config struct {
	// Inputs and outputs
	CatalogPath     string
	CatalogSheet    string
	CatalogEncoding string
	Columns         catalog.Columns
	StatePath       string
	ExportPath      string

	// Registry access
	BaseURL          string
	UserAgent        string
	PageTimeout      time.Duration
	DocumentTimeout  time.Duration
	DocumentMaxBytes int64
	MaxAttempts      int
	Delay            time.Duration
	Workers          int
	IgnoreRobots     bool

	// Extraction
	ContentSelectors    []string
	Keywords            []string
	MinKeywordHits      int
	DeadPageMarkers     []string
	DocumentLinkMarkers []string

	// Normalization
	MaxChars             int
	MinPrefix            int
	SectionStartMarkers  []string
	SectionResumeMarkers []string

	// TimeZone names the IANA zone used for change dates.
	TimeZone string

	// Behavior
	DryRun      bool
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool
	Verbose     bool
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	io := insert.DefaultOptions()
	no := normalize.DefaultOptions()
	return Config{
		CatalogPath:          "drug_list.xlsx",
		Columns:              catalog.DefaultColumns(),
		StatePath:            "public/data.json",
		BaseURL:              io.BaseURL,
		UserAgent:            DefaultUserAgent,
		PageTimeout:          15 * time.Second,
		DocumentTimeout:      30 * time.Second,
		DocumentMaxBytes:     64 << 20,
		MaxAttempts:          2,
		Delay:                time.Second,
		Workers:              1,
		ContentSelectors:     io.ContentSelectors,
		Keywords:             io.Keywords,
		MinKeywordHits:       io.MinKeywordHits,
		DeadPageMarkers:      io.DeadPageMarkers,
		DocumentLinkMarkers:  io.DocumentLinkMarkers,
		MaxChars:             no.MaxChars,
		MinPrefix:            no.MinPrefix,
		SectionStartMarkers:  no.SectionStartMarkers,
		SectionResumeMarkers: no.SectionResumeMarkers,
		TimeZone:             "Asia/Taipei",
		CacheDir:             ".insertwatch-cache",
	}
}

// InsertOptions derives the engine settings.
func (c Config) InsertOptions() insert.Options {
	o := insert.DefaultOptions()
	o.BaseURL = c.BaseURL
	o.ContentSelectors = append([]string(nil), c.ContentSelectors...)
	o.Keywords = append([]string(nil), c.Keywords...)
	o.MinKeywordHits = c.MinKeywordHits
	o.DeadPageMarkers = append([]string(nil), c.DeadPageMarkers...)
	o.DocumentLinkMarkers = append([]string(nil), c.DocumentLinkMarkers...)
	return o
}

// NormalizeOptions derives the normalizer settings.
func (c Config) NormalizeOptions() normalize.Options {
	return normalize.Options{
		MaxChars:             c.MaxChars,
		MinPrefix:            c.MinPrefix,
		SectionStartMarkers:  append([]string(nil), c.SectionStartMarkers...),
		SectionResumeMarkers: append([]string(nil), c.SectionResumeMarkers...),
	}
}

// CatalogOptions derives the catalog reader settings.
func (c Config) CatalogOptions() catalog.Options {
	return catalog.Options{Columns: c.Columns, Sheet: c.CatalogSheet, Encoding: c.CatalogEncoding}
}

var errNoCatalog = errors.New("catalog path is required")

// ValidateConfig checks a configuration for a full run.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.CatalogPath) == "" {
		return errNoCatalog
	}
	if strings.TrimSpace(cfg.StatePath) == "" {
		return errors.New("state path is required")
	}
	return validateFetch(cfg)
}

// validateFetch checks the settings needed to resolve identifiers.
func validateFetch(cfg Config) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.PageTimeout <= 0 || cfg.DocumentTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if cfg.DocumentMaxBytes < 0 {
		return errors.New("document size cap must not be negative")
	}
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("max attempts %d: must be at least 1", cfg.MaxAttempts)
	}
	if cfg.Delay < 0 {
		return errors.New("delay must not be negative")
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers %d: must be at least 1", cfg.Workers)
	}
	if cfg.MinKeywordHits < 0 {
		return errors.New("keyword threshold must not be negative")
	}
	if len(cfg.ContentSelectors) == 0 {
		return errors.New("at least one content selector is required")
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return fmt.Errorf("time zone %q: %w", cfg.TimeZone, err)
	}
	return cfg.NormalizeOptions().Validate()
}
