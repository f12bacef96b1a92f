package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/insertwatch/internal/app"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, showVersion, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(exitFailure)
	}
	if showVersion {
		fmt.Println("insertwatch", app.BuildString())
		os.Exit(exitOK)
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("interrupted; previous state left untouched")
		return exitInterrupted
	default:
		log.Error().Err(err).Msg("run failed")
		return exitFailure
	}
}

func run(ctx context.Context, cfg app.Config) error {
	if err := app.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	_, err = a.Run(ctx)
	return err
}

// parseConfig layers defaults, the config file, INSERTWATCH_* variables and
// explicitly given flags, in increasing precedence.
func parseConfig(args []string) (app.Config, bool, error) {
	var (
		configPath  string
		envFiles    string
		showVersion bool
	)
	parsed := app.DefaultConfig()
	fs := flag.NewFlagSet("insertwatch", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", os.Getenv(app.EnvPrefix+"CONFIG"), "Path to YAML or JSON config file")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files loaded before reading INSERTWATCH_* variables")
	fs.BoolVar(&showVersion, "version", false, "Print build information and exit")
	bindFlags(fs, &parsed)
	if err := fs.Parse(args); err != nil {
		return parsed, false, err
	}
	if fs.NArg() > 0 {
		return parsed, false, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if err := app.LoadEnvFiles(strings.Split(envFiles, ",")...); err != nil {
		return parsed, false, fmt.Errorf("load env files: %w", err)
	}
	if configPath == "" {
		configPath = os.Getenv(app.EnvPrefix + "CONFIG")
	}

	cfg := app.DefaultConfig()
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return cfg, false, fmt.Errorf("config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	// Replay the flags the user actually gave on top of the layered config.
	replay := flag.NewFlagSet("replay", flag.ContinueOnError)
	bindFlags(replay, &cfg)
	var replayErr error
	fs.Visit(func(f *flag.Flag) {
		if replay.Lookup(f.Name) == nil || replayErr != nil {
			return
		}
		replayErr = replay.Set(f.Name, f.Value.String())
	})
	return cfg, showVersion, replayErr
}

func bindFlags(fs *flag.FlagSet, cfg *app.Config) {
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Path to the drug catalog (.xlsx or .csv)")
	fs.StringVar(&cfg.CatalogSheet, "catalog.sheet", cfg.CatalogSheet, "Worksheet to read; empty selects the first")
	fs.StringVar(&cfg.CatalogEncoding, "catalog.encoding", cfg.CatalogEncoding, "CSV encoding: utf-8 or big5")
	fs.StringVar(&cfg.Columns.License, "catalog.license", cfg.Columns.License, "Header of the license number column")
	fs.StringVar(&cfg.Columns.Name, "catalog.name", cfg.Columns.Name, "Header of the drug name column")
	fs.StringVar(&cfg.Columns.Code, "catalog.code", cfg.Columns.Code, "Header of the hospital code column")
	fs.StringVar(&cfg.StatePath, "state", cfg.StatePath, "Path of the JSON state file")
	fs.StringVar(&cfg.ExportPath, "export", cfg.ExportPath, "Optional path of an .xlsx change report")

	fs.StringVar(&cfg.BaseURL, "base", cfg.BaseURL, "Registry base URL")
	fs.StringVar(&cfg.UserAgent, "ua", cfg.UserAgent, "User-Agent sent to the registry")
	fs.DurationVar(&cfg.PageTimeout, "timeout.page", cfg.PageTimeout, "Timeout per detail page request")
	fs.DurationVar(&cfg.DocumentTimeout, "timeout.document", cfg.DocumentTimeout, "Timeout per insert document request")
	fs.Int64Var(&cfg.DocumentMaxBytes, "document.maxBytes", cfg.DocumentMaxBytes, "Largest insert document accepted, in bytes")
	fs.IntVar(&cfg.MaxAttempts, "attempts", cfg.MaxAttempts, "Attempts per request, including the first")
	fs.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Minimum interval between identifiers")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Identifiers fetched concurrently")
	fs.BoolVar(&cfg.IgnoreRobots, "robots.ignore", cfg.IgnoreRobots, "Skip the robots.txt crawl-delay check")

	fs.Var((*listValue)(&cfg.ContentSelectors), "extract.selectors", "Comma-separated content region selectors, tried in order. Every comma splits; set selector groups such as \"div.a, div.b\" in the config file")
	fs.Var((*listValue)(&cfg.Keywords), "extract.keywords", "Comma-separated section keywords of a real insert")
	fs.IntVar(&cfg.MinKeywordHits, "extract.minKeywords", cfg.MinKeywordHits, "Distinct keywords a page needs to count as content")
	fs.Var((*listValue)(&cfg.DeadPageMarkers), "extract.deadMarkers", "Comma-separated phrases that together mark an empty registry page")
	fs.Var((*listValue)(&cfg.DocumentLinkMarkers), "extract.linkMarkers", "Comma-separated link texts that mark an insert document")

	fs.IntVar(&cfg.MaxChars, "normalize.maxChars", cfg.MaxChars, "Ceiling on stored text length, in characters")
	fs.IntVar(&cfg.MinPrefix, "normalize.minPrefix", cfg.MinPrefix, "Characters kept before a section may be elided")

	fs.StringVar(&cfg.TimeZone, "tz", cfg.TimeZone, "IANA time zone for change dates")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "List the identifiers without fetching or writing anything")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "HTTP cache directory; empty disables caching")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", cfg.CacheMaxAge, "Purge cache entries older than this; 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", cfg.CacheClear, "Clear the cache directory before the run")
}

// listValue is a comma-separated flag that replaces the whole list. Items
// cannot contain commas.
type listValue []string

func (l *listValue) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *listValue) Set(s string) error {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return errors.New("empty list")
	}
	*l = out
	return nil
}
