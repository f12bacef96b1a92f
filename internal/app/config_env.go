package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable the application reads.
const EnvPrefix = "INSERTWATCH_"

// ApplyEnvOverrides overrides cfg fields with environment variables when the
// corresponding variables are set. Env takes precedence over the config file;
// explicit flags are applied afterwards and win over both.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	get := func(key string) string { return strings.TrimSpace(os.Getenv(EnvPrefix + key)) }

	setString := func(dst *string, key string) {
		if v := get(key); v != "" {
			*dst = v
		}
	}
	setList := func(dst *[]string, key string) {
		if v := get(key); v != "" {
			*dst = splitList(v)
		}
	}
	setInt := func(dst *int, key string) {
		if v := get(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v := get(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(get(key)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}

	setString(&cfg.CatalogPath, "CATALOG")
	setString(&cfg.CatalogSheet, "CATALOG_SHEET")
	setString(&cfg.CatalogEncoding, "CATALOG_ENCODING")
	setString(&cfg.StatePath, "STATE")
	setString(&cfg.ExportPath, "EXPORT")
	setString(&cfg.BaseURL, "BASE_URL")
	setString(&cfg.UserAgent, "USER_AGENT")
	setDuration(&cfg.PageTimeout, "PAGE_TIMEOUT")
	setDuration(&cfg.DocumentTimeout, "DOCUMENT_TIMEOUT")
	setDuration(&cfg.Delay, "DELAY")
	setInt(&cfg.MaxAttempts, "MAX_ATTEMPTS")
	setInt(&cfg.Workers, "WORKERS")
	setBool(&cfg.IgnoreRobots, "IGNORE_ROBOTS")
	setList(&cfg.Keywords, "KEYWORDS")
	setInt(&cfg.MinKeywordHits, "MIN_KEYWORD_HITS")
	setInt(&cfg.MaxChars, "MAX_CHARS")
	setInt(&cfg.MinPrefix, "MIN_PREFIX")
	setString(&cfg.TimeZone, "TIMEZONE")
	setString(&cfg.CacheDir, "CACHE_DIR")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.Verbose, "VERBOSE")
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
