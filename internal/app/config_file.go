package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the configuration file schema. Nested sections mirror the
// dotted flag names.
type FileConfig struct {
	Catalog struct {
		Path     string `yaml:"path" json:"path"`
		Sheet    string `yaml:"sheet" json:"sheet"`
		Encoding string `yaml:"encoding" json:"encoding"`
		Columns  struct {
			License string `yaml:"license" json:"license"`
			Name    string `yaml:"name" json:"name"`
			Code    string `yaml:"code" json:"code"`
		} `yaml:"columns" json:"columns"`
	} `yaml:"catalog" json:"catalog"`

	State  string `yaml:"state" json:"state"`
	Export string `yaml:"export" json:"export"`

	Registry struct {
		BaseURL          string        `yaml:"baseURL" json:"baseURL"`
		UserAgent        string        `yaml:"userAgent" json:"userAgent"`
		PageTimeout      time.Duration `yaml:"pageTimeout" json:"pageTimeout"`
		DocumentTimeout  time.Duration `yaml:"documentTimeout" json:"documentTimeout"`
		DocumentMaxBytes int64         `yaml:"documentMaxBytes" json:"documentMaxBytes"`
		MaxAttempts      int           `yaml:"maxAttempts" json:"maxAttempts"`
		Delay            time.Duration `yaml:"delay" json:"delay"`
		Workers          int           `yaml:"workers" json:"workers"`
		IgnoreRobots     *bool         `yaml:"ignoreRobots" json:"ignoreRobots"`
	} `yaml:"registry" json:"registry"`

	Extract struct {
		ContentSelectors    []string `yaml:"contentSelectors" json:"contentSelectors"`
		Keywords            []string `yaml:"keywords" json:"keywords"`
		MinKeywordHits      *int     `yaml:"minKeywordHits" json:"minKeywordHits"`
		DeadPageMarkers     []string `yaml:"deadPageMarkers" json:"deadPageMarkers"`
		DocumentLinkMarkers []string `yaml:"documentLinkMarkers" json:"documentLinkMarkers"`
	} `yaml:"extract" json:"extract"`

	Normalize struct {
		MaxChars             int      `yaml:"maxChars" json:"maxChars"`
		MinPrefix            *int     `yaml:"minPrefix" json:"minPrefix"`
		SectionStartMarkers  []string `yaml:"sectionStartMarkers" json:"sectionStartMarkers"`
		SectionResumeMarkers []string `yaml:"sectionResumeMarkers" json:"sectionResumeMarkers"`
	} `yaml:"normalize" json:"normalize"`

	TimeZone string `yaml:"timeZone" json:"timeZone"`
	DryRun   bool   `yaml:"dryRun" json:"dryRun"`
	Verbose  bool   `yaml:"verbose" json:"verbose"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear  bool          `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg. Call it on a
// DefaultConfig before env overrides and explicit flags are applied.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setList := func(dst *[]string, v []string) {
		if len(v) > 0 {
			*dst = append([]string(nil), v...)
		}
	}
	setDuration := func(dst *time.Duration, v time.Duration) {
		if v != 0 {
			*dst = v
		}
	}

	setString(&cfg.CatalogPath, fc.Catalog.Path)
	setString(&cfg.CatalogSheet, fc.Catalog.Sheet)
	setString(&cfg.CatalogEncoding, fc.Catalog.Encoding)
	setString(&cfg.Columns.License, fc.Catalog.Columns.License)
	setString(&cfg.Columns.Name, fc.Catalog.Columns.Name)
	setString(&cfg.Columns.Code, fc.Catalog.Columns.Code)
	setString(&cfg.StatePath, fc.State)
	setString(&cfg.ExportPath, fc.Export)

	setString(&cfg.BaseURL, fc.Registry.BaseURL)
	setString(&cfg.UserAgent, fc.Registry.UserAgent)
	setDuration(&cfg.PageTimeout, fc.Registry.PageTimeout)
	setDuration(&cfg.DocumentTimeout, fc.Registry.DocumentTimeout)
	setDuration(&cfg.Delay, fc.Registry.Delay)
	if fc.Registry.DocumentMaxBytes > 0 {
		cfg.DocumentMaxBytes = fc.Registry.DocumentMaxBytes
	}
	if fc.Registry.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.Registry.MaxAttempts
	}
	if fc.Registry.Workers > 0 {
		cfg.Workers = fc.Registry.Workers
	}
	if fc.Registry.IgnoreRobots != nil {
		cfg.IgnoreRobots = *fc.Registry.IgnoreRobots
	}

	setList(&cfg.ContentSelectors, fc.Extract.ContentSelectors)
	setList(&cfg.Keywords, fc.Extract.Keywords)
	setList(&cfg.DeadPageMarkers, fc.Extract.DeadPageMarkers)
	setList(&cfg.DocumentLinkMarkers, fc.Extract.DocumentLinkMarkers)
	if fc.Extract.MinKeywordHits != nil {
		cfg.MinKeywordHits = *fc.Extract.MinKeywordHits
	}

	if fc.Normalize.MaxChars > 0 {
		cfg.MaxChars = fc.Normalize.MaxChars
	}
	if fc.Normalize.MinPrefix != nil {
		cfg.MinPrefix = *fc.Normalize.MinPrefix
	}
	setList(&cfg.SectionStartMarkers, fc.Normalize.SectionStartMarkers)
	setList(&cfg.SectionResumeMarkers, fc.Normalize.SectionResumeMarkers)

	setString(&cfg.TimeZone, fc.TimeZone)
	if fc.DryRun {
		cfg.DryRun = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	setString(&cfg.CacheDir, fc.Cache.Dir)
	setDuration(&cfg.CacheMaxAge, fc.Cache.MaxAge)
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
}
