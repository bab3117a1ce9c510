// Package config handles the per-site wlh configuration (wlh.toml).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// FileName is the config file at the root of a site directory.
const FileName = "wlh.toml"

// Defaults applied to fields left unset.
const (
	DefaultContentDir   = "content"
	DefaultCronInterval = 7200
	DefaultFormat       = "html"
	DefaultLogMode      = "dev"
	MinCronInterval     = 60
)

// SiteConfig is the configuration of one site.
type SiteConfig struct {
	// BaseURL is the address the site is served from. Only links under it
	// are tracked.
	BaseURL string `toml:"base_url" validate:"required,baseurl"`

	// PostTypes are the document types that take part in the link graph.
	PostTypes []string `toml:"post_types" validate:"omitempty,dive,required"`

	// CronInterval is the queue drain interval in seconds.
	CronInterval int `toml:"cron_interval" validate:"gte=60"`

	// ContentDir is the content directory, relative to the site root.
	ContentDir string `toml:"content_dir" validate:"required"`

	// DefaultFormat is the body format of files whose extension implies none.
	DefaultFormat string `toml:"default_format" validate:"oneof=html markdown"`

	// AllowRelative resolves relative links against the base address.
	AllowRelative bool `toml:"allow_relative"`

	// Linkify turns bare URLs in Markdown bodies into links.
	Linkify bool `toml:"linkify"`

	LogMode string `toml:"log_mode" validate:"oneof=dev prod"`

	// MetricsAddr is the listen address of the metrics endpoint served by
	// `wlh serve`. Empty disables it.
	MetricsAddr string `toml:"metrics_addr" validate:"omitempty,hostname_port"`

	// History records drains, repairs and deletions in .wlh/history.log.
	// Nil means enabled.
	History *bool `toml:"history"`

	UI UIConfig `toml:"ui"`
}

// IsHistoryEnabled reports whether the operation history is kept.
func (c *SiteConfig) IsHistoryEnabled() bool {
	return c.History == nil || *c.History
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("baseurl", validateBaseURL)
}

func validateBaseURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(strings.TrimSpace(fl.Field().String()))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Default returns a config with every default applied.
func Default(baseURL string) *SiteConfig {
	cfg := &SiteConfig{BaseURL: baseURL}
	cfg.applyDefaults()
	return cfg
}

func (c *SiteConfig) applyDefaults() {
	if c.CronInterval == 0 {
		c.CronInterval = DefaultCronInterval
	}
	if c.ContentDir == "" {
		c.ContentDir = DefaultContentDir
	}
	if c.DefaultFormat == "" {
		c.DefaultFormat = DefaultFormat
	}
	if c.LogMode == "" {
		c.LogMode = DefaultLogMode
	}
}

// Validate checks every field.
func (c *SiteConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := tomlName(fe.StructField())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "baseurl":
		return field + " must be an absolute http(s) url"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "hostname_port":
		return field + " must be host:port"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

var tomlNames = map[string]string{
	"BaseURL":       "base_url",
	"PostTypes":     "post_types",
	"CronInterval":  "cron_interval",
	"ContentDir":    "content_dir",
	"DefaultFormat": "default_format",
	"LogMode":       "log_mode",
	"MetricsAddr":   "metrics_addr",
}

func tomlName(field string) string {
	if name, ok := tomlNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}

// Interval returns the drain interval.
func (c *SiteConfig) Interval() time.Duration {
	return time.Duration(c.CronInterval) * time.Second
}

// ContentPath returns the absolute content directory of the site at sitePath.
func (c *SiteConfig) ContentPath(sitePath string) string {
	if filepath.IsAbs(c.ContentDir) {
		return c.ContentDir
	}
	return filepath.Join(sitePath, filepath.FromSlash(c.ContentDir))
}

// Path returns the config file path of the site at sitePath.
func Path(sitePath string) string {
	return filepath.Join(sitePath, FileName)
}

// Load reads and validates the config of the site at sitePath.
func Load(sitePath string) (*SiteConfig, error) {
	return LoadFrom(Path(sitePath))
}

// LoadFrom reads and validates a config file. Unknown keys are an error.
func LoadFrom(path string) (*SiteConfig, error) {
	var cfg SiteConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no %s found at %s (run 'wlh init')", FileName, filepath.Dir(path))
		}
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// CreateDefault writes a commented config for baseURL at sitePath unless one
// exists. Reports whether the file was created.
func CreateDefault(sitePath, baseURL string) (string, bool, error) {
	path := Path(sitePath)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}

	cfg := Default(baseURL)
	if err := cfg.Validate(); err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(sitePath, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create site directory: %w", err)
	}
	if err := writeString(path, defaultTemplate(baseURL)); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, true, nil
}

func defaultTemplate(baseURL string) string {
	return fmt.Sprintf(`# wlh site configuration

# Address the site is served from. Only links under it are tracked.
base_url = %q

# Document types that take part in the link graph (default: post, page).
# post_types = ["post", "page"]

# Seconds between queue drains in 'wlh serve' (minimum %d).
cron_interval = %d

# Content directory, relative to this file.
content_dir = %q

# Body format of .txt files: html or markdown.
# default_format = "html"

# Resolve relative links against base_url instead of ignoring them.
# allow_relative = false

# Turn bare URLs in Markdown bodies into links.
# linkify = false

# Log output: dev (console) or prod (JSON).
# log_mode = "dev"

# Serve Prometheus metrics from 'wlh serve'.
# metrics_addr = "127.0.0.1:9464"

# Record drains, repairs and deletions in .wlh/history.log.
# history = true

# Optional UI accent color for terminal output.
# Supports ANSI color codes (0-255) or hex (#RRGGBB).
# [ui]
# accent = "39"
`, baseURL, MinCronInterval, DefaultCronInterval, DefaultContentDir)
}
