package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	appLog "eventcal/internal/log"
	"eventcal/internal/recurrence"
)

// EnvPrefix marks environment variables that override file values. Nested
// keys are separated by a double underscore: EVENTCAL_SITE__TITLE.
const EnvPrefix = "EVENTCAL_"

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `koanf:"url" yaml:"url" json:"url"`
	// ID prefixes the slugs of imported events and names the source in logs.
	ID string `koanf:"id" yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `koanf:"name" yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
// An empty Username disables authentication.
type BasicAuthConfig struct {
	Username string `koanf:"username" yaml:"username" json:"username"`
	Password string `koanf:"password" yaml:"password" json:"password"`
}

func (b BasicAuthConfig) Enabled() bool {
	return b.Username != ""
}

// SiteConfig feeds channel metadata of the RSS and ICS outputs.
type SiteConfig struct {
	Title       string `koanf:"title" yaml:"title" json:"title"`
	Description string `koanf:"description" yaml:"description" json:"description"`
	// URL is the public base URL used for absolute links in feeds.
	URL string `koanf:"url" yaml:"url" json:"url"`
}

// RecurrenceConfig selects the counting rules of the recurrence engine.
type RecurrenceConfig struct {
	// CanceledDatesExtendCount keeps canceled dates from using up a series'
	// count. The default subtracts them from it.
	CanceledDatesExtendCount bool `koanf:"canceled_dates_extend_count" yaml:"canceled_dates_extend_count" json:"canceled_dates_extend_count"`
	// MonthDayOverflow is "skip" (default) or "clamp".
	MonthDayOverflow string `koanf:"month_day_overflow" yaml:"month_day_overflow" json:"month_day_overflow"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `koanf:"listen" yaml:"listen" json:"listen"`

	// ContentDir holds the Markdown event files.
	ContentDir string `koanf:"content_dir" yaml:"content_dir" json:"content_dir"`

	// CacheDir stores conditional-GET caches of ICS subscriptions.
	CacheDir string `koanf:"cache_dir" yaml:"cache_dir" json:"cache_dir"`

	// Timezone is the IANA zone that decides what "today" is. Empty means
	// the host's local zone. Event times themselves are zone-naive.
	Timezone string `koanf:"timezone" yaml:"timezone" json:"timezone"`

	Site SiteConfig `koanf:"site" yaml:"site" json:"site"`

	// WeekStart controls which weekday opens a row of the month grid.
	// Supported values:
	//   - "sunday" (default)
	//   - "monday"
	WeekStart string `koanf:"week_start" yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for reloading the event catalog.
	RefreshCron string `koanf:"refresh" yaml:"refresh" json:"refresh"`

	// FeedHorizonYears is how far past today the ICS and RSS feeds reach.
	FeedHorizonYears int `koanf:"feed_horizon_years" yaml:"feed_horizon_years" json:"feed_horizon_years"`

	// InitialLookaheadDays bounds the search for the month a bare calendar
	// request opens on.
	InitialLookaheadDays int `koanf:"initial_lookahead_days" yaml:"initial_lookahead_days" json:"initial_lookahead_days"`

	// MaxRangeDays caps /api/occurrences queries.
	MaxRangeDays int `koanf:"max_range_days" yaml:"max_range_days" json:"max_range_days"`

	LogLevel string `koanf:"log_level" yaml:"log_level" json:"log_level"`

	Recurrence RecurrenceConfig `koanf:"recurrence" yaml:"recurrence" json:"recurrence"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `koanf:"ics" yaml:"ics" json:"ics"`

	// BasicAuth, if a username is set, enables HTTP Basic Authentication on
	// all endpoints except /health.
	BasicAuth BasicAuthConfig `koanf:"basic_auth" yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:     "127.0.0.1:8080",
		ContentDir: "content/events",
		CacheDir:   "cache",
		Site: SiteConfig{
			Title:       "Events",
			Description: "Upcoming events",
			URL:         "http://127.0.0.1:8080",
		},
		WeekStart:            "sunday",
		RefreshCron:          "*/15 * * * *",
		FeedHorizonYears:     1,
		InitialLookaheadDays: 366,
		MaxRangeDays:         400,
		LogLevel:             "info",
		Recurrence: RecurrenceConfig{
			MonthDayOverflow: "skip",
		},
		ICS: []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.ContentDir == "" {
		c.ContentDir = def.ContentDir
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.Site.Title == "" {
		c.Site.Title = def.Site.Title
	}
	c.Site.URL = strings.TrimRight(c.Site.URL, "/")

	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = def.WeekStart
	}

	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.FeedHorizonYears <= 0 {
		c.FeedHorizonYears = def.FeedHorizonYears
	}
	if c.InitialLookaheadDays <= 0 {
		c.InitialLookaheadDays = def.InitialLookaheadDays
	}
	if c.MaxRangeDays <= 0 {
		c.MaxRangeDays = def.MaxRangeDays
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	c.Recurrence.MonthDayOverflow = strings.ToLower(strings.TrimSpace(c.Recurrence.MonthDayOverflow))
	switch c.Recurrence.MonthDayOverflow {
	case "skip", "clamp":
	default:
		c.Recurrence.MonthDayOverflow = def.Recurrence.MonthDayOverflow
	}

	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// WeekStartDay is WeekStart as a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// MatcherOptions translates the recurrence section for the engine.
func (c *Config) MatcherOptions() recurrence.Options {
	opts := recurrence.Options{CanceledDatesExtendCount: c.Recurrence.CanceledDatesExtendCount}
	if c.Recurrence.MonthDayOverflow == "clamp" {
		opts.MonthDayOverflow = recurrence.OverflowClamp
	}
	return opts
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load builds the configuration from, in increasing priority, the built-in
// defaults, the YAML file at path and EVENTCAL_* environment variables.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 perms first.
//   - The merged result is normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		// First run: create default config file.
		if err := Save(path, DefaultConfig()); err != nil {
			appLog.Error("config: failed to write default config", err, "path", path)
		} else {
			appLog.Info("config: wrote default config", "path", path)
		}
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(*DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		appLog.Info("config: file not found, using defaults and environment", "path", path)
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "__", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
