package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Event sources.
const (
	SourceJSON = "json"
	SourceICS  = "ics"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Europe/Stockholm"
	defaultRefreshCron = "*/15 * * * *"
	defaultLogLevel    = "info"
	defaultMaxPerDay   = 2
	defaultCacheDir    = "./var/api-cache"
	defaultHTTPTimeout = 15
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the local HTTP API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// APIURL is the backend origin, e.g. "https://borka.example.se".
	APIURL string `yaml:"api_url" json:"api_url"`

	// SessionToken is forwarded as a bearer token for member-only calls.
	SessionToken string `yaml:"session_token,omitempty" json:"-"`

	// Listen is the HTTP listen address for the local API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for calendar days (e.g. "Europe/Stockholm").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule for pulling backend data.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxEventsPerDay is how many events a month-grid cell shows before "+N".
	MaxEventsPerDay int `yaml:"max_events_per_day" json:"max_events_per_day"`

	// CacheDir stores the last good backend responses.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Source selects where events come from: "json" (/api/events) or
	// "ics" (/api/calendar/ics).
	Source string `yaml:"source" json:"source"`

	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds" json:"http_timeout_seconds"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:             defaultListen,
		Timezone:           defaultTimezone,
		RefreshCron:        defaultRefreshCron,
		LogLevel:           defaultLogLevel,
		MaxEventsPerDay:    defaultMaxPerDay,
		CacheDir:           defaultCacheDir,
		Source:             SourceJSON,
		HTTPTimeoutSeconds: defaultHTTPTimeout,
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MaxEventsPerDay <= 0 {
		c.MaxEventsPerDay = defaultMaxPerDay
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	switch c.Source {
	case SourceJSON, SourceICS:
	default:
		c.Source = SourceJSON
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = defaultHTTPTimeout
	}
}

// Validate reports settings that have no usable default.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("config: api_url is required (or set BORKA_API_URL)")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.New("config: unknown timezone " + c.Timezone)
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// HTTPTimeout is HTTPTimeoutSeconds as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Environment overrides applied by ApplyEnv.
const (
	EnvAPIURL       = "BORKA_API_URL"
	EnvListen       = "BORKA_LISTEN"
	EnvLogLevel     = "BORKA_LOG_LEVEL"
	EnvSessionToken = "BORKA_SESSION_TOKEN"
)

// ApplyEnv loads the given .env files (missing files are ignored) and lets
// BORKA_* environment variables override file settings. Variables already
// set in the process environment win over .env values.
func (c *Config) ApplyEnv(envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvSessionToken); v != "" {
		c.SessionToken = v
	}
	c.Normalize()
	return nil
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

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".borkacal-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
