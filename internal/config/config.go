// Package config provides configuration loading and management for legisync.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivethreefive/legisync/internal/publish"
	"github.com/fivethreefive/legisync/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of environment overrides (LEGISYNC_UPSTREAM_API_KEY, ...)
	EnvPrefix = "LEGISYNC"

	// DefaultRequestsPerMinute is the per-target request quota
	DefaultRequestsPerMinute = 60

	// DefaultLookback is how far back a pass looks for votes
	DefaultLookback = 24 * time.Hour

	// DefaultSyncInterval is the pause between passes of `legisync run`
	DefaultSyncInterval = 30 * time.Minute

	// DefaultUpstreamTimeout bounds a single upstream request
	DefaultUpstreamTimeout = 30 * time.Second

	// DefaultUpstreamBaseURL is the congress API root
	DefaultUpstreamBaseURL = "https://api.propublica.org/congress/v1/"

	// DefaultPublishBaseURL is the authenticated publish API root
	DefaultPublishBaseURL = "https://oauth.reddit.com/"

	// DefaultTokenURL is the password grant endpoint
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	// DefaultAddress is where `legisync run` serves the ops endpoints
	DefaultAddress = ":9090"
)

// Chambers accepted in the chambers list.
const (
	ChamberHouse  = "house"
	ChamberSenate = "senate"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
	env  *viper.Viper
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithEnv sets the viper instance that supplies secret overrides. By default a
// viper reading LEGISYNC_* environment variables is used.
func WithEnv(v *viper.Viper) Option {
	return func(cfg *loaderConfig) error {
		if v == nil {
			return fmt.Errorf("viper instance is required")
		}
		cfg.env = v
		return nil
	}
}

// NewEnv returns a viper bound to LEGISYNC_* variables, with nested keys joined by
// underscores (upstream.api_key reads LEGISYNC_UPSTREAM_API_KEY).
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Config represents the root configuration structure
type Config struct {
	// DataDir holds the record store and status.json
	DataDir string `yaml:"dataDir"`

	// Congress is the session number appended to bare bill ids ("hr1" -> "hr1-115")
	Congress int `yaml:"congress,omitempty"`

	// Chambers to list votes for. Defaults to house and senate.
	Chambers []string `yaml:"chambers,omitempty"`

	// Lookback is the width of the vote listing window (e.g. "24h")
	Lookback string `yaml:"lookback,omitempty"`

	// SyncInterval is the pause between passes of `legisync run` (e.g. "30m")
	SyncInterval string `yaml:"syncInterval,omitempty"`

	// Workers bounds parallel detail fetches
	Workers int `yaml:"workers,omitempty"`

	// RememberCursor lets the next pass start from the last successful period
	RememberCursor bool `yaml:"rememberCursor,omitempty"`

	Upstream        UpstreamConfig        `yaml:"upstream"`
	Publish         PublishConfig         `yaml:"publish"`
	PublishedFields PublishedFieldsConfig `yaml:"publishedFields,omitempty"`
	Telemetry       *telemetry.Config     `yaml:"telemetry,omitempty"`
}

// UpstreamConfig defines the congress data source
type UpstreamConfig struct {
	BaseURL string `yaml:"baseURL,omitempty"`

	// APIKey is sent as X-API-Key. LEGISYNC_UPSTREAM_API_KEY overrides it.
	APIKey string `yaml:"apiKey,omitempty"`

	RequestsPerMinute int    `yaml:"requestsPerMinute,omitempty"`
	Timeout           string `yaml:"timeout,omitempty"`
}

// PublishConfig defines the publish target and its account
type PublishConfig struct {
	BaseURL  string `yaml:"baseURL,omitempty"`
	TokenURL string `yaml:"tokenURL,omitempty"`

	// Account secrets. Each can be overridden by LEGISYNC_PUBLISH_<FIELD>.
	AppID     string `yaml:"appID,omitempty"`
	AppSecret string `yaml:"appSecret,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`

	UserAgent string `yaml:"userAgent,omitempty"`
	Subreddit string `yaml:"subreddit"`

	RequestsPerMinute int `yaml:"requestsPerMinute,omitempty"`

	// Blocking makes callers wait for quota instead of failing. Defaults to true.
	Blocking *bool `yaml:"blocking,omitempty"`

	// TokenSafetyMargin is a fixed refresh margin; empty means 10% of the token lifetime
	TokenSafetyMargin string `yaml:"tokenSafetyMargin,omitempty"`

	Flair publish.Flair `yaml:"flair,omitempty"`
}

// PublishedFieldsConfig names the fields whose change triggers an amend
type PublishedFieldsConfig struct {
	Bill []string `yaml:"bill,omitempty"`
	Vote []string `yaml:"vote,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file, applies environment
// overrides and defaults, and validates the result.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if loaderCfg.env == nil {
		loaderCfg.env = NewEnv()
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyEnv(loaderCfg.env)
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnv lets non-empty environment values win over the file.
func (c *Config) applyEnv(v *viper.Viper) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"upstream.api_key", &c.Upstream.APIKey},
		{"publish.app_id", &c.Publish.AppID},
		{"publish.app_secret", &c.Publish.AppSecret},
		{"publish.username", &c.Publish.Username},
		{"publish.password", &c.Publish.Password},
	}
	for _, o := range overrides {
		if val := v.GetString(o.key); val != "" {
			*o.target = val
		}
	}
}

func (c *Config) applyDefaults() {
	if len(c.Chambers) == 0 {
		c.Chambers = []string{ChamberHouse, ChamberSenate}
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if c.Upstream.RequestsPerMinute == 0 {
		c.Upstream.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.Publish.BaseURL == "" {
		c.Publish.BaseURL = DefaultPublishBaseURL
	}
	if c.Publish.TokenURL == "" {
		c.Publish.TokenURL = DefaultTokenURL
	}
	if c.Publish.RequestsPerMinute == 0 {
		c.Publish.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.Publish.Blocking == nil {
		blocking := true
		c.Publish.Blocking = &blocking
	}
	if c.Telemetry != nil && c.Telemetry.Address == "" {
		c.Telemetry.Address = DefaultAddress
	}
}

// GetLookback returns the parsed lookback, DefaultLookback when unset
func (c *Config) GetLookback() time.Duration {
	return durationOr(c.Lookback, DefaultLookback)
}

// GetSyncInterval returns the parsed sync interval, DefaultSyncInterval when unset
func (c *Config) GetSyncInterval() time.Duration {
	return durationOr(c.SyncInterval, DefaultSyncInterval)
}

// GetTimeout returns the upstream request timeout
func (u *UpstreamConfig) GetTimeout() time.Duration {
	return durationOr(u.Timeout, DefaultUpstreamTimeout)
}

// GetTokenSafetyMargin returns the fixed refresh margin, zero when the lifetime
// ratio applies
func (p *PublishConfig) GetTokenSafetyMargin() time.Duration {
	return durationOr(p.TokenSafetyMargin, 0)
}

// IsBlocking reports whether the publish limiter waits for quota
func (p *PublishConfig) IsBlocking() bool {
	return p.Blocking == nil || *p.Blocking
}

// QualifyBillID appends the configured congress to a bare bill slug. Ids that
// already carry a congress suffix are returned lowercased.
func (c *Config) QualifyBillID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if strings.Contains(id, "-") || c.Congress == 0 {
		return id
	}
	return fmt.Sprintf("%s-%d", id, c.Congress)
}

// durationOr parses s; validate has already rejected malformed values.
func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.DataDir == "" {
		return fmt.Errorf("dataDir is required")
	}
	if c.Congress < 0 {
		return fmt.Errorf("congress must not be negative")
	}
	for _, ch := range c.Chambers {
		if ch != ChamberHouse && ch != ChamberSenate {
			return fmt.Errorf("chambers: unknown chamber %q", ch)
		}
	}
	if hasDuplicates(c.Chambers) {
		return fmt.Errorf("chambers: duplicate chamber")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	durations := []struct {
		field string
		value string
	}{
		{"lookback", c.Lookback},
		{"syncInterval", c.SyncInterval},
		{"upstream.timeout", c.Upstream.Timeout},
		{"publish.tokenSafetyMargin", c.Publish.TokenSafetyMargin},
	}
	for _, d := range durations {
		if err := validateDuration(d.field, d.value); err != nil {
			return err
		}
	}

	if err := c.Upstream.validate(); err != nil {
		return err
	}
	if err := c.Publish.validate(); err != nil {
		return err
	}

	if c.Telemetry != nil && c.Telemetry.Enabled {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

func (u *UpstreamConfig) validate() error {
	if err := validateURL("upstream.baseURL", u.BaseURL); err != nil {
		return err
	}
	if u.APIKey == "" {
		return fmt.Errorf("upstream.apiKey is required (or set %s_UPSTREAM_API_KEY)", EnvPrefix)
	}
	if u.RequestsPerMinute < 1 {
		return fmt.Errorf("upstream.requestsPerMinute must be at least 1")
	}
	return nil
}

func (p *PublishConfig) validate() error {
	if err := validateURL("publish.baseURL", p.BaseURL); err != nil {
		return err
	}
	if err := validateURL("publish.tokenURL", p.TokenURL); err != nil {
		return err
	}

	missing := []struct {
		field string
		value string
	}{
		{"publish.appID", p.AppID},
		{"publish.appSecret", p.AppSecret},
		{"publish.username", p.Username},
		{"publish.password", p.Password},
		{"publish.subreddit", p.Subreddit},
	}
	for _, m := range missing {
		if m.value == "" {
			return fmt.Errorf("%s is required", m.field)
		}
	}

	if p.RequestsPerMinute < 1 {
		return fmt.Errorf("publish.requestsPerMinute must be at least 1")
	}
	return nil
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30m', '1h'): %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative", field)
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", field)
	}
	return nil
}

func hasDuplicates(values []string) bool {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return len(slices.Compact(sorted)) != len(values)
}
