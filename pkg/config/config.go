package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pario-ai/reviewd/pkg/models"
	"gopkg.in/yaml.v3"
)

// Cache backends for the review list entry. Tokens always stay in memory.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// BusinessManageScope grants management access to the business profile.
const BusinessManageScope = "https://www.googleapis.com/auth/business.manage"

// Config holds all reviewd configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	Banner   string         `yaml:"banner"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Budget   BudgetConfig   `yaml:"budget"`
	Audit    AuditConfig    `yaml:"audit"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
}

// OAuthConfig holds the OAuth2 client registration.
// AuthURL and TokenURL default to Google's endpoint when empty.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
}

// UpstreamConfig locates the business profile APIs and the reviewed location.
// When AccountID and LocationID are both set they are used as-is, otherwise
// the first account and its first location are resolved on every fetch.
type UpstreamConfig struct {
	AccountManagementURL string        `yaml:"account_management_url"`
	BusinessInfoURL      string        `yaml:"business_info_url"`
	ReviewsURL           string        `yaml:"reviews_url"`
	AccountID            string        `yaml:"account_id"`
	LocationID           string        `yaml:"location_id"`
	PageSize             int           `yaml:"page_size"`
	Timeout              time.Duration `yaml:"timeout"`
}

// CacheConfig controls the token and review cache entries.
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	ReviewsTTL time.Duration `yaml:"reviews_ttl"`
	DBPath     string        `yaml:"db_path"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig configures the redis review cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
	Prefix   string `yaml:"prefix"`
}

// TrackerConfig controls the upstream fetch log.
type TrackerConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// BudgetConfig controls upstream fetch budget enforcement.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// AuditConfig controls the HTTP access log.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// CORSConfig lists the origins allowed to call the service.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":3000",
		Banner: "Google Reviews API running",
		Upstream: UpstreamConfig{
			AccountManagementURL: "https://mybusinessaccountmanagement.googleapis.com/v1",
			BusinessInfoURL:      "https://mybusinessbusinessinformation.googleapis.com/v1",
			ReviewsURL:           "https://mybusiness.googleapis.com/v4",
			PageSize:             50,
			Timeout:              30 * time.Second,
		},
		Cache: CacheConfig{
			Backend:    BackendMemory,
			TokenTTL:   24 * time.Hour,
			ReviewsTTL: 6 * time.Hour,
			DBPath:     "reviewd.db",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "reviewd",
			},
		},
		Tracker: TrackerConfig{
			Enabled: false,
			DBPath:  "reviewd.db",
		},
		Audit: AuditConfig{
			Enabled:       false,
			DBPath:        "reviewd_audit.db",
			RetentionDays: 30,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Env names recognised by ApplyEnv.
const (
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvRedirectURI  = "GOOGLE_REDIRECT_URI"
	EnvPort         = "PORT"
	EnvAccountID    = "GBP_ACCOUNT_ID"
	EnvLocationID   = "GBP_LOCATION_ID"
	EnvLogLevel     = "REVIEWD_LOG_LEVEL"
)

// ApplyEnv overrides fields from environment-style lookups. Empty values
// leave the field untouched.
func (c *Config) ApplyEnv(lookup func(string) string) {
	set := func(dst *string, key string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}
	set(&c.OAuth.ClientID, EnvClientID)
	set(&c.OAuth.ClientSecret, EnvClientSecret)
	set(&c.OAuth.RedirectURL, EnvRedirectURI)
	set(&c.Upstream.AccountID, EnvAccountID)
	set(&c.Upstream.LocationID, EnvLocationID)
	set(&c.Log.Level, EnvLogLevel)
	if port := lookup(EnvPort); port != "" {
		c.Listen = ":" + port
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unsupported cache backend %q: must be memory, sqlite or redis", c.Cache.Backend)
	}
	if c.Cache.TokenTTL <= 0 || c.Cache.ReviewsTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	for _, p := range c.Budget.Policies {
		switch p.Period {
		case models.BudgetHourly, models.BudgetDaily:
		default:
			return fmt.Errorf("unsupported budget period %q", p.Period)
		}
		if p.MaxFetches <= 0 {
			return fmt.Errorf("budget max_fetches must be positive")
		}
	}
	if c.Audit.Enabled && c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention_days must be positive")
	}
	if c.Budget.Enabled && !c.Tracker.Enabled {
		return fmt.Errorf("budget enforcement requires the fetch tracker")
	}
	return nil
}
