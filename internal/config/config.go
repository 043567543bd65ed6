package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Version     string          `yaml:"version"`
	Server      ServerConfig    `yaml:"server"`
	API         APIConfig       `yaml:"api"`
	FrontendURL string          `yaml:"frontend_url"`
	Database    DatabaseConfig  `yaml:"database"`
	Platforms   PlatformsConfig `yaml:"platforms"`
	Analytics   AnalyticsConfig `yaml:"analytics"`
	Connect     ConnectConfig   `yaml:"connect"`
	AI          AIConfig        `yaml:"ai"`
	Upstream    UpstreamConfig  `yaml:"upstream"`
	Telegram    TelegramConfig  `yaml:"telegram"`
}

// ServerConfig contains server-related configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
	TLS             TLSConfig     `yaml:"tls"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	MinVersion string `yaml:"min_version"` // "1.2" or "1.3"
}

// APIConfig contains API-related configuration.
type APIConfig struct {
	Auth         AuthConfig      `yaml:"auth"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	CORS         CORSConfig      `yaml:"cors"`
	MaxBodyBytes int64           `yaml:"max_body_bytes"`
}

// AuthConfig configures bearer JWT verification.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
	// RetentionDays bounds analytics history. Defaults to 90; 0 keeps everything.
	RetentionDays int `yaml:"retention_days"`
}

// PlatformsConfig holds the OAuth application registered with each provider.
type PlatformsConfig struct {
	Twitter   PlatformConfig `yaml:"twitter"`
	LinkedIn  PlatformConfig `yaml:"linkedin"`
	Facebook  PlatformConfig `yaml:"facebook"`
	Instagram PlatformConfig `yaml:"instagram"`
}

// PlatformConfig is one provider's client registration. The URL overrides
// exist for tests and sandboxes; empty means the provider's public endpoint.
type PlatformConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURI  string   `yaml:"redirect_uri"`
	Scopes       []string `yaml:"scopes"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	APIBaseURL   string   `yaml:"api_base_url"`
	GraphBaseURL string   `yaml:"graph_base_url"`
}

// Enabled reports whether the platform has a client registration.
func (p PlatformConfig) Enabled() bool {
	return p.ClientID != ""
}

// AnalyticsConfig tunes the aggregator fan-out.
type AnalyticsConfig struct {
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	Concurrency     int           `yaml:"concurrency"`
	RefreshSkew     time.Duration `yaml:"refresh_skew"`
	// RecordHistory stores one analytics record per platform after each overview.
	RecordHistory *bool `yaml:"record_history"`
}

// HistoryEnabled defaults to true when unset.
func (a AnalyticsConfig) HistoryEnabled() bool {
	return a.RecordHistory == nil || *a.RecordHistory
}

type ConnectConfig struct {
	StateTTL        time.Duration `yaml:"state_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type AIConfig struct {
	Gemini GeminiConfig `yaml:"gemini"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// UpstreamConfig configures the shared outbound HTTP client.
type UpstreamConfig struct {
	UTLS    bool          `yaml:"utls"`
	Timeout time.Duration `yaml:"timeout"`
}

// TelegramConfig contains Telegram notifier configuration.
type TelegramConfig struct {
	Enabled   bool                    `yaml:"enabled"`
	BotToken  string                  `yaml:"bot_token"`
	ChatID    int64                   `yaml:"chat_id"`
	RateLimit TelegramRateLimitConfig `yaml:"rate_limit"`
}

type TelegramRateLimitConfig struct {
	MessagesPerMinute int `yaml:"messages_per_minute"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = "1"
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if c.FrontendURL == "" {
		c.FrontendURL = "http://localhost:3000"
	}
	if _, err := url.ParseRequestURI(c.FrontendURL); err != nil {
		return fmt.Errorf("frontend_url: %w", err)
	}
	c.FrontendURL = strings.TrimRight(c.FrontendURL, "/")

	if err := c.API.Validate(c.FrontendURL); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if c.Database.Path == "" {
		c.Database.Path = "data/socialsync.db"
	}
	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("database: retention_days must not be negative")
	}

	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics: %w", err)
	}

	if err := c.Connect.Validate(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	c.AI.Gemini.applyDefaults()
	c.Upstream.applyDefaults()

	if err := c.Telegram.Validate(); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535")
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 30 * time.Second
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.TLS.Enabled {
		if s.TLS.CertFile == "" {
			return fmt.Errorf("tls cert_file is required when TLS is enabled")
		}
		if s.TLS.KeyFile == "" {
			return fmt.Errorf("tls key_file is required when TLS is enabled")
		}
		if s.TLS.MinVersion != "" && s.TLS.MinVersion != "1.2" && s.TLS.MinVersion != "1.3" {
			return fmt.Errorf("tls min_version must be either \"1.2\" or \"1.3\"")
		}
		if s.TLS.MinVersion == "" {
			s.TLS.MinVersion = "1.3"
		}
	}
	return nil
}

// Validate validates API configuration. The frontend origin is always allowed.
func (a *APIConfig) Validate(frontendURL string) error {
	if a.Auth.JWTSecret == "" {
		return fmt.Errorf("auth: jwt_secret is required")
	}
	if a.Auth.TokenTTL <= 0 {
		a.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if a.RateLimit.RequestsPerMinute <= 0 {
		a.RateLimit.RequestsPerMinute = 600
	}
	if a.RateLimit.RequestsPerMinute > 100000 {
		a.RateLimit.RequestsPerMinute = 100000
	}
	if a.RateLimit.Burst <= 0 {
		a.RateLimit.Burst = 60
	}
	if a.RateLimit.Burst > 10000 {
		a.RateLimit.Burst = 10000
	}
	if a.MaxBodyBytes <= 0 {
		a.MaxBodyBytes = 1 << 20
	}
	if len(a.CORS.Origins) == 0 {
		a.CORS.Origins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	if !containsString(a.CORS.Origins, frontendURL) {
		a.CORS.Origins = append([]string{frontendURL}, a.CORS.Origins...)
	}
	return nil
}

// Validate validates analytics configuration and applies defaults.
func (a *AnalyticsConfig) Validate() error {
	if a.UpstreamTimeout < 0 || a.Concurrency < 0 || a.RefreshSkew < 0 {
		return fmt.Errorf("upstream_timeout, concurrency and refresh_skew must not be negative")
	}
	if a.UpstreamTimeout == 0 {
		a.UpstreamTimeout = 10 * time.Second
	}
	if a.Concurrency == 0 {
		a.Concurrency = 4
	}
	if a.RefreshSkew == 0 {
		a.RefreshSkew = 5 * time.Minute
	}
	return nil
}

func (c *ConnectConfig) Validate() error {
	if c.StateTTL < 0 {
		return fmt.Errorf("state_ttl must be positive")
	}
	if c.StateTTL == 0 {
		c.StateTTL = 10 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return nil
}

func (g *GeminiConfig) applyDefaults() {
	if g.Model == "" {
		g.Model = "gemini-2.0-flash"
	}
	if g.BaseURL == "" {
		g.BaseURL = "https://generativelanguage.googleapis.com"
	}
	g.BaseURL = strings.TrimRight(g.BaseURL, "/")
	if g.Timeout <= 0 {
		g.Timeout = 30 * time.Second
	}
}

func (u *UpstreamConfig) applyDefaults() {
	if u.Timeout <= 0 {
		u.Timeout = 15 * time.Second
	}
}

// Validate validates Telegram configuration.
func (t *TelegramConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.BotToken == "" {
		return fmt.Errorf("bot_token is required when telegram is enabled")
	}
	if t.ChatID == 0 {
		return fmt.Errorf("chat_id is required when telegram is enabled")
	}
	if t.RateLimit.MessagesPerMinute <= 0 {
		t.RateLimit.MessagesPerMinute = 20
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
