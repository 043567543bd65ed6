package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
)

const (
	EnvConfigPath = "SOCIALSYNC_CONFIG_PATH"
	EnvDBPath     = "SOCIALSYNC_DB_PATH"
	EnvUTLS       = "SOCIALSYNC_UTLS"

	defaultConfigPath = "config.yaml"
)

// Loader handles configuration loading and hot-reloading
type Loader struct {
	path     string
	mu       sync.RWMutex
	config   *Config
	lastMod  time.Time
	onChange func(*Config)
	logger   *logging.Logger
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(path string) *Loader {
	return &Loader{
		path:     path,
		logger:   logging.Nop(),
		stopChan: make(chan struct{}),
	}
}

// SetLogger sets the logger used to report reload failures.
func (l *Loader) SetLogger(logger *logging.Logger) {
	if logger == nil {
		return
	}
	l.mu.Lock()
	l.logger = logger
	l.mu.Unlock()
}

// Path returns the watched file path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the configuration from the file
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.ErrConfigNotFound{Path: l.path}
		}
		return nil, err
	}

	content, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &errors.ErrFileRead{Path: l.path, Err: err}
	}

	cfg, err := Parse(substituteEnvVars(content))
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	l.config = cfg
	l.lastMod = info.ModTime()

	return cfg, nil
}

// Reload forces a reload of the configuration
func (l *Loader) Reload() (*Config, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	onChange := l.onChange
	l.mu.RUnlock()

	if onChange != nil {
		onChange(cfg)
	}

	return cfg, nil
}

// Get returns the current configuration
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// SetOnChange sets a callback to be called when configuration changes
func (l *Loader) SetOnChange(fn func(*Config)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Watch reloads the config whenever the file is written, created or renamed
// into place. The directory is watched so editor save-by-rename is seen.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(l.path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopChan:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					l.reloadAndLog()
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.currentLogger().Warn("config watcher error", "error", werr)
			}
		}
	}()

	return nil
}

// StartWatcher polls the file modification time. Used where inotify is unavailable.
func (l *Loader) StartWatcher(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-l.stopChan:
				return
			case <-ticker.C:
				l.checkFileChange()
			}
		}
	}()
}

// StopWatcher stops both the fsnotify and the polling watcher.
func (l *Loader) StopWatcher() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
}

func (l *Loader) checkFileChange() {
	info, err := os.Stat(l.path)
	if err != nil {
		return
	}

	l.mu.RLock()
	lastMod := l.lastMod
	l.mu.RUnlock()

	if info.ModTime().After(lastMod) {
		l.reloadAndLog()
	}
}

func (l *Loader) reloadAndLog() {
	cfg, err := l.Reload()
	if err != nil {
		l.currentLogger().Error("config reload failed", "path", l.path, "error", err)
		return
	}
	l.currentLogger().Info("config reloaded", "path", l.path, "log_level", cfg.Server.LogLevel)
}

func (l *Loader) currentLogger() *logging.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return &errors.ErrFileRead{Path: f, Err: err}
		}
	}
	return nil
}

// ResolvePath returns the config path from SOCIALSYNC_CONFIG_PATH or the default.
func ResolvePath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return defaultConfigPath
}

// LoadFromEnv loads the configuration from the path in SOCIALSYNC_CONFIG_PATH.
func LoadFromEnv() (*Config, *Loader, error) {
	return LoadFile(ResolvePath())
}

// LoadFile loads .env, then the YAML file at path. When the file does not
// exist the configuration is assembled from plain environment variables and
// the returned Loader is nil.
func LoadFile(path string) (*Config, *Loader, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, nil, err
	}

	loader := NewLoader(path)
	cfg, err := loader.Load()
	if err == nil {
		return cfg, loader, nil
	}

	if _, notFound := err.(*errors.ErrConfigNotFound); !notFound {
		return nil, nil, err
	}

	cfg, err = FromEnvironment()
	if err != nil {
		return nil, nil, err
	}
	return cfg, nil, nil
}

// FromEnvironment builds a Config from the flat variable names used by
// .env deployments (JWT_SECRET, FRONTEND_URL, TWITTER_CLIENT_ID, ...).
func FromEnvironment() (*Config, error) {
	cfg := defaults()

	cfg.FrontendURL = os.Getenv("FRONTEND_URL")
	cfg.API.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, &errors.ErrConfigValidation{Err: fmt.Errorf("PORT: %w", err)}
		}
		cfg.Server.HTTPPort = p
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Server.LogLevel = level
	}

	cfg.Platforms.Twitter = platformFromEnv("TWITTER_CLIENT_ID", "TWITTER_CLIENT_SECRET", "TWITTER_REDIRECT_URI")
	cfg.Platforms.LinkedIn = platformFromEnv("LINKEDIN_CLIENT_ID", "LINKEDIN_CLIENT_SECRET", "LINKEDIN_REDIRECT_URI")
	cfg.Platforms.Facebook = platformFromEnv("META_APP_ID", "META_APP_SECRET", "META_REDIRECT_URI")
	cfg.Platforms.Instagram = platformFromEnv("INSTAGRAM_CLIENT_ID", "INSTAGRAM_CLIENT_SECRET", "INSTAGRAM_REDIRECT_URI")

	cfg.AI.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			return nil, &errors.ErrConfigValidation{Err: fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)}
		}
		cfg.Telegram = TelegramConfig{Enabled: true, BotToken: token, ChatID: chatID}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &errors.ErrConfigValidation{Err: err}
	}
	return cfg, nil
}

func platformFromEnv(idKey, secretKey, redirectKey string) PlatformConfig {
	return PlatformConfig{
		ClientID:     os.Getenv(idKey),
		ClientSecret: os.Getenv(secretKey),
		RedirectURI:  os.Getenv(redirectKey),
	}
}

func applyEnvOverrides(cfg *Config) {
	if path := os.Getenv(EnvDBPath); path != "" {
		cfg.Database.Path = path
	}
	if v := os.Getenv(EnvUTLS); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Upstream.UTLS = enabled
		}
	}
}

// MustLoad loads configuration or panics on error
func MustLoad(path string) *Config {
	cfg, err := NewLoader(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.HTTPPort = 5000
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.LogLevel = "info"
	cfg.Database.RetentionDays = 90
	return cfg
}

// Parse parses configuration from byte slice
func Parse(data []byte) (*Config, error) {
	cfg := defaults()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &errors.ErrConfigParse{Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &errors.ErrConfigValidation{Err: err}
	}

	return cfg, nil
}

func substituteEnvVars(content []byte) []byte {
	return []byte(os.ExpandEnv(string(content)))
}

// Redacted returns a copy safe to print: every secret is masked.
func (c *Config) Redacted() Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return logging.RedactedValue
	}
	out.API.Auth.JWTSecret = mask(c.API.Auth.JWTSecret)
	out.Platforms.Twitter.ClientSecret = mask(c.Platforms.Twitter.ClientSecret)
	out.Platforms.LinkedIn.ClientSecret = mask(c.Platforms.LinkedIn.ClientSecret)
	out.Platforms.Facebook.ClientSecret = mask(c.Platforms.Facebook.ClientSecret)
	out.Platforms.Instagram.ClientSecret = mask(c.Platforms.Instagram.ClientSecret)
	out.AI.Gemini.APIKey = mask(c.AI.Gemini.APIKey)
	out.Telegram.BotToken = mask(c.Telegram.BotToken)
	out.API.CORS.Origins = append([]string(nil), c.API.CORS.Origins...)
	return out
}
