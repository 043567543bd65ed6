package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/socialsync/socialsync/internal/ai"
	"github.com/socialsync/socialsync/internal/analytics"
	"github.com/socialsync/socialsync/internal/api"
	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/connect"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/metrics"
	"github.com/socialsync/socialsync/internal/models"
	"github.com/socialsync/socialsync/internal/platforms"
	"github.com/socialsync/socialsync/internal/store"
	"github.com/socialsync/socialsync/internal/telegram"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the SocialSync API server",
	Long: `Start the SocialSync HTTP API server.

The server handles the OAuth connect flows, the linked account endpoints,
analytics aggregation and the Gemini content endpoints.

Example:
  socialsync serve --config config.yaml
  socialsync serve --memory --port 8080

Configuration changes to the log level are applied without a restart.`,
	RunE: runServe,
}

var serveFlags struct {
	Host       string
	Port       int
	Timeout    time.Duration
	Memory     bool
	TLS        bool
	TLSCert    string
	TLSKey     string
	TLSVersion string
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")
	serveCmd.Flags().DurationVar(&serveFlags.Timeout, "timeout", 0, "Shutdown timeout (overrides config)")
	serveCmd.Flags().BoolVar(&serveFlags.Memory, "memory", false, "Keep everything in memory instead of SQLite")
	serveCmd.Flags().BoolVar(&serveFlags.TLS, "tls", false, "Enable TLS/HTTPS")
	serveCmd.Flags().StringVar(&serveFlags.TLSCert, "cert", "", "TLS certificate file path")
	serveCmd.Flags().StringVar(&serveFlags.TLSKey, "key", "", "TLS key file path")
	serveCmd.Flags().StringVar(&serveFlags.TLSVersion, "tls-version", "", "Minimum TLS version (1.2 or 1.3)")

	RootCmd.AddCommand(serveCmd)
}

// application is the fully wired server and the pieces shutdown needs.
type application struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    store.Store
	notifier *telegram.Notifier
	server   *api.Server
	cancel   context.CancelFunc
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyServeFlags(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg, os.Stdout)
	logger.Info("configuration loaded",
		"config", globalFlags.Config,
		"database", cfg.Database.Path,
		"memory", serveFlags.Memory,
		"utls", cfg.Upstream.UTLS,
	)
	if globalFlags.Verbose {
		logger.Debug("effective configuration", "config", cfg.Redacted())
	}

	app, err := buildApplication(cfg, logger, serveFlags.Memory)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if loader != nil {
		watchConfig(ctx, loader, logger)
		defer loader.StopWatcher()
	}

	app.notifier.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Run()
	}()

	sigCh := api.SetupSignalHandler()
	select {
	case err := <-errCh:
		app.shutdown(cfg.Server.ShutdownTimeout)
		return err
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	}

	if err := app.shutdown(cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	select {
	case err := <-errCh:
		return err
	case <-time.After(cfg.Server.ShutdownTimeout):
		return nil
	}
}

func applyServeFlags(cfg *config.Config) error {
	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}
	if serveFlags.Timeout > 0 {
		cfg.Server.ShutdownTimeout = serveFlags.Timeout
	}
	if serveFlags.TLS {
		cfg.Server.TLS.Enabled = true
	}
	if serveFlags.TLSCert != "" {
		cfg.Server.TLS.CertFile = serveFlags.TLSCert
	}
	if serveFlags.TLSKey != "" {
		cfg.Server.TLS.KeyFile = serveFlags.TLSKey
	}
	if serveFlags.TLSVersion != "" {
		cfg.Server.TLS.MinVersion = serveFlags.TLSVersion
	}

	if cfg.Server.TLS.Enabled {
		if err := validateTLSConfig(cfg.Server.TLS); err != nil {
			return fmt.Errorf("TLS validation failed: %w", err)
		}
	}
	return cfg.Server.Validate()
}

// validateTLSConfig checks that the configured files exist before the
// listener tries to load them.
func validateTLSConfig(tls config.TLSConfig) error {
	if tls.CertFile == "" {
		return fmt.Errorf("TLS certificate file is required when TLS is enabled")
	}
	if tls.KeyFile == "" {
		return fmt.Errorf("TLS key file is required when TLS is enabled")
	}
	if _, err := os.Stat(tls.CertFile); os.IsNotExist(err) {
		return fmt.Errorf("TLS certificate file does not exist: %s", tls.CertFile)
	}
	if _, err := os.Stat(tls.KeyFile); os.IsNotExist(err) {
		return fmt.Errorf("TLS key file does not exist: %s", tls.KeyFile)
	}
	if tls.MinVersion != "" && tls.MinVersion != "1.2" && tls.MinVersion != "1.3" {
		return fmt.Errorf("TLS min_version must be either \"1.2\" or \"1.3\", got: %s", tls.MinVersion)
	}
	return nil
}

// buildApplication wires every component. Background work (store cleanup)
// starts here; the HTTP listener does not.
func buildApplication(cfg *config.Config, logger *logging.Logger, memory bool) (*application, error) {
	m := metrics.NewMetrics("socialsync")

	client := platforms.NewClient(cfg.Upstream,
		platforms.WithObserver(m.ObserveUpstream),
		platforms.WithQuotaObserver(m.ObserveQuota),
	)
	registry := platforms.NewRegistry(cfg.Platforms, client)
	for _, p := range unconfiguredPlatforms(cfg.Platforms) {
		logger.Warn("platform has no client registration; connect will fail", "platform", string(p))
	}

	ctx, cancel := context.WithCancel(context.Background())
	st, err := openStore(ctx, cfg, logger, memory)
	if err != nil {
		cancel()
		return nil, err
	}

	notifier := newNotifier(cfg.Telegram, logger)

	orchestrator := connect.NewOrchestrator(st, registry, cfg.FrontendURL, cfg.Connect,
		connect.WithLogger(logger),
		connect.WithRecorder(m),
		connect.WithNotifier(notifier),
	)
	aggregator := analytics.NewAggregator(st, registry, cfg.Analytics,
		analytics.WithLogger(logger),
		analytics.WithRecorder(m),
	)
	gemini := ai.NewClient(cfg.AI.Gemini, client,
		ai.WithLogger(logger),
		ai.WithRecorder(m),
	)
	if !gemini.Configured() {
		logger.Warn("gemini api key not set; AI endpoints will report failures")
	}

	server := api.NewServer(cfg, api.Dependencies{
		Store:     st,
		Connect:   orchestrator,
		Analytics: aggregator,
		AI:        gemini,
		Metrics:   m,
		Logger:    logger,
		Notifier:  notifier,
	})

	return &application{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		notifier: notifier,
		server:   server,
		cancel:   cancel,
	}, nil
}

func unconfiguredPlatforms(cfg config.PlatformsConfig) []models.Platform {
	registrations := map[models.Platform]config.PlatformConfig{
		models.PlatformTwitter:   cfg.Twitter,
		models.PlatformLinkedIn:  cfg.LinkedIn,
		models.PlatformFacebook:  cfg.Facebook,
		models.PlatformInstagram: cfg.Instagram,
	}
	var out []models.Platform
	for _, p := range models.Platforms {
		if !registrations[p].Enabled() {
			out = append(out, p)
		}
	}
	return out
}

// shutdown drains the server, which also stops the notifier and closes the store.
func (a *application) shutdown(timeout time.Duration) error {
	a.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.server.Shutdown(ctx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger, memory bool) (store.Store, error) {
	if memory {
		s := store.NewMemoryStore()
		startStateSweep(ctx, s, cfg.Connect.CleanupInterval, logger)
		return s, nil
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path,
		store.WithLogger(logger),
		store.WithRetention(cfg.Database.RetentionDays),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite store: %w", err)
	}
	s.StartCleanup(cfg.Connect.CleanupInterval)
	return s, nil
}

// startStateSweep removes expired OAuth states from stores without their
// own cleanup loop.
func startStateSweep(ctx context.Context, s store.Store, interval time.Duration, logger *logging.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := s.DeleteExpiredOAuthStates(ctx, now.UTC())
				if err != nil {
					logger.Error("oauth state sweep failed", "error", err.Error())
					continue
				}
				if n > 0 {
					logger.Debug("expired oauth states removed", "count", n)
				}
			}
		}
	}()
}

// newNotifier returns a disabled notifier when Telegram is off or the bot
// token is rejected. Notifications never block startup.
func newNotifier(cfg config.TelegramConfig, logger *logging.Logger) *telegram.Notifier {
	if !cfg.Enabled {
		return telegram.NewNotifier(cfg, nil, logger)
	}
	sender, err := telegram.NewTGBotAPIClient(cfg.BotToken)
	if err != nil {
		logger.Warn("telegram disabled: bot login failed", "error", err.Error())
		return telegram.NewNotifier(cfg, nil, logger)
	}
	return telegram.NewNotifier(cfg, sender, logger)
}

// watchConfig applies log level changes from the config file. fsnotify is
// preferred; polling covers filesystems without inotify.
func watchConfig(ctx context.Context, loader *config.Loader, logger *logging.Logger) {
	loader.SetLogger(logger)
	loader.SetOnChange(func(c *config.Config) {
		level := logging.ParseLevel(c.Server.LogLevel)
		if globalFlags.Verbose {
			level = logging.LevelDebug
		}
		logger.SetLevel(level)
		logger.Audit(ctx, logging.NewAuditEvent(logging.ConfigChange, "reload", logging.StatusSuccess).
			WithDetail("path", loader.Path()).
			WithDetail("log_level", string(level)))
	})
	if err := loader.Watch(ctx); err != nil {
		logger.Warn("config watch unavailable, polling instead", "error", err.Error())
		loader.StartWatcher(30 * time.Second)
	}
}
