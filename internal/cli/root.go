package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/socialsync/socialsync/internal/api"
	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/logging"
)

// GlobalFlags contains global flags available for all commands
type GlobalFlags struct {
	Config  string
	DBPath  string
	Verbose bool
	JSON    bool
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "socialsync",
	Short: "SocialSync - social media account linking and analytics",
	Long: `SocialSync links Twitter, LinkedIn, Facebook and Instagram accounts
through OAuth, aggregates their analytics and generates content with Gemini.

Usage:
  socialsync [command] [flags]

Available Commands:
  serve      Start the HTTP API server (main mode)
  accounts   List or disconnect a user's linked accounts
  token      Issue a bearer token for a user
  version    Print version information

Flags:
  --config string   Path to configuration file (default "config.yaml")
  --db string       Path to SQLite database (overrides config)
  --verbose         Enable verbose output
  --json            Output in JSON format

Use "socialsync [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// InitRoot initializes the root command with global flags
func InitRoot() {
	RootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", config.ResolvePath(), "Path to configuration file")
	RootCmd.PersistentFlags().StringVar(&globalFlags.DBPath, "db", os.Getenv(config.EnvDBPath), "Path to SQLite database (overrides config)")
	RootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose output")
	RootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format")
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of SocialSync",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}

var globalFlags GlobalFlags

// GetGlobalFlags returns the global flags
func GetGlobalFlags() GlobalFlags {
	return globalFlags
}

func printVersion(w io.Writer) {
	info := GetVersionInfo()
	if globalFlags.JSON {
		_ = writeJSON(w, info)
		return
	}
	fmt.Fprintln(w, "SocialSync Version:", info.Version)
	fmt.Fprintln(w, "Go Version:", info.GoVersion)
	fmt.Fprintln(w, "OS/Arch:", info.OS+"/"+info.Arch)
	fmt.Fprintln(w, "Build Date:", info.BuildDate)
}

// VersionInfo contains version information
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	BuildDate string `json:"buildDate"`
}

// BuildDate is set with -ldflags at release time.
var BuildDate = "unknown"

// GetVersionInfo returns version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   api.Version,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		BuildDate: BuildDate,
	}
}

// loadConfig reads the file named by --config, falling back to plain
// environment variables, and applies --db.
func loadConfig() (*config.Config, *config.Loader, error) {
	cfg, loader, err := config.LoadFile(globalFlags.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if globalFlags.DBPath != "" {
		cfg.Database.Path = globalFlags.DBPath
	}
	return cfg, loader, nil
}

func newLogger(cfg *config.Config, w io.Writer) *logging.Logger {
	level := logging.ParseLevel(cfg.Server.LogLevel)
	if globalFlags.Verbose {
		level = logging.LevelDebug
	}
	return logging.NewLogger(
		logging.WithOutput(w),
		logging.WithLevel(level),
		logging.WithService("socialsync"),
	)
}
