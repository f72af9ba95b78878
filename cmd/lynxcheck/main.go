package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/lynxcheck/internal/checker"
	"github.com/dshills/lynxcheck/internal/config"
	"github.com/dshills/lynxcheck/internal/engine"
	"github.com/dshills/lynxcheck/internal/logging"
	"github.com/dshills/lynxcheck/internal/mcp"
	"github.com/dshills/lynxcheck/internal/metrics"
	"github.com/dshills/lynxcheck/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath  string
	dbPath      string
	logLevel    string
	development bool
	parallel    int
	policy      string
)

// errFindings makes the process exit with status 1 without printing
var errFindings = errors.New("findings reported")

var rootCmd = &cobra.Command{
	Use:   "lynxcheck",
	Short: "Grammar and spell checking for Go comments, string literals and Markdown",
	Long: `lynxcheck checks prose in Go source and Markdown files against a remote
grammar checking service.

Run "lynxcheck serve" to expose the checker to MCP clients over stdio, or
"lynxcheck check" for a one-shot check of a file, a directory or stdin.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "lynxcheck")
		fmt.Fprintf(out, "Version: %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML configuration file")
	flags.StringVar(&dbPath, "db", "", "settings database path (default "+config.DefaultDBPath+")")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&development, "dev", false, "human-readable development logging")
	flags.IntVar(&parallel, "parallel", 0, "maximum concurrent background sessions")
	flags.StringVar(&policy, "protocol-error-policy", "", "fail-fast or hang")

	rootCmd.AddCommand(serveCmd, checkCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app holds the components shared by the commands
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   storage.Storage
	checker *checker.Service
	metrics *metrics.Collector
}

// loadConfig reads the file and environment, then applies explicit flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("dev") {
		cfg.LogDevelopment = development
	}
	if flags.Changed("parallel") {
		cfg.ParallelSessions = parallel
	}
	if flags.Changed("protocol-error-policy") {
		cfg.ProtocolErrorPolicy = policy
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, err
	}

	path, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	pol, _ := cfg.Policy()
	collector := metrics.New(prometheus.NewRegistry())
	svc, err := checker.New(checker.Config{
		Settings: checker.Settings{
			CacheLifespan:    cfg.CacheLifespan,
			Parallelism:      cfg.ParallelSessions,
			DebounceInterval: cfg.DebounceInterval,
		},
		Endpoint:      cfg.SocketURL,
		AuthURL:       cfg.AuthURL,
		Profile:       engine.DefaultProfile(),
		Policy:        pol,
		DialAttempts:  cfg.DialAttempts,
		CacheCapacity: cfg.CacheCapacity,
		Progress: func(status string) {
			logger.Debug("sync check", zap.String("status", status))
		},
		Logger:  logger.Named("checker"),
		Metrics: collector,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create checker: %w", err)
	}

	logger.Info("lynxcheck starting",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("db", path),
		zap.String("policy", pol.String()))

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		checker: svc,
		metrics: collector,
	}, nil
}

// loadSettings applies the persisted settings to the checker and returns them
func (a *app) loadSettings(ctx context.Context) (*storage.Settings, error) {
	settings, err := storage.LoadOrSeed(ctx, a.store, mcp.StoredSettings(a.checker.Settings()))
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := a.checker.Reconfigure(ctx, mcp.ServiceSettings(settings)); err != nil {
		return nil, fmt.Errorf("failed to apply settings: %w", err)
	}
	return settings, nil
}

// close drains running sessions and releases the database
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.checker.Close(ctx); err != nil {
		a.logger.Warn("checker did not stop cleanly", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}
