package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/retryfetch/internal/control"
	"github.com/vietddude/retryfetch/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "retryfetch",
	Short: "Retrying API client and error log for the agency site",
	Long: `retryfetch wraps outbound API calls in bounded retries with exponential
backoff, classifies failures, and keeps a diagnostic trail of errors.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads .env and the config file, then initializes logging. A
// missing config file falls back to defaults.
func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		return nil, err
	}

	// Setup logging
	slogLevel := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}
	if isDebug {
		slogLevel = slog.LevelDebug
		cfg.Site.Debug = true
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
	return cfg, nil
}

// newApp loads configuration and wires the application.
func newApp(ctx context.Context) (*control.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		return nil, err
	}
	return app, nil
}
