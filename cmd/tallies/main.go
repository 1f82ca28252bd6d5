// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the tallies CLI, which looks up
// scite.ai citation tallies for bibliographic entries.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/tally-lookup/internal/scite"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "tallies/0.1"
)

// rootCmd is the base command for the tallies CLI.
var rootCmd = &cobra.Command{
	Use:   "tallies",
	Short: "Look up scite.ai citation tallies for bibliographic entries",
	Long: `tallies fetches Smart Citation tallies (supporting, contradicting,
mentioning, unclassified) for the DOI of a bibliographic entry.

Use lookup for individual DOIs, browse to step through a library the way an
entry editor does, and report for a batch summary of a whole library.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./tallies.yaml or ~/.config/tallies/tallies.yaml)")
	flags.String("api-base", scite.DefaultAPIBase, "tallies API endpoint")
	flags.String("report-base", scite.DefaultReportBase, "prefix of the full report URL")
	flags.Duration("timeout", defaultTimeout, "HTTP request timeout")
	flags.Int("cache-size", 0, "maximum cached DOIs (0 = unbounded)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")

	for key, flag := range map[string]string{
		"service.api_base":    "api-base",
		"service.report_base": "report-base",
		"http.timeout":        "timeout",
		"cache.max_entries":   "cache-size",
		"log_level":           "log-level",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetDefault("http.user_agent", defaultUserAgent)
	viper.SetDefault("service.rate_limit_retries", 0)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("tallies")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "tallies"))
		}
	}

	viper.SetEnvPrefix("TALLIES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged flag, environment, and file settings.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = defaultTimeout
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = defaultUserAgent
	}
	if cfg.Service.APIBase == "" {
		cfg.Service.APIBase = scite.DefaultAPIBase
	}
	if cfg.Service.ReportBase == "" {
		cfg.Service.ReportBase = scite.DefaultReportBase
	}
	return cfg, nil
}

// newLogger returns a text logger on w at the named level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// setup loads configuration and installs the logger.
func setup() (types.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return types.Config{}, nil, err
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	logger, err := newLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return types.Config{}, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
