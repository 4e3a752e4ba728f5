// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/smogmap/smogmap/airquality"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "smog",
	Short: "air quality near you",
	Long: `
smog retrieves PM2.5 and PM10 readings for a coordinate from the SmogMap
air quality service, classifies them into AQI categories and prints them as
cards. When the preferred data source fails, the nearest sensor from any
network is used instead.
`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var Version = "dev"

var (
	cfg           Config
	logLevelFlag  string
	clientOptions = &airquality.ClientOptions{}
)

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&logLevelFlag, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")
	f.StringVar(&cfg.DbPath, "db-path", "", "directory holding the preferences database (default from SMOGMAP_DB_PATH)")
	f.StringVar(&clientOptions.BaseURL, "base-url", "", "air quality endpoint (default from SMOGMAP_BASE_URL)")
	f.DurationVar(&clientOptions.Timeout, "timeout", airquality.DefaultTimeout, "bound for each request")
	f.BoolVar(&clientOptions.EnableHTTPTrace, "trace-http", false, "trace HTTP requests and responses to stderr")
	f.BoolVar(&clientOptions.EnableHTTPBodyTrace, "trace-http-body", false, "include bodies in the HTTP trace")
	f.Float64Var(&clientOptions.RateLimit, "rate-limit", airquality.DefaultRateLimit, "requests per second, 0 disables limiting")
	f.IntVar(&clientOptions.RateBurst, "rate-burst", airquality.DefaultRateBurst, "requests allowed in a burst")
}

// setup loads .env and the environment, then configures logging.
func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	env, err := LoadFromEnv()
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if !flags.Changed("db-path") {
		cfg.DbPath = env.DbPath
	}

	if flags.Changed("log-level") {
		if env.LogLevel, err = parseLogLevel(logLevelFlag); err != nil {
			return err
		}
	}

	if !flags.Changed("base-url") {
		clientOptions.BaseURL = env.BaseURL
	} else if err := validateBaseURL(clientOptions.BaseURL); err != nil {
		return fmt.Errorf("--base-url: %w", err)
	}

	cfg.BaseURL = clientOptions.BaseURL
	cfg.DefaultLocation = env.DefaultLocation
	cfg.LogLevel = env.LogLevel
	cfg.GoogleMapsAPIKey = env.GoogleMapsAPIKey
	cfg.GoogleProject = env.GoogleProject

	clientOptions.UserAgent = fmt.Sprintf("smogmap/%s (+https://github.com/smogmap/smogmap)", Version)

	slog.SetDefault(newLogger(cfg.LogLevel))

	return nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err once. Air quality failures get the same wording
// the cards use.
func reportError(w io.Writer, err error) {
	var aqErr *airquality.Error
	if errors.As(err, &aqErr) {
		slog.Debug("command failed", "error", err)
		fmt.Fprintln(w, airquality.HumanMessage(err))

		return
	}

	fmt.Fprintln(w, "Error:", err)
}
