// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/smogmap/smogmap/airquality"
	"github.com/smogmap/smogmap/spatial"
)

// Config is the environment driven configuration. Command line flags take
// precedence over it.
type Config struct {
	BaseURL          string
	DefaultLocation  spatial.Point
	DbPath           string
	LogLevel         slog.Level
	GoogleMapsAPIKey string
	GoogleProject    string
}

// LoadFromEnv reads and validates the configuration.
func LoadFromEnv() (Config, error) {
	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}

	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	baseURL := strings.TrimSpace(os.Getenv("SMOGMAP_BASE_URL"))
	if baseURL == "" {
		baseURL = airquality.DefaultBaseURL
	}

	if err := validateBaseURL(baseURL); err != nil {
		return Config{}, fmt.Errorf("SMOGMAP_BASE_URL: %w", err)
	}

	def, err := parseDefaultLocation(os.Getenv("SMOGMAP_DEFAULT_LAT"), os.Getenv("SMOGMAP_DEFAULT_LNG"))
	if err != nil {
		return Config{}, err
	}

	dbPath := strings.TrimSpace(os.Getenv("SMOGMAP_DB_PATH"))
	if dbPath == "" {
		dbPath = "db"
	}

	return Config{
		BaseURL:          baseURL,
		DefaultLocation:  def,
		DbPath:           dbPath,
		LogLevel:         level,
		GoogleMapsAPIKey: strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY")),
		GoogleProject:    strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT")),
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func validateBaseURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http or https url", s)
	}

	if u.Host == "" {
		return fmt.Errorf("%q has no host", s)
	}

	return nil
}

// parseDefaultLocation accepts both coordinates or neither.
func parseDefaultLocation(latStr, lngStr string) (spatial.Point, error) {
	latStr, lngStr = strings.TrimSpace(latStr), strings.TrimSpace(lngStr)
	if latStr == "" && lngStr == "" {
		return airquality.DefaultLocation, nil
	}

	if latStr == "" || lngStr == "" {
		return spatial.Point{}, errors.New("SMOGMAP_DEFAULT_LAT and SMOGMAP_DEFAULT_LNG must be set together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("SMOGMAP_DEFAULT_LAT %q: %w", latStr, err)
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("SMOGMAP_DEFAULT_LNG %q: %w", lngStr, err)
	}

	p := spatial.Point{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return spatial.Point{}, fmt.Errorf("default location: %w", err)
	}

	return p, nil
}
