// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smogmap/smogmap/airquality"
	"github.com/smogmap/smogmap/location"
	"github.com/smogmap/smogmap/settings"
	"github.com/smogmap/smogmap/spatial"
	"github.com/spf13/cobra"
)

// locationOptions selects where the user is.
type locationOptions struct {
	Lat, Lng float64
	Near     string
	Region   string
	Timeout  time.Duration
}

func (o *locationOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&o.Lat, "lat", 0, "latitude of the user")
	f.Float64Var(&o.Lng, "lng", 0, "longitude of the user")
	f.StringVar(&o.Near, "near", "", "address to geocode as the user location")
	f.StringVar(&o.Region, "region", "pl", "region bias for --near")
	f.DurationVar(&o.Timeout, "location-timeout", location.DefaultTimeout, "bound for resolving the user location")

	cmd.MarkFlagsRequiredTogether("lat", "lng")
	cmd.MarkFlagsMutuallyExclusive("lat", "near")
}

// provider builds the location provider for the flags. Without flags the
// user position is unknown and the default location applies.
func (o *locationOptions) provider(ctx context.Context, cmd *cobra.Command) (location.Provider, error) {
	switch {
	case cmd.Flags().Changed("lat"):
		p := spatial.Point{Lat: o.Lat, Lng: o.Lng}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("--lat/--lng: %w", err)
		}

		return location.Static{Point: p}, nil
	case o.Near != "":
		apiKey := cfg.GoogleMapsAPIKey
		if apiKey == "" {
			slog.Info("GOOGLE_MAPS_API_KEY is not set, attempting to retrieve it via ADC")

			var err error

			apiKey, err = location.APIKeyFromADC(ctx, cfg.GoogleProject)
			if err != nil {
				// the geocoder reports permission denied and the default
				// location is used
				slog.Warn("failed to retrieve API key via ADC", "error", err)
			}
		}

		return location.NewGeocodedProvider(location.NewGoogleMapsGeocoder(apiKey, o.Region), o.Near), nil
	default:
		return location.Unavailable{}, nil
	}
}

func newOrchestrator(provider location.Provider, client airquality.Fetcher, timeout time.Duration) *airquality.Orchestrator {
	return &airquality.Orchestrator{
		Fetcher:         client,
		Provider:        provider,
		DefaultLocation: cfg.DefaultLocation,
		LocationTimeout: timeout,
		OnFallback: func(requested airquality.DataSource, cause error) {
			slog.Info("preferred source failed, showing the nearest sensor from any network",
				"source", requested.Label(),
				"error", cause,
			)
		},
	}
}

// openStore opens the preferences database.
func openStore() (*settings.DuckDBStore, func() error, error) {
	db, err := settings.Open(cfg.DbPath)
	if err != nil {
		return nil, nil, err
	}

	store := settings.NewDuckDBStore(db)
	if err := store.CreateSchema(); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("creating table: %w", err), db.Close())
	}

	return store, db.Close, nil
}

// resolveSource uses the --source flag when given, the stored preference
// otherwise.
func resolveSource(ctx context.Context, flag string, store settings.Store) (airquality.DataSource, error) {
	if flag != "" {
		return airquality.FindDataSource(flag)
	}

	return store.SelectedDataSource(ctx)
}
