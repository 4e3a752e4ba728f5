// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/smogmap/smogmap/spatial"
	"github.com/smogmap/smogmap/utils/textutils"
)

// GeocodingResult represents a geocoding result from any provider.
type GeocodingResult struct {
	Point       spatial.Point
	Confidence  string // high, medium, low
	Provider    string
	DisplayName string
}

// Geocoder turns a free form address into a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodingResult, error)
}

// GeocodedProvider reports the position of a fixed address, e.g. the one
// passed with --near. Results are memoized since an address does not move.
type GeocodedProvider struct {
	geocoder Geocoder
	address  string
	cache    *cache.Cache
}

// NewGeocodedProvider creates a provider for address.
func NewGeocodedProvider(geocoder Geocoder, address string) *GeocodedProvider {
	return &GeocodedProvider{
		geocoder: geocoder,
		address:  address,
		cache:    cache.New(24*time.Hour, time.Hour),
	}
}

// CurrentLocation implements Provider.
func (p *GeocodedProvider) CurrentLocation(ctx context.Context) (spatial.Point, error) {
	key := textutils.LowerASCIIFolding(p.address)
	if key == "" {
		return spatial.Point{}, fmt.Errorf("%w: empty address", ErrPermissionDenied)
	}

	if cached, found := p.cache.Get(key); found {
		if point, ok := cached.(spatial.Point); ok {
			return point, nil
		}
	}

	result, err := p.geocoder.Geocode(ctx, p.address)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("geocoding %q: %w", p.address, err)
	}

	slog.Debug("geocoded address",
		"address", p.address,
		"display_name", result.DisplayName,
		"confidence", result.Confidence,
		"provider", result.Provider,
	)

	p.cache.Set(key, result.Point, cache.DefaultExpiration)

	return result.Point, nil
}
