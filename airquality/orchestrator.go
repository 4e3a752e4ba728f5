// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"context"
	"log/slog"
	"time"

	"github.com/smogmap/smogmap/location"
	"github.com/smogmap/smogmap/spatial"
)

// DefaultLocation is used when the user position cannot be resolved.
var DefaultLocation = spatial.Point{Lat: 50.2649, Lng: 19.0238}

// Result is the outcome of a successful FetchWithFallback.
type Result struct {
	Reading    *Reading
	Coordinate spatial.Point

	// Requested is the source asked for, Used the one that answered.
	Requested DataSource
	Used      DataSource
	FellBack  bool

	// LocationErr records why Coordinate is the default location.
	LocationErr error
}

// Orchestrator combines a location provider and a fetcher, retrying once
// with SourceAll when a specific source fails.
type Orchestrator struct {
	Fetcher  Fetcher
	Provider location.Provider

	// DefaultLocation replaces the user position when it cannot be
	// resolved. The zero value uses the package DefaultLocation.
	DefaultLocation spatial.Point

	// LocationTimeout bounds the location request.
	LocationTimeout time.Duration

	// OnFallback, when set, is called before returning a fallback result.
	OnFallback func(requested DataSource, cause error)

	Logger *slog.Logger
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.Default()
}

// coordinate never fails; errors are returned for the record only.
func (o *Orchestrator) coordinate(ctx context.Context) (spatial.Point, error) {
	fallback := o.DefaultLocation
	if fallback.IsZero() {
		fallback = DefaultLocation
	}

	if o.Provider == nil {
		return fallback, nil
	}

	point, err := location.Resolve(ctx, o.Provider, o.LocationTimeout)
	if err != nil {
		locErr := FromLocationError(err)
		o.logger().Warn("location unavailable, using default",
			"reason", locErr.Type,
			"error", err,
			"default", fallback,
		)

		return fallback, locErr
	}

	return point, nil
}

// FetchWithFallback resolves the user position and fetches a reading from
// source. When source is not SourceAll and the fetch fails, it retries
// exactly once with SourceAll at the same coordinate. The error of the last
// attempt is returned unchanged.
func (o *Orchestrator) FetchWithFallback(ctx context.Context, source DataSource) (*Result, error) {
	if !source.Valid() {
		source = SourceAll
	}

	point, locErr := o.coordinate(ctx)

	result := &Result{
		Coordinate:  point,
		Requested:   source,
		Used:        source,
		LocationErr: locErr,
	}

	reading, err := o.Fetcher.Fetch(ctx, point.Lat, point.Lng, source)
	if err == nil {
		result.Reading = reading

		return result, nil
	}

	// ALL never retries, and a caller that gave up needs no second attempt.
	if source == SourceAll || ctx.Err() != nil {
		return nil, err
	}

	o.logger().Warn("fetch failed, falling back to all sources",
		"source", source,
		"error", err,
	)

	reading, retryErr := o.Fetcher.Fetch(ctx, point.Lat, point.Lng, SourceAll)
	if retryErr != nil {
		return nil, retryErr
	}

	result.Reading = reading
	result.Used = SourceAll
	result.FellBack = true

	if o.OnFallback != nil {
		o.OnFallback(source, err)
	}

	return result, nil
}
