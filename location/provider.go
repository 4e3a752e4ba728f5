// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package location supplies the coordinate air quality is looked up for.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smogmap/smogmap/spatial"
)

// DefaultTimeout bounds how long callers wait for a fix.
const DefaultTimeout = 10 * time.Second

var (
	// ErrPermissionDenied the provider is not allowed to report a location.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrTimeout no fix was obtained before the deadline.
	ErrTimeout = errors.New("location timeout")
)

// Provider supplies a best-effort current coordinate.
type Provider interface {
	CurrentLocation(ctx context.Context) (spatial.Point, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (spatial.Point, error)

// CurrentLocation implements Provider.
func (f ProviderFunc) CurrentLocation(ctx context.Context) (spatial.Point, error) {
	return f(ctx)
}

// Static always reports the same coordinate.
type Static struct {
	Point spatial.Point
}

// CurrentLocation implements Provider.
func (s Static) CurrentLocation(_ context.Context) (spatial.Point, error) {
	if err := s.Point.Validate(); err != nil {
		return spatial.Point{}, fmt.Errorf("static location: %w", err)
	}

	return s.Point, nil
}

// Unavailable is used when the host has no way to locate the user.
type Unavailable struct{}

// CurrentLocation implements Provider.
func (Unavailable) CurrentLocation(_ context.Context) (spatial.Point, error) {
	return spatial.Point{}, ErrPermissionDenied
}
