// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/smogmap/smogmap/location"
	"github.com/smogmap/smogmap/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	Lat, Lng float64
	Source   DataSource
}

// fakeFetcher answers from a per-source table and records every call.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []fetchCall
	errs    map[DataSource]error
	reading *Reading
}

func (f *fakeFetcher) Fetch(_ context.Context, lat, lng float64, source DataSource) (*Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fetchCall{Lat: lat, Lng: lng, Source: source})

	if err := f.errs[source]; err != nil {
		return nil, err
	}

	if f.reading != nil {
		return f.reading, nil
	}

	return Normalize(RawReading{Date: "2025-07-12 10:13:18", Lat: lat, Long: lng, Sensor: ptr(source.String())}), nil
}

func TestFetchWithFallback(t *testing.T) {
	krakow := spatial.Point{Lat: 50.0614, Lng: 19.9366}
	serverErr := ClassifyHTTPStatus(500)
	decodeErr := &Error{Type: ErrorTypeDecode}

	tests := []struct {
		name         string
		source       DataSource
		errs         map[DataSource]error
		wantCalls    []fetchCall
		wantErr      error
		wantUsed     DataSource
		wantFellBack bool
	}{
		{
			name:      "first attempt succeeds",
			source:    SourceGIOS,
			wantCalls: []fetchCall{{krakow.Lat, krakow.Lng, SourceGIOS}},
			wantUsed:  SourceGIOS,
		},
		{
			name:   "falls back to all",
			source: SourceGIOS,
			errs:   map[DataSource]error{SourceGIOS: serverErr},
			wantCalls: []fetchCall{
				{krakow.Lat, krakow.Lng, SourceGIOS},
				{krakow.Lat, krakow.Lng, SourceAll},
			},
			wantUsed:     SourceAll,
			wantFellBack: true,
		},
		{
			name:      "all never retries",
			source:    SourceAll,
			errs:      map[DataSource]error{SourceAll: serverErr},
			wantCalls: []fetchCall{{krakow.Lat, krakow.Lng, SourceAll}},
			wantErr:   serverErr,
		},
		{
			name:   "fallback fails with its own error",
			source: SourceSyngeos,
			errs:   map[DataSource]error{SourceSyngeos: serverErr, SourceAll: decodeErr},
			wantCalls: []fetchCall{
				{krakow.Lat, krakow.Lng, SourceSyngeos},
				{krakow.Lat, krakow.Lng, SourceAll},
			},
			wantErr: decodeErr,
		},
		{
			name:      "invalid source is all",
			source:    DataSource(99),
			errs:      map[DataSource]error{SourceAll: serverErr},
			wantCalls: []fetchCall{{krakow.Lat, krakow.Lng, SourceAll}},
			wantErr:   serverErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{errs: tt.errs}

			var fallbacks []DataSource

			o := &Orchestrator{
				Fetcher:  fetcher,
				Provider: location.Static{Point: krakow},
				OnFallback: func(requested DataSource, _ error) {
					fallbacks = append(fallbacks, requested)
				},
			}

			result, err := o.FetchWithFallback(context.Background(), tt.source)

			if diff := cmp.Diff(tt.wantCalls, fetcher.calls); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}

			if tt.wantErr != nil {
				assert.Nil(t, result)
				assert.Same(t, tt.wantErr, err)
				assert.Empty(t, fallbacks)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, krakow, result.Coordinate)
			assert.Equal(t, tt.wantUsed, result.Used)
			assert.Equal(t, tt.wantFellBack, result.FellBack)
			assert.Equal(t, tt.source, result.Requested)
			assert.NoError(t, result.LocationErr)
			assert.NotNil(t, result.Reading)

			if tt.wantFellBack {
				assert.Equal(t, []DataSource{tt.source}, fallbacks)
			} else {
				assert.Empty(t, fallbacks)
			}
		})
	}
}

func TestFetchWithFallbackEmptyReadingIsSuccess(t *testing.T) {
	fetcher := &fakeFetcher{reading: Normalize(RawReading{Date: "2025-07-12", Lat: 50, Long: 19})}
	o := &Orchestrator{Fetcher: fetcher, Provider: location.Static{Point: spatial.Point{Lat: 50, Lng: 19}}}

	result, err := o.FetchWithFallback(context.Background(), SourceLookO2)
	require.NoError(t, err)
	assert.Empty(t, result.Reading.Measurements)
	assert.False(t, result.FellBack)
	assert.Len(t, fetcher.calls, 1)
}

func TestFetchWithFallbackLocationFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider location.Provider
		fallback spatial.Point
		want     spatial.Point
		wantType ErrorType
	}{
		{
			name:     "denied",
			provider: location.Unavailable{},
			want:     DefaultLocation,
			wantType: ErrorTypeLocationPermissionDenied,
		},
		{
			name: "timeout",
			provider: location.ProviderFunc(func(ctx context.Context) (spatial.Point, error) {
				<-ctx.Done()

				return spatial.Point{}, ctx.Err()
			}),
			fallback: spatial.Point{Lat: 54.6872, Lng: 25.2797},
			want:     spatial.Point{Lat: 54.6872, Lng: 25.2797},
			wantType: ErrorTypeLocationTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{}
			o := &Orchestrator{
				Fetcher:         fetcher,
				Provider:        tt.provider,
				DefaultLocation: tt.fallback,
				LocationTimeout: 20 * time.Millisecond,
			}

			result, err := o.FetchWithFallback(context.Background(), SourceGIOS)
			require.NoError(t, err)

			require.Len(t, fetcher.calls, 1)
			assert.Equal(t, fetchCall{tt.want.Lat, tt.want.Lng, SourceGIOS}, fetcher.calls[0])
			assert.Equal(t, tt.want, result.Coordinate)

			var aqErr *Error
			require.ErrorAs(t, result.LocationErr, &aqErr)
			assert.Equal(t, tt.wantType, aqErr.Type)
		})
	}
}

func TestFetchWithFallbackNoProvider(t *testing.T) {
	fetcher := &fakeFetcher{}
	o := &Orchestrator{Fetcher: fetcher}

	result, err := o.FetchWithFallback(context.Background(), SourceAll)
	require.NoError(t, err)
	assert.Equal(t, DefaultLocation, result.Coordinate)
	assert.NoError(t, result.LocationErr)
}

type fetcherFunc func(ctx context.Context, lat, lng float64, source DataSource) (*Reading, error)

func (f fetcherFunc) Fetch(ctx context.Context, lat, lng float64, source DataSource) (*Reading, error) {
	return f(ctx, lat, lng, source)
}

func TestFetchWithFallbackCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sources []DataSource

	fetcher := fetcherFunc(func(ctx context.Context, _, _ float64, source DataSource) (*Reading, error) {
		sources = append(sources, source)

		// the caller gives up while the request is in flight
		cancel()

		return nil, transportError(ctx.Err())
	})

	fallbacks := 0
	o := &Orchestrator{
		Fetcher:    fetcher,
		Provider:   location.Static{Point: katowice},
		OnFallback: func(DataSource, error) { fallbacks++ },
	}

	result, err := o.FetchWithFallback(ctx, SourceGIOS)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, IsTransportError(err), err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []DataSource{SourceGIOS}, sources)
	assert.Zero(t, fallbacks)
}
