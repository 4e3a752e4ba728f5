// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smogmap/smogmap/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGeocoder(t *testing.T, status int, body string) (*GoogleMapsGeocoder, *[]*http.Request) {
	t.Helper()

	var requests []*http.Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	g := NewGoogleMapsGeocoder("test-key", "pl")
	g.baseURL = srv.URL

	return g, &requests
}

func TestGoogleMapsGeocoder(t *testing.T) {
	g, requests := newTestGeocoder(t, http.StatusOK, `{
		"status": "OK",
		"results": [{
			"formatted_address": "Katowice, Poland",
			"geometry": {
				"location": {"lat": 50.2649, "lng": 19.0238},
				"location_type": "APPROXIMATE"
			}
		}]
	}`)

	got, err := g.Geocode(context.Background(), "Katowice")
	require.NoError(t, err)

	assert.Equal(t, spatial.Point{Lat: 50.2649, Lng: 19.0238}, got.Point)
	assert.Equal(t, "low", got.Confidence)
	assert.Equal(t, "google_maps", got.Provider)
	assert.Equal(t, "Katowice, Poland", got.DisplayName)

	require.Len(t, *requests, 1)
	q := (*requests)[0].URL.Query()
	assert.Equal(t, "Katowice", q.Get("address"))
	assert.Equal(t, "test-key", q.Get("key"))
	assert.Equal(t, "pl", q.Get("region"))
}

func TestGoogleMapsGeocoderErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDenied bool
	}{
		{name: "zero results", status: http.StatusOK, body: `{"status":"ZERO_RESULTS","results":[]}`},
		{name: "request denied", status: http.StatusOK, body: `{"status":"REQUEST_DENIED","error_message":"bad key"}`, wantDenied: true},
		{name: "forbidden", status: http.StatusForbidden, body: ``, wantDenied: true},
		{name: "server error", status: http.StatusInternalServerError, body: ``},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGeocoder(t, tt.status, tt.body)

			_, err := g.Geocode(context.Background(), "Nowhere")
			require.Error(t, err)
			assert.Equal(t, tt.wantDenied, errors.Is(err, ErrPermissionDenied), err)
		})
	}
}

func TestGoogleMapsGeocoderWithoutKey(t *testing.T) {
	_, err := NewGoogleMapsGeocoder("", "pl").Geocode(context.Background(), "Katowice")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

type countingGeocoder struct {
	calls  int
	result *GeocodingResult
	err    error
}

func (c *countingGeocoder) Geocode(_ context.Context, _ string) (*GeocodingResult, error) {
	c.calls++

	return c.result, c.err
}

func TestGeocodedProviderMemoizes(t *testing.T) {
	g := &countingGeocoder{result: &GeocodingResult{Point: spatial.Point{Lat: 50.06, Lng: 19.94}}}
	p := NewGeocodedProvider(g, "  Kraków ")

	for range 3 {
		got, err := p.CurrentLocation(context.Background())
		require.NoError(t, err)
		assert.Equal(t, spatial.Point{Lat: 50.06, Lng: 19.94}, got)
	}

	assert.Equal(t, 1, g.calls)
}

func TestGeocodedProviderErrors(t *testing.T) {
	failing := &countingGeocoder{err: errors.New("boom")}
	p := NewGeocodedProvider(failing, "Kraków")

	_, err := p.CurrentLocation(context.Background())
	require.Error(t, err)

	// failures are not memoized
	_, err = p.CurrentLocation(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, failing.calls)

	_, err = NewGeocodedProvider(failing, "   ").CurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
