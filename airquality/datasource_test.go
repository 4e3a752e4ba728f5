// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataSource(t *testing.T) {
	tests := []struct {
		in   string
		want DataSource
	}{
		{"ALL", SourceAll},
		{"GIOS", SourceGIOS},
		{"LUFTDATEN", SourceLuftdaten},
		{"LOOKO2", SourceLookO2},
		{"AWAIR_KATO", SourceAwairKato},
		{"OPENAQ_LT", SourceOpenAQLT},
		{"SYNGEOS", SourceSyngeos},
		{" GIOS ", SourceGIOS},
		{"", SourceAll},
		{"gios", SourceAll},
		{"AIRLY", SourceAll},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDataSource(tt.in))
		})
	}
}

func TestDataSourceWireRoundTrip(t *testing.T) {
	for _, ds := range DataSources() {
		assert.Equal(t, ds, ParseDataSource(ds.String()), ds.String())
		assert.NotEmpty(t, ds.Label())
		assert.NotEmpty(t, ds.Description())
	}
}

func TestDataSourceInvalid(t *testing.T) {
	ds := DataSource(42)
	assert.False(t, ds.Valid())
	assert.Equal(t, "DataSource(42)", ds.String())

	_, err := ds.MarshalText()
	assert.Error(t, err)
}

func TestDataSourceJSON(t *testing.T) {
	type payload struct {
		Source DataSource `json:"source"`
	}

	b, err := json.Marshal(payload{Source: SourceAwairKato})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"AWAIR_KATO"}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"source":"OPENAQ_LT"}`), &p))
	assert.Equal(t, SourceOpenAQLT, p.Source)

	require.NoError(t, json.Unmarshal([]byte(`{"source":"NOPE"}`), &p))
	assert.Equal(t, SourceAll, p.Source)
}

func TestFindDataSource(t *testing.T) {
	tests := []struct {
		q       string
		want    DataSource
		wantErr error
	}{
		{q: "GIOS", want: SourceGIOS},
		{q: "gios", want: SourceGIOS},
		{q: "GIOŚ", want: SourceGIOS},
		{q: "awair-kato", want: SourceAwairKato},
		{q: "Awair Katowice", want: SourceAwairKato},
		{q: "awair", want: SourceAwairKato},
		{q: "lo", want: SourceLookO2},
		{q: "luft", want: SourceLuftdaten},
		{q: "openaq", want: SourceOpenAQLT},
		{q: "all sources", want: SourceAll},
		{q: "l", wantErr: errMultipleMatches},
		{q: "a", wantErr: errMultipleMatches},
		{q: "airly", wantErr: errDataSourceNotFound},
		{q: "---", wantErr: errDataSourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			got, err := FindDataSource(tt.q)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindDataSourceEmpty(t *testing.T) {
	_, err := FindDataSource("  ")
	assert.Error(t, err)
}

func TestEachDataSource(t *testing.T) {
	var wires []string

	err := EachDataSource(func(ds DataSource) error {
		wires = append(wires, ds.String())

		return nil
	})
	require.NoError(t, err)

	want := []string{"ALL", "GIOS", "LUFTDATEN", "LOOKO2", "AWAIR_KATO", "OPENAQ_LT", "SYNGEOS"}
	if diff := cmp.Diff(want, wires); diff != "" {
		t.Errorf("EachDataSource() mismatch (-want +got):\n%s", diff)
	}

	stop := errors.New("stop")
	calls := 0
	err = EachDataSource(func(DataSource) error {
		calls++

		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
