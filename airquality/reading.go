// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"github.com/google/uuid"
	"github.com/smogmap/smogmap/spatial"
)

// Parameter names and the unit used by the API.
const (
	ParameterPM25               = "PM2.5"
	ParameterPM10               = "PM10"
	UnitMicrogramsPerCubicMeter = "μg/m³"

	unknownSource = "Unknown"
)

// RawReading is the body returned by the air quality endpoint. Numeric and
// descriptive fields other than date, lat and long may be absent.
type RawReading struct {
	Date     string   `json:"date"`
	Lat      float64  `json:"lat"`
	Long     float64  `json:"long"`
	Measurer *string  `json:"measurer,omitempty"`
	PM10     *float64 `json:"pm10,omitempty"`
	PM25     *float64 `json:"pm25,omitempty"`
	Sensor   *string  `json:"sensor,omitempty"`
}

// Location is the position of the sensor that produced a reading.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Point converts the location into a spatial.Point.
func (l Location) Point() spatial.Point {
	return spatial.Point{Lat: l.Latitude, Lng: l.Longitude}
}

// Measurement is a single pollutant concentration.
type Measurement struct {
	Parameter  string  `json:"parameter"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	ObservedAt string  `json:"observedAt"`
}

// Reading is the normalized form of a RawReading.
type Reading struct {
	// ID is random per conversion; it only identifies the record while it
	// is displayed.
	ID           string        `json:"id"`
	Location     Location      `json:"location"`
	Measurements []Measurement `json:"measurements"`
	Source       string        `json:"source"`
	Measurer     string        `json:"measurer,omitempty"`
	Timestamp    string        `json:"timestamp"`
}

// Measurement returns the measurement for parameter, if present.
func (r *Reading) Measurement(parameter string) (Measurement, bool) {
	for _, m := range r.Measurements {
		if m.Parameter == parameter {
			return m, true
		}
	}

	return Measurement{}, false
}

// Normalize converts a raw reading. Absent pollutant values are omitted,
// never zero filled, and PM2.5 always precedes PM10.
func Normalize(raw RawReading) *Reading {
	measurements := make([]Measurement, 0, 2)

	if raw.PM25 != nil {
		measurements = append(measurements, Measurement{
			Parameter:  ParameterPM25,
			Value:      *raw.PM25,
			Unit:       UnitMicrogramsPerCubicMeter,
			ObservedAt: raw.Date,
		})
	}

	if raw.PM10 != nil {
		measurements = append(measurements, Measurement{
			Parameter:  ParameterPM10,
			Value:      *raw.PM10,
			Unit:       UnitMicrogramsPerCubicMeter,
			ObservedAt: raw.Date,
		})
	}

	source := unknownSource
	if raw.Sensor != nil && *raw.Sensor != "" {
		source = *raw.Sensor
	}

	var measurer string
	if raw.Measurer != nil {
		measurer = *raw.Measurer
	}

	return &Reading{
		ID: uuid.NewString(),
		Location: Location{
			Longitude: raw.Long,
			Latitude:  raw.Lat,
		},
		Measurements: measurements,
		Source:       source,
		Measurer:     measurer,
		Timestamp:    raw.Date,
	}
}
