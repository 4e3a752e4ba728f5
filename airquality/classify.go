// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"fmt"
	"math"
)

// Category is the AQI severity bucket of a concentration.
type Category int

// AQI categories, from least to most severe.
const (
	Good Category = iota
	Moderate
	UnhealthySensitive
	Unhealthy
	VeryUnhealthy
	Hazardous
)

// Color is the display token shared by every view.
type Color string

// Display colors.
const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
	ColorPurple Color = "purple"
	ColorMaroon Color = "maroon"
)

type categoryInfo struct {
	key   string
	name  string
	color Color
}

var categories = [...]categoryInfo{
	Good:               {key: "good", name: "Good", color: ColorGreen},
	Moderate:           {key: "moderate", name: "Moderate", color: ColorYellow},
	UnhealthySensitive: {key: "unhealthy_sensitive", name: "Unhealthy for Sensitive Groups", color: ColorOrange},
	Unhealthy:          {key: "unhealthy", name: "Unhealthy", color: ColorRed},
	VeryUnhealthy:      {key: "very_unhealthy", name: "Very Unhealthy", color: ColorPurple},
	Hazardous:          {key: "hazardous", name: "Hazardous", color: ColorMaroon},
}

// Lower bounds (inclusive) of Moderate..Hazardous.
var (
	pm25Breakpoints = [...]float64{12, 35.4, 55.4, 150.4, 250.4}
	pm10Breakpoints = [...]float64{54, 154, 254, 354, 424}
)

// String returns the display name of the category.
func (c Category) String() string {
	if c < Good || c > Hazardous {
		return fmt.Sprintf("Category(%d)", int(c))
	}

	return categories[c].name
}

// Key returns a stable snake_case identifier.
func (c Category) Key() string {
	if c < Good || c > Hazardous {
		return ""
	}

	return categories[c].key
}

// Color returns the display color of the category.
func (c Category) Color() Color {
	if c < Good || c > Hazardous {
		return ""
	}

	return categories[c].color
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if c < Good || c > Hazardous {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}

	return []byte(c.Key()), nil
}

func bucket(v float64, breakpoints []float64) Category {
	c := Good

	for _, lower := range breakpoints {
		if v < lower {
			break
		}

		c++
	}

	return c
}

// ClassifyPM25 buckets a PM2.5 concentration in μg/m³. Negative readings,
// which some low-cost sensors emit, are treated as Good.
func ClassifyPM25(v float64) Category {
	return bucket(v, pm25Breakpoints[:])
}

// ClassifyPM10 buckets a PM10 concentration in μg/m³.
func ClassifyPM10(v float64) Category {
	return bucket(v, pm10Breakpoints[:])
}

// Classify dispatches on the parameter name.
func Classify(parameter string, v float64) (Category, error) {
	if math.IsNaN(v) {
		return Good, fmt.Errorf("classifying %s: value is NaN", parameter)
	}

	switch parameter {
	case ParameterPM25:
		return ClassifyPM25(v), nil
	case ParameterPM10:
		return ClassifyPM10(v), nil
	default:
		return Good, fmt.Errorf("unknown parameter %q", parameter)
	}
}
