// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"fmt"
	"io"
	"strconv"

	"github.com/smogmap/smogmap/spatial"
	"github.com/smogmap/smogmap/utils/textutils"
)

// CardMeasurement is a measurement with its classification.
type CardMeasurement struct {
	Measurement
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Color    Color    `json:"color"`
}

// Card is the presentation of one reading.
type Card struct {
	ReadingID    string            `json:"readingId"`
	Source       string            `json:"source"`
	Measurer     string            `json:"measurer,omitempty"`
	Timestamp    string            `json:"timestamp"`
	Location     spatial.Point     `json:"location"`
	Cell         string            `json:"cell,omitempty"`
	Distance     float64           `json:"distanceMeters"`
	Measurements []CardMeasurement `json:"measurements"`
}

// NewCard classifies reading and measures its distance from origin.
func NewCard(reading *Reading, origin spatial.Point) *Card {
	at := reading.Location.Point()

	card := &Card{
		ReadingID:    reading.ID,
		Source:       reading.Source,
		Measurer:     reading.Measurer,
		Timestamp:    reading.Timestamp,
		Location:     at,
		Distance:     origin.HaversineDistance(&at),
		Measurements: make([]CardMeasurement, 0, len(reading.Measurements)),
	}

	if cell, err := at.Cell(spatial.CardResolution); err == nil {
		card.Cell = cell.String()
	}

	for _, m := range reading.Measurements {
		// Parameters always come from Normalize, so Classify cannot fail.
		category, _ := Classify(m.Parameter, m.Value)
		card.Measurements = append(card.Measurements, CardMeasurement{
			Measurement: m,
			Category:    category,
			Label:       category.String(),
			Color:       category.Color(),
		})
	}

	return card
}

// Worst returns the most severe category on the card, and false when the
// card has no measurements.
func (c *Card) Worst() (Category, bool) {
	if len(c.Measurements) == 0 {
		return Good, false
	}

	worst := Good
	for _, m := range c.Measurements {
		worst = max(worst, m.Category)
	}

	return worst, true
}

// WriteText renders the card for a terminal.
func (c *Card) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s", c.Source)
	if err != nil {
		return err
	}

	if c.Measurer != "" {
		if _, err = fmt.Fprintf(w, " (%s)", c.Measurer); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "\n  %s at %s, %s away\n",
		c.Timestamp, c.Location, textutils.FormatMeters(c.Distance))
	if err != nil {
		return err
	}

	if len(c.Measurements) == 0 {
		_, err = fmt.Fprintln(w, "  no measurements")

		return err
	}

	for _, m := range c.Measurements {
		_, err = fmt.Fprintf(w, "  %-5s %8s %s  %s [%s]\n",
			m.Parameter,
			strconv.FormatFloat(m.Value, 'f', 2, 64),
			m.Unit,
			m.Label,
			m.Color,
		)
		if err != nil {
			return err
		}
	}

	return nil
}
