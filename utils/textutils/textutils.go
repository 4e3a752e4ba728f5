// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils provides helpers to compare human entered names.
package textutils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters that carry no combining mark under NFD.
var unfoldable = strings.NewReplacer("ł", "l", "đ", "d", "ø", "o", "ß", "ss")

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		unfoldable.Replace(strings.TrimSpace(strings.ToLower(s))),
	)

	return s
}

// Key folds s and drops everything but letters and digits, so that
// "Awair Kato", "awair-kato" and "AWAIR_KATO" compare equal.
func Key(s string) string {
	s = LowerASCIIFolding(s)

	var sb strings.Builder

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// FormatMeters renders a distance for humans: meters below one kilometer,
// kilometers with one decimal above.
func FormatMeters(m float64) string {
	if m < 1000 {
		return strconv.FormatFloat(m, 'f', 0, 64) + " m"
	}

	return strconv.FormatFloat(m/1000, 'f', 1, 64) + " km"
}
