// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package airquality

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smogmap/smogmap/utils/textutils"
)

var (
	errMultipleMatches    = errors.New("multiple matches")
	errDataSourceNotFound = errors.New("data source not found")
)

// DataSource identifies which upstream sensor network the API should query.
// The zero value is ALL.
type DataSource int

// Known data sources. The set is closed: the API rejects anything else.
const (
	SourceAll DataSource = iota
	SourceGIOS
	SourceLuftdaten
	SourceLookO2
	SourceAwairKato
	SourceOpenAQLT
	SourceSyngeos
)

type dataSourceInfo struct {
	wire  string // value sent in the datasource query parameter
	label string // human name
	about string
}

var dataSources = []dataSourceInfo{
	SourceAll:       {wire: "ALL", label: "All sources", about: "Nearest sensor from any network"},
	SourceGIOS:      {wire: "GIOS", label: "GIOŚ", about: "Główny Inspektorat Ochrony Środowiska reference stations"},
	SourceLuftdaten: {wire: "LUFTDATEN", label: "Luftdaten", about: "Sensor.Community citizen sensors"},
	SourceLookO2:    {wire: "LOOKO2", label: "LookO2", about: "LookO2 low-cost sensor network"},
	SourceAwairKato: {wire: "AWAIR_KATO", label: "Awair Katowice", about: "Awair sensors deployed in Katowice"},
	SourceOpenAQLT:  {wire: "OPENAQ_LT", label: "OpenAQ LT", about: "OpenAQ feed for Lithuania"},
	SourceSyngeos:   {wire: "SYNGEOS", label: "Syngeos", about: "Syngeos municipal sensor network"},
}

// String returns the wire name, e.g. "ALL".
func (s DataSource) String() string {
	if !s.Valid() {
		return fmt.Sprintf("DataSource(%d)", int(s))
	}

	return dataSources[s].wire
}

// Label returns the human readable name of the source.
func (s DataSource) Label() string {
	if !s.Valid() {
		return s.String()
	}

	return dataSources[s].label
}

// Description returns a one line description of the network.
func (s DataSource) Description() string {
	if !s.Valid() {
		return ""
	}

	return dataSources[s].about
}

// Valid reports whether s belongs to the closed set.
func (s DataSource) Valid() bool {
	return s >= 0 && int(s) < len(dataSources)
}

// MarshalText implements encoding.TextMarshaler.
func (s DataSource) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid data source %d", int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// to SourceAll, the same way a stored preference is read.
func (s *DataSource) UnmarshalText(text []byte) error {
	*s = ParseDataSource(string(text))

	return nil
}

// ParseDataSource maps a wire name to a DataSource. Absent or unrecognized
// values yield SourceAll.
func ParseDataSource(wire string) DataSource {
	wire = strings.TrimSpace(wire)
	for i, ds := range dataSources {
		if ds.wire == wire {
			return DataSource(i)
		}
	}

	return SourceAll
}

// FindDataSource resolves a user query: exact wire name first, then a
// case and accent insensitive match on wire name or label, then a unique
// prefix of either.
func FindDataSource(q string) (DataSource, error) {
	if strings.TrimSpace(q) == "" {
		return SourceAll, errors.New("empty data source query")
	}

	for i, ds := range dataSources {
		if ds.wire == q {
			return DataSource(i), nil
		}
	}

	key := textutils.Key(q)
	if key == "" {
		return SourceAll, fmt.Errorf("%w: %q", errDataSourceNotFound, q)
	}

	for i, ds := range dataSources {
		if textutils.Key(ds.wire) == key || textutils.Key(ds.label) == key {
			return DataSource(i), nil
		}
	}

	found := -1

	for i, ds := range dataSources {
		if strings.HasPrefix(textutils.Key(ds.wire), key) || strings.HasPrefix(textutils.Key(ds.label), key) {
			if found != -1 {
				return SourceAll, fmt.Errorf("%w for %q: %q, %q", errMultipleMatches, q, dataSources[found].wire, ds.wire)
			}

			found = i
		}
	}

	if found == -1 {
		return SourceAll, fmt.Errorf("%w: %q", errDataSourceNotFound, q)
	}

	return DataSource(found), nil
}

// EachDataSource calls callback for every known source in declaration order.
func EachDataSource(callback func(DataSource) error) error {
	for i := range dataSources {
		if err := callback(DataSource(i)); err != nil {
			return err
		}
	}

	return nil
}

// DataSources returns every known source in declaration order.
func DataSources() []DataSource {
	ret := make([]DataSource, 0, len(dataSources))
	for i := range dataSources {
		ret = append(ret, DataSource(i))
	}

	return ret
}
