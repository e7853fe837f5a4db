// Package stilt discovers STILT model stations from the results archive,
// filters them with composable predicates, and fetches per-station
// time-series results and footprint rasters.
package stilt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/icos-carbon-portal/cpclient/geo"
)

// ICOSInfo is the metadata of an ICOS atmosphere station attached to a STILT
// station.
type ICOSInfo struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Country        string  `json:"country"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Elevation      float64 `json:"elevation"`
	SamplingHeight float64 `json:"samplingHeight"`
}

// ICOSRegistry resolves ICOS atmosphere stations by id. The portal's station
// catalogue implements it; tests use static maps.
type ICOSRegistry interface {
	// AtmosphereStation returns the atmosphere station with the given
	// 3-character id.
	AtmosphereStation(id string) (ICOSInfo, bool)
}

// DobjLister lists atmospheric data products for an ICOS station at a
// sampling height. The portal's metadata service implements it.
type DobjLister interface {
	DobjList(ctx context.Context, icosID string, samplingHeight float64) ([]string, error)
}

// Geoinfo carries the per-country enrichment of a station.
type Geoinfo struct {
	CountryCode string      `json:"countryCode"`
	Country     geo.Country `json:"country"`
}

// Station is one STILT station as discovered at catalog-build time. Years
// and MonthsByYear are a snapshot of the directory content.
type Station struct {
	ID       string `json:"id"`
	LocIdent string `json:"locIdent"`

	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt int     `json:"alt"`

	Name string `json:"name"`

	// ICOS is the attached ICOS atmosphere station, nil when the id prefix
	// matched none.
	ICOS *ICOSInfo `json:"icos,omitempty"`

	// Years holds the available years, ascending.
	Years []int `json:"years"`

	// MonthsByYear maps a year to its available two-digit months,
	// ascending.
	MonthsByYear map[int][]string `json:"monthsByYear"`

	Geoinfo Geoinfo `json:"geoinfo"`
}

// HasMonth reports whether the station has results for the given year and
// month.
func (s *Station) HasMonth(year, month int) bool {
	mm := fmt.Sprintf("%02d", month)
	for _, m := range s.MonthsByYear[year] {
		if m == mm {
			return true
		}
	}
	return false
}

// ParseLocIdent decodes a coded location string of the form
// "<lat>{N|S}x<lon>{E|W}x<alt>", e.g. "47.42Nx010.98Ex00730". N and E are
// positive, S and W negative; alt is integer metres.
func ParseLocIdent(s string) (lat, lon float64, alt int, err error) {
	parts := strings.Split(s, "x")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed location %q", s)
	}

	lat, err = parseCoord(parts[0], 'N', 'S')
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed location %q: %w", s, err)
	}
	lon, err = parseCoord(parts[1], 'E', 'W')
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed location %q: %w", s, err)
	}
	alt, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed location %q: %w", s, err)
	}
	return lat, lon, alt, nil
}

func parseCoord(s string, positive, negative byte) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	sign := 1.0
	switch s[len(s)-1] {
	case positive:
	case negative:
		sign = -1.0
	default:
		return 0, fmt.Errorf("coordinate %q lacks %c/%c suffix", s, positive, negative)
	}
	v, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil {
		return 0, err
	}
	return sign * v, nil
}

// FormatLocIdent encodes a position back into the coded location string.
// It is the inverse of ParseLocIdent for the stored precision.
func FormatLocIdent(lat, lon float64, alt int) string {
	latSuffix, lonSuffix := byte('N'), byte('E')
	if lat < 0 {
		latSuffix = 'S'
		lat = -lat
	}
	if lon < 0 {
		lonSuffix = 'W'
		lon = -lon
	}
	return fmt.Sprintf("%.2f%cx%06.2f%cx%05d", lat, latSuffix, lon, lonSuffix, alt)
}
