// Package michelin parses the Michelin guide CSV dataset into typed
// restaurant records.
//
// Parsing is deliberately tolerant: rows missing a name or usable
// coordinates are dropped silently, so a partially damaged dataset still
// yields results. ParseStats exposes a drop count for verification.
package michelin

import (
	"math"
	"strconv"
	"strings"

	"github.com/guanwill/restaurants-nearby/internal/domain"
	"github.com/guanwill/restaurants-nearby/internal/geo"
)

// Recognized header names. Mapping is by name, case-sensitive and
// order-independent; unknown columns are ignored.
const (
	colName        = "Name"
	colAddress     = "Address"
	colLocation    = "Location"
	colPrice       = "Price"
	colCuisine     = "Cuisine"
	colLongitude   = "Longitude"
	colLatitude    = "Latitude"
	colPhone       = "PhoneNumber"
	colURL         = "Url"
	colWebsiteURL  = "WebsiteUrl"
	colAward       = "Award"
	colGreenStar   = "GreenStar"
	colFacilities  = "FacilitiesAndServices"
	colDescription = "Description"
)

// ParseStats reports how a parse pass went without changing the silent
// drop policy.
type ParseStats struct {
	Rows    int // data rows seen (header excluded)
	Dropped int // rows discarded for missing name or coordinates
}

// Parse converts raw CSV text into restaurant records. The first non-blank
// line is the header; each later line is one row. Output order equals
// input order. Malformed rows are dropped, never surfaced as errors.
func Parse(text string) ([]domain.Restaurant, ParseStats) {
	var stats ParseStats

	lines := nonBlankLines(text)
	if len(lines) < 2 {
		return nil, stats
	}

	cols := make(map[string]int, 16)
	for i, name := range splitFields(lines[0]) {
		cols[name] = i
	}

	out := make([]domain.Restaurant, 0, len(lines)-1)
	for _, line := range lines[1:] {
		stats.Rows++
		r, ok := parseRow(splitFields(line), cols)
		if !ok {
			stats.Dropped++
			continue
		}
		out = append(out, r)
	}
	return out, stats
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// splitFields tokenizes one CSV line. Fields are comma separated; a
// double-quoted field keeps literal commas and a doubled quote ("")
// inside quotes is one literal quote. Quote state toggles on every
// unescaped quote. Tokens are trimmed of surrounding whitespace.
func splitFields(line string) []string {
	var (
		fields []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if quoted && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			quoted = !quoted
		case c == ',' && !quoted:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields
}

func parseRow(fields []string, cols map[string]int) (domain.Restaurant, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return fields[i]
	}
	text := func(name string) *string {
		if s := field(name); s != "" {
			return &s
		}
		return nil
	}

	name := field(colName)
	lat, latOK := parseFloat(field(colLatitude))
	lon, lonOK := parseFloat(field(colLongitude))
	if name == "" || !latOK || !lonOK {
		return domain.Restaurant{}, false
	}

	r := domain.Restaurant{
		Name:        name,
		Address:     text(colAddress),
		Location:    text(colLocation),
		Price:       text(colPrice),
		Cuisine:     text(colCuisine),
		Phone:       text(colPhone),
		URL:         text(colURL),
		WebsiteURL:  text(colWebsiteURL),
		Award:       text(colAward),
		Facilities:  text(colFacilities),
		Description: text(colDescription),
		Coords:      geo.Point{Lat: lat, Lon: lon},
	}
	if n, err := strconv.Atoi(field(colGreenStar)); err == nil {
		r.GreenStar = &n
	}
	return r, true
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
