package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/guanwill/restaurants-nearby/internal/geo"
)

const mapsSearchBase = "https://www.google.com/maps/search/?api=1&query="

// MapsURL builds a map-service deep link for a place. It prefers a
// search-by-text URL from "name, address"; when neither is available it
// falls back to a coordinate query, and returns "" if there is nothing
// to link to.
func MapsURL(name, address string, coords *geo.Point) string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(name); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(address); s != "" {
		parts = append(parts, s)
	}
	if len(parts) > 0 {
		return mapsSearchBase + url.QueryEscape(strings.Join(parts, ", "))
	}
	if coords != nil {
		return mapsSearchBase + url.QueryEscape(fmt.Sprintf("%f,%f", coords.Lat, coords.Lon))
	}
	return ""
}
