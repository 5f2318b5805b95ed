package domain

import (
	"math"

	"github.com/guanwill/restaurants-nearby/internal/geo"
)

// Place is a normalized record from the remote place-search provider.
// All optional provider fields are nil when absent; consumers must treat
// a nil Rating as "not rated", never as zero.
type Place struct {
	ID          *string
	Name        string
	Address     *string
	Types       []string
	PrimaryType *string
	Rating      *float64
	RatingCount *int
	Coords      *geo.Point
	Reviews     []Review
	RawJSON     []byte // full provider payload
}

// Coordinates satisfies geo.Located. A place without a usable location
// reports a NaN point, which the proximity ranker excludes.
func (p Place) Coordinates() geo.Point {
	if p.Coords == nil {
		return geo.Point{Lat: math.NaN(), Lon: math.NaN()}
	}
	return *p.Coords
}

// Review is a normalized provider review. Author is never empty; the
// mapper falls back to "Anonymous" when no source field resolves.
type Review struct {
	Author      string
	Rating      *float64
	Text        *string
	When        string // human description, e.g. "3 weeks ago"
	PublishedAt int64  // epoch seconds, 0 if the publish time was unparsable; sort key only
}
