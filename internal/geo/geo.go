// Package geo provides great-circle distance math and the proximity
// ranking used to build "near me" result lists.
package geo

import (
	"math"
	"sort"
)

// Point is an immutable latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are finite and in range
// (lat in [-90,90], lon in [-180,180]).
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

const earthRadiusKm = 6371.0

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm returns the Haversine distance between a and b in kilometers
// on a sphere of radius 6371 km. It is symmetric and non-negative.
//
// This is straight-line distance; it understates real travel distance.
func DistanceKm(a, b Point) float64 {
	dlat := rad(b.Lat - a.Lat)
	dlon := rad(b.Lon - a.Lon)

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*
			math.Sin(dlon/2)*math.Sin(dlon/2)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Located is anything that can report a coordinate. Implementations with
// no usable coordinate may return a NaN point; Nearby excludes those.
type Located interface {
	Coordinates() Point
}

// Ranked pairs an item with its computed distance from a reference point.
type Ranked[T Located] struct {
	Item       T       `json:"item"`
	DistanceKm float64 `json:"distance_km"`
}

// Nearby returns the items within radiusKm of origin (inclusive), each
// annotated with its distance, ordered nearest first. The sort is stable:
// equidistant items keep their input order. Items whose distance is not a
// finite number are excluded rather than propagated as NaN comparisons.
// Inputs are never mutated.
func Nearby[T Located](items []T, origin Point, radiusKm float64) []Ranked[T] {
	out := make([]Ranked[T], 0, len(items))
	for _, it := range items {
		d := DistanceKm(it.Coordinates(), origin)
		if math.IsNaN(d) || math.IsInf(d, 0) || d > radiusKm {
			continue
		}
		out = append(out, Ranked[T]{Item: it, DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// Box is a latitude/longitude bounding rectangle, used as a coarse SQL
// prefilter before the exact Haversine pass.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundsAround returns a box that fully contains the circle of radiusKm
// around origin. Longitude span widens toward the poles; near the poles it
// degenerates to the full range.
func BoundsAround(origin Point, radiusKm float64) Box {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi

	dLon := 180.0
	if c := math.Cos(rad(origin.Lat)); c > 1e-9 {
		dLon = radiusKm / (earthRadiusKm * c) * 180 / math.Pi
	}

	return Box{
		MinLat: math.Max(origin.Lat-dLat, -90),
		MaxLat: math.Min(origin.Lat+dLat, 90),
		MinLon: math.Max(origin.Lon-dLon, -180),
		MaxLon: math.Min(origin.Lon+dLon, 180),
	}
}
