package domain

import (
	"context"

	"github.com/guanwill/restaurants-nearby/internal/geo"
)

type RestaurantRepository interface {
	// Write paths
	UpsertRestaurants(ctx context.Context, rs []Restaurant) error
	LogIngest(ctx context.Context, source string, kept, dropped int) error

	// Read paths
	ListWithinBox(ctx context.Context, b geo.Box) ([]Restaurant, error)
	CountRestaurants(ctx context.Context) (int64, error)
}

// PlacesClient issues one nearby search against the remote provider and
// returns the raw, loosely-typed place payloads. Normalization happens in
// the app layer, not here.
type PlacesClient interface {
	SearchNearby(ctx context.Context, origin geo.Point, radiusMeters float64, includedType string, maxResults int) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries

// NearbyQuery asks for everything within RadiusKm of Origin. MinRating
// applies to provider places only; records with no rating are excluded
// when it is set.
type NearbyQuery struct {
	Origin    geo.Point
	RadiusKm  float64
	MinRating *float64
}

// RankedRestaurant is a dataset record annotated with its distance from
// the query origin and a ready-made map link.
type RankedRestaurant struct {
	Restaurant Restaurant
	DistanceKm float64
	MapsURL    string
}

// RankedPlace mirrors RankedRestaurant for provider results.
type RankedPlace struct {
	Place      Place
	DistanceKm float64
	MapsURL    string
}
