package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guanwill/restaurants-nearby/internal/domain"
	"github.com/guanwill/restaurants-nearby/internal/geo"
)

// datasetVersionKey is bumped by the ingestor after every successful load
// so nearby caches for the old dataset stop being served.
const datasetVersionKey = "michelin:version"

type QueryService struct {
	repo     domain.RestaurantRepository
	places   domain.PlacesClient
	cache    domain.Cache
	cacheTTL time.Duration

	// categories searched per nearby-places query, in a fixed order so the
	// merge is deterministic regardless of which search finishes first.
	categories []string
	excluded   map[string]struct{}
	maxResults int
}

func NewQueryService(r domain.RestaurantRepository, p domain.PlacesClient, c domain.Cache, ttl time.Duration, categories []string, excludedTypes []string, maxResults int) *QueryService {
	if len(categories) == 0 {
		categories = []string{"restaurant", "cafe"}
	}
	if excludedTypes == nil {
		excludedTypes = DefaultExcludedTypes
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	return &QueryService{
		repo:       r,
		places:     p,
		cache:      c,
		cacheTTL:   ttl,
		categories: categories,
		excluded:   excludedSet(excludedTypes),
		maxResults: maxResults,
	}
}

func validate(q domain.NearbyQuery) error {
	if !q.Origin.Valid() {
		return fmt.Errorf("%w: origin %+v out of range", domain.ErrInvalidQuery, q.Origin)
	}
	if math.IsNaN(q.RadiusKm) || math.IsInf(q.RadiusKm, 0) || q.RadiusKm < 0 {
		return fmt.Errorf("%w: radius %v", domain.ErrInvalidQuery, q.RadiusKm)
	}
	return nil
}

// NearbyRestaurants returns Michelin dataset entries within the query
// radius, nearest first.
func (s *QueryService) NearbyRestaurants(ctx context.Context, q domain.NearbyQuery) ([]domain.RankedRestaurant, error) {
	if err := validate(q); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("nearby:restaurants:%s:%.4f:%.4f:%.1f", s.datasetVersion(ctx), q.Origin.Lat, q.Origin.Lon, q.RadiusKm)
	var cached []domain.RankedRestaurant
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	// Coarse bounding-box prefilter in SQL, exact Haversine pass here.
	rs, err := s.repo.ListWithinBox(ctx, geo.BoundsAround(q.Origin, q.RadiusKm))
	if err != nil {
		return nil, err
	}

	ranked := geo.Nearby(rs, q.Origin, q.RadiusKm)
	out := make([]domain.RankedRestaurant, 0, len(ranked))
	for _, r := range ranked {
		addr := ""
		if r.Item.Address != nil {
			addr = *r.Item.Address
		}
		coords := r.Item.Coords
		out = append(out, domain.RankedRestaurant{
			Restaurant: r.Item,
			DistanceKm: r.DistanceKm,
			MapsURL:    domain.MapsURL(r.Item.Name, addr, &coords),
		})
	}

	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// NearbyPlaces queries the remote provider once per configured category,
// concurrently, then normalizes, merges and ranks the result sets. Result
// sets are slotted by category index, so completion order cannot change
// the merged order. Places with no rating are excluded when MinRating is
// set, and never treated as zero.
func (s *QueryService) NearbyPlaces(ctx context.Context, q domain.NearbyQuery) ([]domain.RankedPlace, error) {
	if err := validate(q); err != nil {
		return nil, err
	}

	sets := make([][]map[string]any, len(s.categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range s.categories {
		i, cat := i, cat
		g.Go(func() error {
			raw, err := s.places.SearchNearby(gctx, q.Origin, q.RadiusKm*1000, cat, s.maxResults)
			if err != nil {
				return fmt.Errorf("nearby search %q: %w", cat, err)
			}
			sets[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now()
	normalized := make([][]domain.Place, len(sets))
	for i, set := range sets {
		normalized[i] = mapPlaces(set, s.excluded, now)
	}
	merged := mergePlaces(normalized...)

	if q.MinRating != nil {
		kept := merged[:0]
		for _, p := range merged {
			if p.Rating != nil && *p.Rating >= *q.MinRating {
				kept = append(kept, p)
			}
		}
		merged = kept
	}
	sortByRating(merged)

	out := make([]domain.RankedPlace, 0, len(merged))
	for _, p := range merged {
		d := geo.DistanceKm(p.Coordinates(), q.Origin)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			d = 0
		}
		addr := ""
		if p.Address != nil {
			addr = *p.Address
		}
		out = append(out, domain.RankedPlace{
			Place:      p,
			DistanceKm: d,
			MapsURL:    domain.MapsURL(p.Name, addr, p.Coords),
		})
	}
	return out, nil
}

// sortByRating orders descending by rating, stable, unrated records last.
func sortByRating(ps []domain.Place) {
	sort.SliceStable(ps, func(i, j int) bool {
		ri, rj := ps[i].Rating, ps[j].Rating
		switch {
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return *ri > *rj
		}
	})
}

func (s *QueryService) datasetVersion(ctx context.Context) string {
	var v string
	if ok, _ := s.cache.Get(ctx, datasetVersionKey, &v); ok && v != "" {
		return v
	}
	return "0"
}
