package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/guanwill/restaurants-nearby/internal/app"
	"github.com/guanwill/restaurants-nearby/internal/domain"
	"github.com/guanwill/restaurants-nearby/internal/geo"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const defaultRadiusKm = 5

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/restaurants/nearby", h.nearbyRestaurants)
	s.mux.Get("/v1/places/nearby", h.nearbyPlaces)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// parseNearbyQuery reads lat, lon, radius_km and optional min_rating.
func parseNearbyQuery(r *http.Request) (domain.NearbyQuery, error) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return domain.NearbyQuery{}, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return domain.NearbyQuery{}, errors.New("lon must be a number")
	}

	radius := float64(defaultRadiusKm)
	if rs := q.Get("radius_km"); rs != "" {
		radius, err = strconv.ParseFloat(rs, 64)
		if err != nil || math.IsNaN(radius) || radius < 0 || radius > 100 {
			return domain.NearbyQuery{}, errors.New("radius_km must be a number between 0 and 100")
		}
	}

	nq := domain.NearbyQuery{Origin: geo.Point{Lat: lat, Lon: lon}, RadiusKm: radius}
	if ms := q.Get("min_rating"); ms != "" {
		m, err := strconv.ParseFloat(ms, 64)
		if err != nil || m < 0 || m > 5 {
			return domain.NearbyQuery{}, errors.New("min_rating must be a number between 0 and 5")
		}
		nq.MinRating = &m
	}
	return nq, nil
}

type nearbyRestaurantItem struct {
	Name       string   `json:"name"`
	Address    *string  `json:"address,omitempty"`
	Location   *string  `json:"location,omitempty"`
	Cuisine    *string  `json:"cuisine,omitempty"`
	Price      *string  `json:"price,omitempty"`
	Award      *string  `json:"award,omitempty"`
	Stars      int      `json:"stars"`
	GreenStar  *int     `json:"green_star,omitempty"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	DistanceKm float64  `json:"distance_km"`
	MapsURL    string   `json:"maps_url"`
	WebsiteURL *string  `json:"website_url,omitempty"`
	Phone      *string  `json:"phone,omitempty"`
}

func (h *Handlers) nearbyRestaurants(w http.ResponseWriter, r *http.Request) {
	nq, err := parseNearbyQuery(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}

	ranked, err := h.Q.NearbyRestaurants(r.Context(), nq)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Lookup failed", "nearby restaurants unavailable")
		return
	}

	items := make([]nearbyRestaurantItem, 0, len(ranked))
	for _, rr := range ranked {
		items = append(items, nearbyRestaurantItem{
			Name:       rr.Restaurant.Name,
			Address:    rr.Restaurant.Address,
			Location:   rr.Restaurant.Location,
			Cuisine:    rr.Restaurant.Cuisine,
			Price:      rr.Restaurant.Price,
			Award:      rr.Restaurant.Award,
			Stars:      rr.Restaurant.AwardStars(),
			GreenStar:  rr.Restaurant.GreenStar,
			Lat:        rr.Restaurant.Coords.Lat,
			Lon:        rr.Restaurant.Coords.Lon,
			DistanceKm: rr.DistanceKm,
			MapsURL:    rr.MapsURL,
			WebsiteURL: rr.Restaurant.WebsiteURL,
			Phone:      rr.Restaurant.Phone,
		})
	}
	writeJSONWithETag(w, r, map[string]any{"items": items})
}

type nearbyPlaceReview struct {
	Author string   `json:"author"`
	Rating *float64 `json:"rating,omitempty"`
	Text   *string  `json:"text,omitempty"`
	When   string   `json:"when,omitempty"`
}

type nearbyPlaceItem struct {
	ID          *string             `json:"id,omitempty"`
	Name        string              `json:"name"`
	Address     *string             `json:"address,omitempty"`
	PrimaryType *string             `json:"primary_type,omitempty"`
	Rating      *float64            `json:"rating,omitempty"`
	RatingCount *int                `json:"rating_count,omitempty"`
	DistanceKm  float64             `json:"distance_km"`
	MapsURL     string              `json:"maps_url"`
	Reviews     []nearbyPlaceReview `json:"reviews,omitempty"`
}

func (h *Handlers) nearbyPlaces(w http.ResponseWriter, r *http.Request) {
	nq, err := parseNearbyQuery(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}

	ranked, err := h.Q.NearbyPlaces(r.Context(), nq)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
			return
		}
		// Upstream failures surface as 502 with the operation context intact.
		writeProblem(w, http.StatusBadGateway, "Upstream failure", err.Error())
		return
	}

	items := make([]nearbyPlaceItem, 0, len(ranked))
	for _, rp := range ranked {
		item := nearbyPlaceItem{
			ID:          rp.Place.ID,
			Name:        rp.Place.Name,
			Address:     rp.Place.Address,
			PrimaryType: rp.Place.PrimaryType,
			Rating:      rp.Place.Rating,
			RatingCount: rp.Place.RatingCount,
			DistanceKm:  rp.DistanceKm,
			MapsURL:     rp.MapsURL,
		}
		for _, rv := range rp.Place.Reviews {
			item.Reviews = append(item.Reviews, nearbyPlaceReview{
				Author: rv.Author,
				Rating: rv.Rating,
				Text:   rv.Text,
				When:   rv.When,
			})
		}
		items = append(items, item)
	}
	writeJSONWithETag(w, r, map[string]any{"items": items})
}

func writeJSONWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}
