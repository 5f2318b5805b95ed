package domain

import (
	"strings"

	"github.com/guanwill/restaurants-nearby/internal/geo"
)

// Restaurant is one row of the Michelin guide dataset. It is built once
// per parse pass and never mutated afterwards. Optional columns are nil
// when empty or unparsable in the source row.
type Restaurant struct {
	ID          int64 // assigned by storage; 0 before persistence
	Name        string
	Address     *string
	Location    *string
	Price       *string
	Cuisine     *string
	Phone       *string
	URL         *string
	WebsiteURL  *string
	Award       *string
	GreenStar   *int
	Facilities  *string
	Description *string
	Coords      geo.Point
}

func (r Restaurant) Coordinates() geo.Point { return r.Coords }

// AwardStars extracts a star count from the free-text award label
// ("1 Star", "2 Stars", "3 Stars"). Returns 0 for any other label,
// including "Bib Gourmand" and "Selected Restaurants".
func (r Restaurant) AwardStars() int {
	if r.Award == nil {
		return 0
	}
	s := strings.ToLower(strings.TrimSpace(*r.Award))
	switch {
	case strings.HasPrefix(s, "3 star"):
		return 3
	case strings.HasPrefix(s, "2 star"):
		return 2
	case strings.HasPrefix(s, "1 star"):
		return 1
	}
	return 0
}
