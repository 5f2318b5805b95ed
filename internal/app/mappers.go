package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guanwill/restaurants-nearby/internal/domain"
	"github.com/guanwill/restaurants-nearby/internal/geo"
)

/********** registries (single source of truth) **********/

// placeIDPrefix is the provider resource-name prefix stripped to obtain a
// stable identifier.
const placeIDPrefix = "places/"

// DefaultExcludedTypes are non-food categories the search provider is known
// to mislabel into restaurant results. A place whose primary type or type
// set hits this list is dropped before merging.
var DefaultExcludedTypes = []string{
	"lodging",
	"hotel",
	"motel",
	"gas_station",
	"convenience_store",
	"grocery_store",
	"supermarket",
	"shopping_mall",
	"movie_theater",
}

// reviewAuthorExtractors is the ordered fallback chain for review authors:
// explicit author field, attribution display name, last path segment of the
// attribution URI. First non-empty wins; mapReview defaults to "Anonymous".
var reviewAuthorExtractors = []func(map[string]any) string{
	func(r map[string]any) string { return lookupStr(r, "author") },
	func(r map[string]any) string { return lookupStr(r, "authorAttribution.displayName") },
	func(r map[string]any) string { return lastURISegment(lookupStr(r, "authorAttribution.uri")) },
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string at path or "".
func lookupStr(m map[string]any, path string) string {
	if s, ok := lookupAny(m, path).(string); ok {
		return s
	}
	return ""
}

// lookupFloat returns the number at path, tolerating int values.
func lookupFloat(m map[string]any, path string) *float64 {
	switch v := lookupAny(m, path).(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func lastURISegment(uri string) string {
	uri = strings.TrimRight(strings.TrimSpace(uri), "/")
	if uri == "" {
		return ""
	}
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// textOrString normalizes a field that is either a plain string or a
// structured {text: ...} object to its plain-string view.
func textOrString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			return s
		}
	}
	return ""
}

/********** place mapper **********/

// mapPlace normalizes one raw provider payload. It returns nil when the
// place's category hits the exclusion set.
func mapPlace(raw map[string]any, excluded map[string]struct{}, now time.Time) *domain.Place {
	var types []string
	if ts, ok := lookupAny(raw, "types").([]any); ok {
		for _, t := range ts {
			if s, ok := t.(string); ok {
				types = append(types, s)
			}
		}
	}
	primary := lookupStr(raw, "primaryType")

	if _, hit := excluded[primary]; hit {
		return nil
	}
	for _, t := range types {
		if _, hit := excluded[t]; hit {
			return nil
		}
	}

	p := domain.Place{
		Name:        textOrString(raw["displayName"]),
		Address:     ptrStr(lookupStr(raw, "formattedAddress")),
		Types:       types,
		PrimaryType: ptrStr(primary),
		Rating:      lookupFloat(raw, "rating"),
	}

	if res := lookupStr(raw, "name"); res != "" {
		id := strings.TrimPrefix(res, placeIDPrefix)
		p.ID = &id
	}
	if f := lookupFloat(raw, "userRatingCount"); f != nil {
		n := int(*f)
		p.RatingCount = &n
	}
	if lat, lon := lookupFloat(raw, "location.latitude"), lookupFloat(raw, "location.longitude"); lat != nil && lon != nil {
		p.Coords = &geo.Point{Lat: *lat, Lon: *lon}
	}
	if revs, ok := lookupAny(raw, "reviews").([]any); ok {
		p.Reviews = make([]domain.Review, 0, len(revs))
		for _, rv := range revs {
			if m, ok := rv.(map[string]any); ok {
				p.Reviews = append(p.Reviews, mapReview(m, now))
			}
		}
	}

	if b, err := json.Marshal(raw); err == nil {
		p.RawJSON = b
	} else {
		log.Error().Err(err).Str("context", "mapPlace").Msg("marshal raw place failed")
	}
	return &p
}

// mapPlaces normalizes a whole result set, keeping input order.
func mapPlaces(raw []map[string]any, excluded map[string]struct{}, now time.Time) []domain.Place {
	out := make([]domain.Place, 0, len(raw))
	for _, r := range raw {
		if p := mapPlace(r, excluded, now); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

/********** review mapper **********/

func mapReview(r map[string]any, now time.Time) domain.Review {
	rv := domain.Review{Author: "Anonymous"}

	for _, extract := range reviewAuthorExtractors {
		if s := strings.TrimSpace(extract(r)); s != "" {
			rv.Author = s
			break
		}
	}

	rv.Rating = lookupFloat(r, "rating")
	rv.Text = ptrStr(textOrString(r["text"]))

	published, ok := parsePublishTime(lookupStr(r, "publishTime"))
	if ok {
		rv.PublishedAt = published.Unix()
	}

	// Prefer the provider's own relative description when present.
	if s := lookupStr(r, "relativePublishTimeDescription"); s != "" {
		rv.When = s
	} else if ok {
		rv.When = relativeWhen(now, published)
	}
	return rv
}

func parsePublishTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// relativeWhen buckets elapsed time with plain day-floor arithmetic
// (weeks = days/7, months = days/30, years = days/365). Not calendar
// aware; the buckets match the upstream presentation exactly.
func relativeWhen(now, published time.Time) string {
	days := int(now.Sub(published).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	case days < 365:
		return fmt.Sprintf("%d months ago", days/30)
	default:
		return fmt.Sprintf("%d years ago", days/365)
	}
}

/********** merge **********/

// mergePlaces combines normalized result sets into one list, keeping the
// first occurrence per identifier across the sets in the order given.
// Records without a stable identifier are always appended. Output order is
// first-seen order, so a fixed set order gives a deterministic merge no
// matter how the individual searches completed.
func mergePlaces(sets ...[]domain.Place) []domain.Place {
	seen := make(map[string]struct{})
	var out []domain.Place
	for _, set := range sets {
		for _, p := range set {
			if p.ID != nil {
				if _, dup := seen[*p.ID]; dup {
					continue
				}
				seen[*p.ID] = struct{}{}
			}
			out = append(out, p)
		}
	}
	return out
}

func excludedSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}
