package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/guanwill/restaurants-nearby/internal/domain"
	"github.com/guanwill/restaurants-nearby/internal/geo"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertRestaurants(ctx context.Context, rs []domain.Restaurant) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*14)
	for _, rest := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rest.Name,
			valStr(rest.Address),
			valStr(rest.Location),
			valStr(rest.Price),
			valStr(rest.Cuisine),
			rest.Coords.Lat,
			rest.Coords.Lon,
			valStr(rest.Phone),
			valStr(rest.URL),
			valStr(rest.WebsiteURL),
			valStr(rest.Award),
			valInt(rest.GreenStar),
			valStr(rest.Facilities),
			valStr(rest.Description),
		)
	}
	sqlStr := upsertRestaurantsPrefix + strings.Join(values, ",") + upsertRestaurantsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) LogIngest(ctx context.Context, source string, kept, dropped int) error {
	_, err := r.db.ExecContext(ctx, insertIngestRunSQL, source, kept, dropped)
	return err
}

func (r *Repo) ListWithinBox(ctx context.Context, b geo.Box) ([]domain.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx, listWithinBoxSQL, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Restaurant
	for rows.Next() {
		var (
			rest                              domain.Restaurant
			address, location, price, cuisine sql.NullString
			phone, url, websiteURL, award     sql.NullString
			facilities, description           sql.NullString
			greenStar                         sql.NullInt64
		)
		if err := rows.Scan(
			&rest.ID,
			&rest.Name,
			&address,
			&location,
			&price,
			&cuisine,
			&rest.Coords.Lat,
			&rest.Coords.Lon,
			&phone,
			&url,
			&websiteURL,
			&award,
			&greenStar,
			&facilities,
			&description,
		); err != nil {
			return nil, err
		}
		rest.Address = nullStr(address)
		rest.Location = nullStr(location)
		rest.Price = nullStr(price)
		rest.Cuisine = nullStr(cuisine)
		rest.Phone = nullStr(phone)
		rest.URL = nullStr(url)
		rest.WebsiteURL = nullStr(websiteURL)
		rest.Award = nullStr(award)
		rest.Facilities = nullStr(facilities)
		rest.Description = nullStr(description)
		if greenStar.Valid {
			g := int(greenStar.Int64)
			rest.GreenStar = &g
		}
		out = append(out, rest)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) CountRestaurants(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, countRestaurantsSQL).Scan(&n)
	return n, err
}
