//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/guanwill/restaurants-nearby/internal/domain"
	"github.com/guanwill/restaurants-nearby/internal/geo"
	mysqlrepo "github.com/guanwill/restaurants-nearby/internal/storage/mysql"
)

// ---------- helpers ----------
func pstr(s string) *string { return &s }

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- tiny HTTP around repo (keeps wiring simple) ----------
type testAPI struct{ repo *mysqlrepo.Repo }

func (a *testAPI) nearby(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		http.Error(w, "bad lat", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		http.Error(w, "bad lon", http.StatusBadRequest)
		return
	}
	radius, err := strconv.ParseFloat(r.URL.Query().Get("radius_km"), 64)
	if err != nil {
		http.Error(w, "bad radius", http.StatusBadRequest)
		return
	}

	origin := geo.Point{Lat: lat, Lon: lon}
	rs, err := a.repo.ListWithinBox(r.Context(), geo.BoundsAround(origin, radius))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ranked := geo.Nearby(rs, origin, radius)

	type item struct {
		Name       string  `json:"name"`
		DistanceKm float64 `json:"distance_km"`
	}
	items := make([]item, 0, len(ranked))
	for _, rr := range ranked {
		items = append(items, item{Name: rr.Item.Name, DistanceKm: rr.DistanceKm})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

// ---------- the test ----------
func TestHTTP_EndToEnd_NearbyRestaurants(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=nearby",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "nearby")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// Seed: two Paris restaurants and one far away.
	seed := []domain.Restaurant{
		{Name: "Septime", Address: pstr("80 Rue de Charonne"), Coords: geo.Point{Lat: 48.8531, Lon: 2.3811}},
		{Name: "Arpège", Address: pstr("84 Rue de Varenne"), Coords: geo.Point{Lat: 48.8557, Lon: 2.3170}},
		{Name: "Noma", Coords: geo.Point{Lat: 55.6828, Lon: 12.6103}},
	}
	if err := repo.UpsertRestaurants(ctx, seed); err != nil {
		t.Fatalf("UpsertRestaurants: %v", err)
	}

	// Spin up minimal HTTP server exposing the one route we need
	api := &testAPI{repo: repo}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/restaurants/nearby", api.nearby)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	// Hit the endpoint from central Paris
	res, err := http.Get(fmt.Sprintf("%s/v1/restaurants/nearby?lat=48.8566&lon=2.3522&radius_km=10", ts.URL))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}

	var body struct {
		Items []struct {
			Name       string  `json:"name"`
			DistanceKm float64 `json:"distance_km"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 2 {
		t.Fatalf("expected the 2 Paris restaurants, got %+v", body.Items)
	}
	if body.Items[0].DistanceKm > body.Items[1].DistanceKm {
		t.Fatalf("not sorted nearest-first: %+v", body.Items)
	}
	for _, it := range body.Items {
		if it.Name == "Noma" {
			t.Fatalf("far record leaked into radius: %+v", body.Items)
		}
	}
}
