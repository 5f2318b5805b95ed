//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/guanwill/restaurants-nearby/internal/domain"
	"github.com/guanwill/restaurants-nearby/internal/geo"
	mysqlrepo "github.com/guanwill/restaurants-nearby/internal/storage/mysql"
)

// ---------- small helpers ----------
func pstr(s string) *string { return &s }
func pint(i int) *int       { return &i }

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

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()

	// Start isolated MySQL; let Docker pick a free host port.
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
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_UpsertAndBoxQuery(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	seed := []domain.Restaurant{
		{
			Name:    "Septime",
			Address: pstr("80 Rue de Charonne, Paris"),
			Cuisine: pstr("Modern Cuisine"),
			Award:   pstr("1 Star"),
			Coords:  geo.Point{Lat: 48.8531, Lon: 2.3811},
		},
		{
			Name:      "Arpège",
			Address:   pstr("84 Rue de Varenne, Paris"),
			Award:     pstr("3 Stars"),
			GreenStar: pint(1),
			Coords:    geo.Point{Lat: 48.8557, Lon: 2.3170},
		},
		{
			Name:   "Noma",
			Award:  pstr("3 Stars"),
			Coords: geo.Point{Lat: 55.6828, Lon: 12.6103},
		},
	}
	if err := repo.UpsertRestaurants(ctx, seed); err != nil {
		t.Fatalf("UpsertRestaurants: %v", err)
	}

	// Re-ingest the same rows; the natural key must dedupe, not duplicate.
	seed[0].Cuisine = pstr("Creative")
	if err := repo.UpsertRestaurants(ctx, seed); err != nil {
		t.Fatalf("UpsertRestaurants (second pass): %v", err)
	}
	n, err := repo.CountRestaurants(ctx)
	if err != nil {
		t.Fatalf("CountRestaurants: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows after re-ingest, got %d", n)
	}

	// Paris box must contain the two Paris entries only.
	got, err := repo.ListWithinBox(ctx, geo.Box{MinLat: 48.5, MaxLat: 49.0, MinLon: 2.0, MaxLon: 2.6})
	if err != nil {
		t.Fatalf("ListWithinBox: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 Paris rows, got %d", len(got))
	}
	byName := map[string]domain.Restaurant{}
	for _, r := range got {
		byName[r.Name] = r
	}
	if r, ok := byName["Septime"]; !ok || r.Cuisine == nil || *r.Cuisine != "Creative" {
		t.Fatalf("upsert did not update cuisine: %+v", byName["Septime"])
	}
	if r, ok := byName["Arpège"]; !ok || r.GreenStar == nil || *r.GreenStar != 1 {
		t.Fatalf("green star lost: %+v", byName["Arpège"])
	}

	if err := repo.LogIngest(ctx, "guide.csv", 3, 1); err != nil {
		t.Fatalf("LogIngest: %v", err)
	}
}
