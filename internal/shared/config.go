package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	PlacesBase string
	PlacesKey  string
	PlacesRPS  int

	// SearchCategories are queried in this order for every nearby-places
	// request; the order fixes the merge order.
	SearchCategories []string
	SearchMaxResults int

	MichelinCSV string
	IngestBatch int
	Workers     int
	CacheTTL    time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:           env("APP_ENV", "prod"),
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		MetricsAddr:      env("METRICS_ADDR", ":9100"),
		MySQLDSN:         env("MYSQL_DSN", "root:root@tcp(localhost:3306)/nearby?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:        env("REDIS_ADDR", "localhost:6379"),
		RedisPass:        env("REDIS_PASSWORD", ""),
		RedisDB:          atoi("REDIS_DB", 0),
		PlacesBase:       env("PLACES_BASE_URL", "https://places.googleapis.com/v1"),
		PlacesKey:        env("PLACES_API_KEY", ""),
		PlacesRPS:        atoi("PLACES_RPS", 5),
		SearchCategories: splitCSV(env("SEARCH_CATEGORIES", "restaurant,cafe")),
		SearchMaxResults: atoi("SEARCH_MAX_RESULTS", 20),
		MichelinCSV:      env("MICHELIN_CSV", "data/michelin.csv"),
		IngestBatch:      atoi("INGEST_BATCH", 200),
		Workers:          atoi("INGEST_WORKERS", 4),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.PlacesKey == "" {
		log.Warn().Msg("PLACES_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
