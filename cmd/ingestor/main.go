package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/guanwill/restaurants-nearby/internal/adapters/observability"
	redisad "github.com/guanwill/restaurants-nearby/internal/adapters/redis"
	"github.com/guanwill/restaurants-nearby/internal/app"
	"github.com/guanwill/restaurants-nearby/internal/shared"
	mysqlrepo "github.com/guanwill/restaurants-nearby/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "ingestor")

	// MICHELIN_CSV may list several guide files, comma separated.
	sources := strings.Split(cfg.MichelinCSV, ",")

	log.Info().
		Int("sources", len(sources)).
		Int("workers", cfg.Workers).
		Int("batch", cfg.IngestBatch).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ing := app.NewIngestionService(repo, cache, cfg.IngestBatch)

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, src := range sources {
		src := strings.TrimSpace(src)
		if src == "" {
			continue
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer sem.Release(1)

			text, err := os.ReadFile(path)
			if err != nil {
				log.Warn().Str("source", path).Err(err).Msg("read failed")
				return
			}
			stats, err := ing.IngestCSV(ctx, filepath.Base(path), string(text))
			if err != nil {
				log.Warn().Str("source", path).Err(err).Msg("ingest failed")
				return
			}
			observability.ObserveIngest(stats.Rows-stats.Dropped, stats.Dropped)
			log.Info().
				Str("source", path).
				Int("rows", stats.Rows).
				Int("dropped", stats.Dropped).
				Msg("ingest ok")
		}(src)
	}

	wg.Wait()
	log.Info().Msg("ingestion completed")
}
