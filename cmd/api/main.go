package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/guanwill/restaurants-nearby/internal/adapters/googleplaces"
	server "github.com/guanwill/restaurants-nearby/internal/adapters/http_server"
	"github.com/guanwill/restaurants-nearby/internal/adapters/observability"
	redisad "github.com/guanwill/restaurants-nearby/internal/adapters/redis"
	"github.com/guanwill/restaurants-nearby/internal/app"
	"github.com/guanwill/restaurants-nearby/internal/shared"
	mysqlrepo "github.com/guanwill/restaurants-nearby/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	places, err := googleplaces.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize places client")
	}
	q := app.NewQueryService(repo, places, cache, cfg.CacheTTL,
		cfg.SearchCategories, app.DefaultExcludedTypes, cfg.SearchMaxResults)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
