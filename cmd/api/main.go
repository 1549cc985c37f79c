// Package main is the entry point for the road trip planner API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/roadtrip-planner/backend/internal/cache"
	"github.com/pkordes/roadtrip-planner/backend/internal/clock"
	"github.com/pkordes/roadtrip-planner/backend/internal/config"
	"github.com/pkordes/roadtrip-planner/backend/internal/handler"
	"github.com/pkordes/roadtrip-planner/backend/internal/middleware"
	"github.com/pkordes/roadtrip-planner/backend/internal/placesapi"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo"
	"github.com/pkordes/roadtrip-planner/backend/internal/repo/memory"
	"github.com/pkordes/roadtrip-planner/backend/internal/routing"
	"github.com/pkordes/roadtrip-planner/backend/internal/service"
	"github.com/pkordes/roadtrip-planner/backend/migrations"
)

// storage is the set of repositories one backend provides.
type storage struct {
	trips  repo.TripRepo
	stops  repo.StopRepo
	shares repo.ShareRepo
	places repo.PlaceRepo
	locker repo.TripLocker
	close  func()
}

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	clk := clock.System{}

	// --- Storage ----------------------------------------------------------
	store, err := openStorage(ctx, cfg, clk)
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer store.close()

	// --- Ephemeral cache --------------------------------------------------
	// Redis is optional. Without it place lookups go straight to the store.
	var ephemeral cache.Cache
	if cfg.Redis.Addr != "" {
		client, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		ephemeral = cache.NewRedis(client, "roadtrip:")
		slog.Info("redis cache enabled", "addr", cfg.Redis.Addr)
	}

	// --- Services ---------------------------------------------------------
	router := routing.NewHaversine(cfg.RoutingAvgSpeedMPH, cfg.RoutingRoadFactor)
	upstream := placesapi.New(cfg.Places.BaseURL, cfg.Places.APIKey, &http.Client{})
	if !upstream.Configured() {
		slog.Warn("places api key not set; place lookups are served from cache only")
	}

	api := handler.NewServer(handler.Services{
		Trips:  service.NewTripService(store.trips, store.stops, store.locker, router, logger),
		Stops:  service.NewStopService(store.trips, store.stops, store.locker, router, logger),
		Shares: service.NewShareService(store.trips, store.shares),
		Export: service.NewExportService(store.trips, store.stops),
		Places: service.NewPlaceService(store.places, ephemeral, upstream, clk, service.PlaceConfig{
			UpstreamTimeout:  cfg.Places.Timeout,
			PlaceTTL:         cfg.Places.PlaceTTL,
			SearchTTL:        cfg.Places.SearchTTL,
			NearbyTTL:        cfg.Places.NearbyTTL,
			GeohashPrecision: cfg.Places.GeohashPrecision,
		}, logger),
	}, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → body limit.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", api.Routes())

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout leaves room for a slow places provider behind the upstream timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Places.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStorage builds the repositories for the configured backend.
func openStorage(ctx context.Context, cfg config.Config, clk clock.Clock) (storage, error) {
	if cfg.StorageBackend == config.StorageMemory {
		slog.Warn("using in-memory storage; data is lost on restart")
		mem := memory.New(clk)
		return storage{
			trips:  mem.Trips(),
			stops:  mem.Stops(),
			shares: mem.Shares(),
			places: mem.Places(),
			locker: mem,
			close:  func() {},
		}, nil
	}

	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return storage{}, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return storage{}, err
	}
	slog.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := migrate(ctx, pool); err != nil {
			pool.Close()
			return storage{}, err
		}
	}

	return storage{
		trips:  repo.NewTripRepo(pool),
		stops:  repo.NewStopRepo(pool),
		shares: repo.NewShareRepo(pool),
		places: repo.NewPlaceRepo(pool),
		locker: repo.NewTripLocker(pool),
		close:  pool.Close,
	}, nil
}

// migrate applies pending migrations. goose needs database/sql, so the pool
// is wrapped rather than opening a second connection.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "count", applied)
	return nil
}
