package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"fieldservice-dispatch/internal/adapters/cache"
	"fieldservice-dispatch/internal/adapters/googlemaps"
	"fieldservice-dispatch/internal/api"
	"fieldservice-dispatch/internal/config"
	"fieldservice-dispatch/internal/dispatch"
	"fieldservice-dispatch/internal/domain"
	"fieldservice-dispatch/internal/geocode"
	"fieldservice-dispatch/internal/metrics"
	"fieldservice-dispatch/internal/platform/db"
	"fieldservice-dispatch/internal/platform/obs"
	"fieldservice-dispatch/internal/ports"
	"fieldservice-dispatch/internal/route"
	"fieldservice-dispatch/internal/store"
)

// main is the application composition root. It wires concrete adapters
// (Postgres, Google Maps, Redis) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	logger := obs.NewLogger("dispatch-api")
	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(logger zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info().Str("env", cfg.Server.Env).Msg("config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.RegisterDefault()

	pool, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info().Msg("database migrations applied")

	// the geocode cache is always backed by process memory; Redis adds a
	// shared tier when configured
	local := cache.NewMemoryGeocodeCache()
	var geocodeCache ports.GeocodeCache = local
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisGeocodeCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis geocode cache: %w", err)
		}
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		geocodeCache = cache.NewTieredGeocodeCache(local, redisCache)
		logger.Info().Msg("redis geocode cache connected")
	}

	provider, err := googlemaps.NewProvider(cfg.Maps)
	if err != nil {
		return fmt.Errorf("create maps provider: %w", err)
	}

	fallback := domain.Coordinate{
		Lat: cfg.Dispatch.ServiceAreaLat,
		Lng: cfg.Dispatch.ServiceAreaLng,
	}
	resolver := geocode.NewResolver(provider, geocodeCache, cfg.Dispatch.GeocodeWorkers, fallback)
	planner := route.NewPlanner(resolver, provider, cfg.Dispatch.DegradedSpeedKMH)

	pg := store.NewPostgres(pool)
	matcher := dispatch.NewMatcher(pg, pg)

	router := api.NewRouter(api.Dependencies{
		Logger:     logger,
		Scheduling: pg,
		Dispatch:   pg,
		Matcher:    matcher,
		Resolver:   resolver,
		Planner:    planner,
	})

	// Timeouts are tuned for cold-cache route optimization (external API latency).
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
