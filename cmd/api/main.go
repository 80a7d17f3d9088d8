package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"logomotion/internal/bootstrap"
	"logomotion/internal/http/handlers"
	httpapi "logomotion/internal/http/httpapi"
	"logomotion/internal/infra"
	"logomotion/internal/infra/geoip"
	"logomotion/internal/metrics"
	"logomotion/internal/middleware"
	"logomotion/internal/session"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New("logomotion")
	comps, err := bootstrap.Build(ctx, cfg, &logger, bootstrap.Options{Recorder: recorder})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer comps.Close()

	state := comps.Gate.Check(ctx)
	logger.Info().Str("credential", string(state)).Str("backend", cfg.GenAIBackend).Str("storage", cfg.StorageBackend).Msg("pipeline ready")

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()
	var lookup middleware.CountryLookup
	if fn := resolver.Lookup(); fn != nil {
		lookup = fn
	}

	registry := session.NewRegistry(comps.SessionDeps(&logger), recorder)
	app := handlers.NewApp(registry, comps.Gate, comps.Blobs, &logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          &logger,
		Metrics:         recorder,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CountryLookup:   lookup,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Msgf("API listening on %s", server.Addr())
		return server.Start()
	})
	g.Go(func() error {
		sweepSessions(gctx, registry, cfg.SessionIdleTimeout, &logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		registry.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}

// sweepSessions evicts idle sessions until ctx is done.
func sweepSessions(ctx context.Context, registry *session.Registry, maxIdle time.Duration, logger *infra.Logger) {
	if maxIdle <= 0 {
		<-ctx.Done()
		return
	}
	interval := maxIdle / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := registry.Sweep(maxIdle); n > 0 {
				logger.Debug().Int("evicted", n).Msg("idle sessions evicted")
			}
		}
	}
}
