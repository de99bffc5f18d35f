package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/odypool/pooler/adminapi"
	"github.com/odypool/pooler/backend"
	"github.com/odypool/pooler/bufcache"
	"github.com/odypool/pooler/config"
	"github.com/odypool/pooler/expire"
	"github.com/odypool/pooler/ioctx"
	"github.com/odypool/pooler/logger"
	"github.com/odypool/pooler/periodic"
	"github.com/odypool/pooler/route"
	"github.com/odypool/pooler/routeid"
	"github.com/odypool/pooler/statsengine"
	"github.com/odypool/pooler/statsexport"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("pooler maintenance engine starting")

	routes := route.NewPool()
	seedDemoRoutes(routes, cfg)

	buffers := bufcache.New(4096, 64)

	// Optional stats export to Redis.
	var exporter *statsexport.RedisPublisher
	if cfg.RedisURL != "" {
		pub, err := statsexport.NewRedisPublisher(cfg.RedisURL, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis stats exporter init failed — continuing without export")
		} else if err := pub.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("redis ping failed — continuing without export")
		} else {
			exporter = pub
			log.Info().Msg("redis stats export connected")
		}
	} else {
		log.Info().Msg("stats export disabled (set REDIS_URL to enable)")
	}

	expiryEngine := expire.New(backend.LoopbackDialer{}, buffers, ioctx.Noop{}, log, cfg.IsShared)

	statsEngine := statsengine.New(log, buffers, runtime.NumGoroutine, cfg.LogStats)
	if exporter != nil {
		statsEngine.Exporter = exporter
	}

	sys := &periodic.System{
		Routes:        routes,
		Logger:        log,
		StatsInterval: cfg.StatsIntervalTicks,
	}
	driver := periodic.New(sys, expiryEngine, statsEngine)
	if err := driver.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start periodic maintenance task")
	}

	admin := &http.Server{
		Addr:         cfg.AdminAddr,
		Handler:      adminapi.New(routes, log, cfg.AdminAuthToken, cfg.AdminRateLimitRPM),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.AdminAddr).Msg("admin api listening")
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("admin api failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	driver.Stop()
	if exporter != nil {
		_ = exporter.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()
	if err := admin.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("admin api graceful shutdown failed")
	} else {
		log.Info().Msg("pooler stopped gracefully")
	}
}

// seedDemoRoutes populates the pool with a couple of routes so the admin
// API and the periodic driver have something to report on without a
// real listener/resolver wired up (out of scope — see SPEC_FULL.md §1).
func seedDemoRoutes(routes *route.Pool, cfg *config.Config) {
	primary := route.New(routeid.ID{Database: "app", User: "app", Version: "v1"}, &route.Scheme{
		Version: "v1", PoolTTL: cfg.DefaultPoolTTL, MaxServers: 20,
	})
	routes.Upsert(primary)

	analytics := route.New(routeid.ID{Database: "analytics", User: "readonly", Version: "v1"}, &route.Scheme{
		Version: "v1", PoolTTL: cfg.DefaultPoolTTL, MaxServers: 10,
	})
	routes.Upsert(analytics)
}
