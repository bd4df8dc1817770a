package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/api"
	"github.com/frostdev-ops/eventstats-backend-go/internal/api/handlers"
	"github.com/frostdev-ops/eventstats-backend-go/internal/api/middleware"
	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/cache"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/dashboard"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/media"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/metrics"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database"
	"github.com/frostdev-ops/eventstats-backend-go/internal/websocket"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/logger"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.WithFields(logrus.Fields{
		"version": version.GetVersion(),
		"driver":  cfg.Database.Driver,
	}).Info("Starting event statistics backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancelOpen := context.WithTimeout(ctx, 30*time.Second)
	repos, err := database.Open(openCtx, cfg, log.Logger)
	cancelOpen()
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}
	defer repos.Close()

	resultCache, redisCache, err := openCache(cfg, log.Logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to create result cache")
	}
	defer resultCache.Close()

	collector := metrics.NewPrometheusCollector(&metrics.MetricsConfig{
		Enabled: cfg.Monitoring.Enabled,
		Prefix:  cfg.Monitoring.MetricsPrefix,
	})

	opts := dashboard.OptionsFromConfig(cfg)
	opts.Recorder = collector
	manager := dashboard.NewManager(repos, resultCache, opts, log.Logger)

	hubOpts := websocket.HubOptionsFromConfig(cfg)
	hubOpts.Recorder = collector
	hub := websocket.NewHub(manager, hubOpts, log.Logger)
	go hub.Run(ctx)

	health := metrics.NewHealthChecker(5 * time.Second)
	health.Register("storage", func(ctx context.Context) metrics.HealthStatus {
		if _, err := manager.Charts(ctx); err != nil {
			return metrics.NewHealthStatus(metrics.StatusUnhealthy, err.Error())
		}
		return metrics.NewHealthStatus(metrics.StatusHealthy, "storage reachable").
			WithDetail("driver", cfg.Database.Driver)
	})
	if redisCache != nil {
		health.Register("redis", func(ctx context.Context) metrics.HealthStatus {
			if err := redisCache.Health(ctx); err != nil {
				return metrics.NewHealthStatus(metrics.StatusDegraded, err.Error())
			}
			return metrics.NewHealthStatus(metrics.StatusHealthy, "redis reachable")
		})
	}

	routerOpts := api.RouterOptions{
		Handlers: handlers.Dependencies{
			Config:    cfg,
			Manager:   manager,
			Registry:  charts.NewDefaultRegistry(log.Logger),
			Hub:       hub,
			Health:    health,
			Inspector: media.NewInspector(media.DefaultMaxBytes, log.Logger),
			Logger:    log.Logger,
		},
		Logger:  log,
		Metrics: collector,
	}
	if cfg.Monitoring.Enabled {
		routerOpts.MetricsHandler = collector.Handler()
	}
	if cfg.Security.RateLimiting.Enabled {
		limiter := middleware.NewRateLimiterFromConfig(cfg.Security.RateLimiting)
		go limiter.Run(ctx)
		routerOpts.RateLimiter = limiter
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg, routerOpts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.FlushPending()
	log.Info("Server exited")
}

// openCache returns the configured result cache. The redis cache is also
// returned on its own so its health can be checked.
func openCache(cfg *config.Config, log *logrus.Logger) (cache.ResultCache, *cache.RedisCache, error) {
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(cfg.Redis, cfg.Cache.TTL, log)
		if err != nil {
			return nil, nil, err
		}
		return rc, rc, nil
	}

	mc, err := cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.PruneSchedule, log)
	if err != nil {
		return nil, nil, err
	}
	return mc, nil, nil
}
