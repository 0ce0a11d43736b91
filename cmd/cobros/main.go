package main

import (
	"context"
	"errors"
	"net/http"
	"time"
	_ "time/tzdata"

	"cobros/internal/cache"
	"cobros/internal/cli"
	apphttp "cobros/internal/http"
	applog "cobros/internal/log"
	"cobros/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	ctx, stop := cli.ShutdownContext()
	defer stop()

	result := cli.InitBackend(ctx, cfg, logger, nil)
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err.Error())
		}
	}()

	loc := cfg.Location()
	dashboard := services.NewDashboardService(result.Backend, services.DashboardOptions{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Strict:    cfg.StrictMode,
		Location:  loc,
	}, logger)
	collections := services.NewCollectionService(result.Backend, result.Publisher, dashboard, time.Now, logger)

	cacheLogger := logger.WithComponent(applog.ComponentCache)
	caches := cache.NewManager(func(removed int) {
		cacheLogger.Debug("Expired cache entries removed", "removed", removed)
	})
	for _, c := range dashboard.Caches() {
		caches.Register(c)
	}
	sweep := cfg.CacheTTL
	if sweep <= 0 {
		sweep = time.Minute
	}
	caches.StartCleanup(sweep)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, collections, dashboard, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              result.Backend.Ping,
		Logger:             logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting cobros server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.DataBackend,
			"timezone", loc.String(),
			"strict", cfg.StrictMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err.Error())
	}
	logger.Info("Server stopped gracefully")
}
