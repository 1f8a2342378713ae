package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/radiology-assistant/cmd/mainconfig"
	"github.com/wolfman30/radiology-assistant/internal/api/router"
	"github.com/wolfman30/radiology-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/radiology-assistant/internal/config"
	httpmiddleware "github.com/wolfman30/radiology-assistant/internal/http/middleware"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

func main() {
	// Local development reads .env; deployed environments set variables directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting radiology assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"phase", cfg.AssistantPhase,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	deps := bootstrap.Deps{
		ToneOut:  os.Stderr,
		Registry: newRegistry(),
	}
	if client := bootstrap.BuildRedisClient(ctx, cfg, logger, true); client != nil {
		defer client.Close()
		deps.Redis = client
	}
	if mainconfig.NeedsSES(cfg) {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		deps.SES = mainconfig.NewSESClient(awsCfg, cfg)
	}

	rt, err := bootstrap.BuildRuntime(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	srv := newServer(cfg, rt, limiter, logger)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = rt.Close(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}
	if err := rt.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newServer(cfg *appconfig.Config, rt *bootstrap.Runtime, limiter *httpmiddleware.RateLimiter, logger *logging.Logger) *http.Server {
	r := router.New(&router.Config{
		Logger:             logger,
		Dashboard:          rt.Handler,
		Hub:                rt.Hub,
		MetricsHandler:     promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}),
		RateLimiter:        limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	// No WriteTimeout: websocket connections are long-lived.
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
