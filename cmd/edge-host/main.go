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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/edge-adapter/internal/auth"
	"github.com/dreschagin/edge-adapter/internal/background"
	"github.com/dreschagin/edge-adapter/internal/dispatch"
	"github.com/dreschagin/edge-adapter/internal/httpx"
	edgemetrics "github.com/dreschagin/edge-adapter/internal/metrics"
	"github.com/dreschagin/edge-adapter/internal/ratelimit"
	"github.com/dreschagin/edge-adapter/pkg/config"
	"github.com/dreschagin/edge-adapter/pkg/logger"
)

func main() {
	cfg, err := config.LoadEdgeHost()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsRegistry := prometheus.NewRegistry()
	metrics := edgemetrics.New(metricsRegistry, cfg.AssetPrefix)

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, closeStore, err := openStore(initCtx, cfg)
	cancel()
	if err != nil {
		log.Error("failed to open asset store", "error", err, "store", cfg.AssetStore)
		os.Exit(1)
	}
	defer closeStore()

	initCtx, cancel = context.WithTimeout(ctx, 2*time.Minute)
	site, err := prepareSite(initCtx, cfg, store, metrics, log)
	cancel()
	if err != nil {
		log.Error("failed to prepare site", "error", err)
		os.Exit(1)
	}
	defer site.cleanup()

	if site.discovery != nil {
		go site.discovery.Start(ctx, log)
	}

	tasks := background.NewGroup(log, metrics.BackgroundTasks)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !site.ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", auth.Middleware(
		cfg.MetricsBearerToken,
		[]string{"/metrics"},
		metrics,
		promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}),
	))

	var siteHandler http.Handler = dispatch.NewHandler(store, site.matcher, site.renderer, tasks, log, metrics)
	if cfg.RateLimit.RPS > 0 {
		limiter := ratelimit.New(site.matcher, ratelimit.Config{
			RPS:         cfg.RateLimit.RPS,
			Burst:       cfg.RateLimit.Burst,
			ClientRPS:   cfg.RateLimit.ClientRPS,
			ClientBurst: cfg.RateLimit.ClientBurst,
		})
		siteHandler = limiter.Middleware(metrics, siteHandler)
	}
	siteHandler = metrics.Middleware(siteHandler)
	siteHandler = httpx.WithRequestID(siteHandler)
	siteHandler = httpx.WithLogging(log, siteHandler)
	siteHandler = httpx.WithRecovery(log, siteHandler)

	mux.Handle("/", siteHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Render.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("edge host started",
			"port", cfg.ServerPort,
			"store", cfg.AssetStore,
			"render_mode", cfg.Render.Mode,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("edge host failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown edge host", "error", err)
	}
	if err := tasks.Wait(shutdownCtx); err != nil {
		log.Warn("background tasks still running at exit", "error", err)
	}
}

