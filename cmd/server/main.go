// Package main runs the token intelligence API server: token lookups,
// volume and holder analytics, social sentiment and streamed research.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"token-intel/internal/api"
	"token-intel/internal/config"
	"token-intel/internal/logger"
	"token-intel/internal/observability"
)

func main() {
	configPath := flag.String("config", os.Getenv("TOKENINTEL_CONFIG"), "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	root := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	log := logger.Component(root, "server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()

		// A second signal skips the graceful path.
		sig = <-sigCh
		log.WithField("signal", sig.String()).Warn("forcing immediate shutdown")
		os.Exit(1)
	}()

	stores, cleanup, err := createStores(ctx, cfg, root)
	if err != nil {
		log.WithError(err).Fatal("failed to create stores")
	}
	defer cleanup()

	svc, err := buildServices(ctx, cfg, stores, root)
	if err != nil {
		log.WithError(err).Fatal("failed to build services")
	}

	server := api.NewServer(api.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Mode:            cfg.Server.Mode,
		ResearchTimeout: cfg.Research.Timeout,
		VolumeBuckets:   cfg.Research.VolumeBuckets,
		SimilarLimit:    cfg.Research.SimilarLimit,
		CreatorLimit:    cfg.Research.CreatorLimit,
	}, svc, logger.Component(root, "api"))

	if cfg.Server.MetricsAddr != "" {
		go startMetricsServer(ctx, cfg.Server.MetricsAddr, log)
	}

	if err := server.Run(ctx); err != nil {
		log.WithError(err).Error("api server stopped with error")
		cleanup()
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// startMetricsServer serves Prometheus metrics and a liveness probe on a
// separate listener.
func startMetricsServer(ctx context.Context, addr string, log *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("metrics server failed")
	}
}
