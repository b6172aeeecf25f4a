package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/sectionrank/internal/api"
	"github.com/dgallion1/sectionrank/internal/config"
	"github.com/dgallion1/sectionrank/internal/embed"
	"github.com/dgallion1/sectionrank/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the embedding backend and fail fast if it is unreachable.
	stats := embed.NewStats(time.Hour)
	ec := cfg.Embed()
	ec.Stats = stats
	ec.Logger = log
	embedder, err := embed.New(ec)
	if err != nil {
		log.Error("embedding backend", "error", err)
		os.Exit(1)
	}
	probeCtx, probeCancel := context.WithTimeout(ctx, cfg.EmbedTimeout)
	err = embed.Probe(probeCtx, embedder)
	probeCancel()
	if err != nil {
		log.Error("embedding backend unavailable", "backend", cfg.EmbedBackend, "endpoint", cfg.EmbedEndpoint, "error", err)
		os.Exit(1)
	}
	log.Info("embedding backend ready", "backend", cfg.EmbedBackend, "model", embedder.Model(), "dimension", embedder.Dimension())

	// Initialize pipeline.
	analyzer := pipeline.NewAnalyzer(embedder, log)
	orch := pipeline.NewOrchestrator(cfg, analyzer, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, embedder, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting sectionrank", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
