package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/patchgest/internal/api"
	"github.com/dgallion1/patchgest/internal/config"
	"github.com/dgallion1/patchgest/internal/fetch"
	"github.com/dgallion1/patchgest/internal/pathstore"
	"github.com/dgallion1/patchgest/internal/pipeline"
	"github.com/dgallion1/patchgest/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}

	client := fetch.NewClient(fetch.Config{
		BaseURL:       cfg.PatchBaseURL,
		UserAgent:     cfg.FetchUserAgent,
		Timeout:       cfg.FetchTimeout,
		MinPageBytes:  cfg.MinPageBytes,
		MaxConcurrent: cfg.FetchMaxConcurrent,
	})

	var mirror pipeline.Mirror
	var ps *pathstore.Client
	if cfg.MirrorEnabled() {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		mirror = ps
		log.Info("pathstore mirror enabled", "url", cfg.PathstoreURL)
	}

	worker := pipeline.NewWorker(client, st, mirror, log, cfg.MinContentChars)
	orch := pipeline.NewOrchestrator(worker, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, st, client.Stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		client.Close()
		if ps != nil {
			ps.Close()
		}
		st.Close()
	}()

	log.Info("starting patchgest", "port", cfg.Port, "database", cfg.DatabasePath)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
