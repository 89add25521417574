package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/interviewos/internal/api"
	"github.com/MikeSquared-Agency/interviewos/internal/captions"
	"github.com/MikeSquared-Agency/interviewos/internal/config"
	"github.com/MikeSquared-Agency/interviewos/internal/events"
	"github.com/MikeSquared-Agency/interviewos/internal/tavus"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("interviewos starting", "port", cfg.Port, "environment", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if missing := cfg.Missing(); len(missing) > 0 {
		slog.Error("missing required environment variables", "missing", missing)
		os.Exit(1)
	}

	gw := tavus.NewClient(cfg.TavusAPIKey, cfg.TavusBaseURL, slog.Default())
	gw.Redact(cfg.PersonaID, cfg.ReplicaID)
	slog.Info("tavus client ready",
		"base_url", cfg.TavusBaseURL,
		"persona_id", tavus.Mask(cfg.PersonaID),
		"replica_id", tavus.Mask(cfg.ReplicaID),
	)

	// NATS is optional; without it lifecycle events are dropped.
	var pub events.Publisher
	if cfg.NatsURL != "" {
		client, err := events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		pub = client
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, lifecycle events disabled")
	}
	lifecycle := events.NewLifecycle(pub, slog.Default())

	hub := captions.NewHub(captions.DefaultCapacity, slog.Default())
	defer hub.CloseAll()

	srv := api.NewServer(api.Options{
		Port:        cfg.Port,
		PersonaID:   cfg.PersonaID,
		ReplicaID:   cfg.ReplicaID,
		Environment: cfg.Environment,
		StaticDir:   cfg.StaticDir,
	}, gw, hub, lifecycle, slog.Default())

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	slog.Info("interviewos ready", "health", "/api/health")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}
	slog.Info("interviewos stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
