package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/themis/internal/api"
	"github.com/MikeSquared-Agency/themis/internal/config"
	"github.com/MikeSquared-Agency/themis/internal/hermes"
	"github.com/MikeSquared-Agency/themis/internal/persona"
	"github.com/MikeSquared-Agency/themis/internal/pipeline"
	"github.com/MikeSquared-Agency/themis/internal/policy"
	"github.com/MikeSquared-Agency/themis/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("themis starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if err := store.Migrate(ctx, cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Routing policy
	pol, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		slog.Error("failed to load policy", "error", err)
		os.Exit(1)
	}
	if cfg.PolicyFile != "" {
		slog.Info("policy loaded", "file", cfg.PolicyFile)
	}

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Decision pipeline
	catalog := persona.NewCatalog()
	personas := persona.NewStateManager(catalog, pol.Persona.TransitionLogCap)
	engine := pipeline.New(pol, catalog, personas, db, hermesClient, slog.Default())

	// Subscribe to expert contributions
	if err := hermesClient.Subscribe(hermes.SubjectContributionSubmitted, engine.HandleContribution); err != nil {
		slog.Error("failed to subscribe to contribution events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, engine, catalog, personas)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := hermesClient.Publish(hermes.SubjectAgentRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
		"agent":     "themis",
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("themis ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("themis stopped")
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
