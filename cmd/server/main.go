package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/pmobuilder/internal/config"
	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
	"github.com/JonMunkholm/pmobuilder/internal/service"
	"github.com/JonMunkholm/pmobuilder/internal/store"
	"github.com/JonMunkholm/pmobuilder/internal/web"
)

// sweepInterval is how often expired sessions are dropped.
const sweepInterval = 5 * time.Minute

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_backend", cfg.Store.Backend,
		"match_method", cfg.Matching.Method,
		"match_assignment", cfg.Matching.Assignment,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"auth_required", cfg.Security.RequireAPIKey,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	panels, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open panel store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if ids, err := panels.List(ctx); err == nil {
		slog.Info("panel store ready", "backend", cfg.Store.Backend, "panels", len(ids))
	}
	for _, def := range core.All() {
		slog.Debug("section registered", "kind", def.Kind, "fields", len(def.Fields))
	}

	svc := service.New(panels, service.ConfigFrom(cfg))
	server := web.NewServer(svc, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go server.Sessions().Run(jobCtx, sweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active conversions to complete (with timeout)
		status := svc.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for conversions to complete", "active", status.Active)
			if err := svc.WaitForConversions(shutdownCtx); err != nil {
				slog.Warn("conversions did not complete in time", "error", err)
			} else {
				slog.Info("all conversions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
