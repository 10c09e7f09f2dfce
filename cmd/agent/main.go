package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/invoice-hub-agent/internal/adapters/http"
	"github.com/kirillkom/invoice-hub-agent/internal/bootstrap"
	"github.com/kirillkom/invoice-hub-agent/internal/config"
	"github.com/kirillkom/invoice-hub-agent/internal/observability/logging"
	"github.com/kirillkom/invoice-hub-agent/internal/observability/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTELEndpoint, cfg.OTELInsecure)
	if err != nil {
		slog.Warn("tracing_disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	session := app.SessionManager(ctx)
	go func() {
		if _, err := app.Uploads.Resume(ctx); err != nil {
			slog.Warn("upload_resume_failed", "error", err)
		}
	}()

	router := httpadapter.NewRouter(cfg, httpadapter.Deps{
		Uploads:    app.Uploads,
		Duplicates: app.Duplicates,
		Drafts:     app.Drafts,
		Status:     app.Status,
		Session:    session,
		Review:     app.Review,
		UserConfig: app.UserConfig,
		Spool:      app.Spool,
		Metrics:    app.Metrics,
	}).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("agent_listening", "addr", server.Addr, "backend", cfg.BackendURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("agent_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.APIShutdownTimeoutSecs)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("agent_shutdown_failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("tracing_shutdown_failed", "error", err)
	}
}
