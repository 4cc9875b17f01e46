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

	"github.com/mark3labs/mcp-go/server"

	httpadapter "github.com/uxlab/synthetic-merchant/internal/adapters/http"
	mcpadapter "github.com/uxlab/synthetic-merchant/internal/adapters/mcp"
	"github.com/uxlab/synthetic-merchant/internal/bootstrap"
	"github.com/uxlab/synthetic-merchant/internal/config"
	"github.com/uxlab/synthetic-merchant/internal/observability/logging"
	"github.com/uxlab/synthetic-merchant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Setup("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	m := metrics.NewAPIMetrics("api")
	router := httpadapter.NewRouter(
		app.IngestUC,
		app.EvaluateUC,
		app.Transcripts,
		app.Personas,
		m,
		cfg.MaxUploadBytes,
	).Handler()

	if cfg.MCPEnabled {
		mcpSrv := mcpadapter.NewServer(mcpadapter.Deps{
			Evaluator: app.EvaluateUC,
			Searcher:  app.EvaluateUC,
			Personas:  app.Personas,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("mcp_stdio_server_error", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_error", "error", err)
	}
}
