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

	"github.com/uxlab/synthetic-merchant/internal/bootstrap"
	"github.com/uxlab/synthetic-merchant/internal/config"
	"github.com/uxlab/synthetic-merchant/internal/observability/logging"
	"github.com/uxlab/synthetic-merchant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Setup("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	m := metrics.NewWorkerMetrics("worker")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", m.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsSrv := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     metricsMux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeTranscriptIngested(ctx, func(handlerCtx context.Context, transcriptID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if t, err := app.Transcripts.GetByID(processCtx, transcriptID); err == nil {
			m.ObserveQueueLag("worker", time.Since(t.CreatedAt))
		}

		m.StartTranscript()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, transcriptID)
		m.FinishTranscript("worker", time.Since(start), processErr)

		if processErr == nil {
			if t, err := app.Transcripts.GetByID(processCtx, transcriptID); err == nil {
				m.ObserveChunksIndexed("worker", t.ChunkCount)
			}
		}
		return processErr
	})
	if err != nil {
		slog.Error("worker_subscribe_error", "error", err)
		os.Exit(1)
	}
}
