package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/document-qa-bot/internal/bootstrap"
	"github.com/kirillkom/document-qa-bot/internal/config"
	"github.com/kirillkom/document-qa-bot/internal/core/domain"
	"github.com/kirillkom/document-qa-bot/internal/observability/logging"
	"github.com/kirillkom/document-qa-bot/internal/observability/metrics"
)

const documentTimeout = 5 * time.Minute

func main() {
	config.LoadDotEnv(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.NewWorker(ctx, cfg, bootstrap.Options{
		Logger:   logger,
		Observer: workerMetrics.Resilience(),
	})
	if err != nil {
		logger.Error("worker_bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_addr", metricsServer.Addr)
	err = app.Queue.SubscribeIngest(ctx, func(handlerCtx context.Context, req domain.IngestRequest) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, documentTimeout)
		defer cancel()

		start := time.Now()
		workerMetrics.StartDocument()
		chunks, err := app.StoredIngest.IngestStored(processCtx, req)
		workerMetrics.FinishDocument(time.Since(start), err)
		if err != nil {
			return err
		}
		logger.Info("worker_document_indexed", "storage_key", req.StorageKey, "source", req.Source, "chunks", chunks)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

