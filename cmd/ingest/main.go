package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kirillkom/document-qa-bot/internal/bootstrap"
	"github.com/kirillkom/document-qa-bot/internal/config"
	"github.com/kirillkom/document-qa-bot/internal/core/usecase"
	"github.com/kirillkom/document-qa-bot/internal/observability/logging"
)

func main() {
	initIndex := flag.Bool("init", false, "create the vector index if it does not exist")
	enqueue := flag.Bool("enqueue", false, "copy files to shared storage and queue them for the worker instead of indexing here")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: ingest [-init] [-enqueue] [paths...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	config.LoadDotEnv(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("ingest", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{cfg.DataDir}
	}

	opts := bootstrap.Options{Logger: logger}
	if *enqueue {
		if err := runEnqueue(ctx, cfg, opts, paths); err != nil {
			logger.Error("enqueue_failed", "error", err)
			os.Exit(1)
		}
		return
	}

	app, err := bootstrap.NewIngest(ctx, cfg, *initIndex, opts)
	if err != nil {
		logger.Error("ingest_bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	report, err := app.Ingestor.IngestPaths(ctx, paths)
	if err != nil {
		logger.Error("ingest_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("ingest_done", "files", report.Files, "chunks", report.Chunks, "failed", report.Failed)
	if report.Failed > 0 {
		os.Exit(2)
	}
}

func runEnqueue(ctx context.Context, cfg config.Config, opts bootstrap.Options, paths []string) error {
	app, err := bootstrap.NewEnqueue(cfg, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	files, err := usecase.ExpandPaths(paths)
	if err != nil {
		return err
	}
	for _, file := range files {
		key, err := enqueueFile(ctx, app, file)
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", file, err)
		}
		opts.Logger.Info("document_enqueued", "path", file, "storage_key", key)
	}
	return nil
}

func enqueueFile(ctx context.Context, app *bootstrap.App, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return app.Enqueuer.Enqueue(ctx, filepath.Base(path), f)
}
