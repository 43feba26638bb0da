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

	httpadapter "github.com/kirillkom/document-qa-bot/internal/adapters/http"
	mcpadapter "github.com/kirillkom/document-qa-bot/internal/adapters/mcp"
	"github.com/kirillkom/document-qa-bot/internal/bootstrap"
	"github.com/kirillkom/document-qa-bot/internal/config"
	"github.com/kirillkom/document-qa-bot/internal/observability/logging"
	"github.com/kirillkom/document-qa-bot/internal/observability/metrics"
)

func main() {
	config.LoadDotEnv(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app := bootstrap.NewAPI(ctx, cfg, bootstrap.Options{
		Logger:   logger,
		Observer: httpMetrics.Resilience(),
	})
	defer app.Close()

	opts := []httpadapter.Option{
		httpadapter.WithLogger(logger),
		httpadapter.WithMetrics(httpMetrics),
	}
	if cfg.MCPEnabled {
		opts = append(opts, httpadapter.WithMCPHandler(mcpadapter.New(app.Query, logger).Handler()))
	}
	router, err := httpadapter.NewRouter(cfg, app.Query, opts...)
	if err != nil {
		logger.Error("router_init_failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.LLMTimeout() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr, "qa_chain_ready", app.Query.Ready())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
