package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kurihiro0119/github-review-metrics/internal/api"
	"github.com/kurihiro0119/github-review-metrics/internal/app"
	"github.com/kurihiro0119/github-review-metrics/internal/config"
	"github.com/kurihiro0119/github-review-metrics/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.Setup(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Error("failed to initialize application", logger.Err(err))
		os.Exit(1)
	}
	defer a.Close()

	// A nil *syncer.Service must not become a non-nil interface value.
	var syncer api.Syncer
	if a.Syncer != nil {
		syncer = a.Syncer
	}

	handler := api.NewHandler(lg, syncer, a.Aggregator, a.Members, a.Store)
	router := api.SetupRoutes(handler, lg)

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		lg.Info("starting API server", "addr", addr, "storage", cfg.StorageType, "sync_enabled", syncer != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("failed to start server", logger.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("failed to shut down server", logger.Err(err))
	}
}
