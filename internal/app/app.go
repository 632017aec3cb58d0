// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"

	"github.com/kurihiro0119/github-review-metrics/internal/aggregator"
	"github.com/kurihiro0119/github-review-metrics/internal/collector"
	"github.com/kurihiro0119/github-review-metrics/internal/config"
	"github.com/kurihiro0119/github-review-metrics/internal/logger"
	"github.com/kurihiro0119/github-review-metrics/internal/members"
	"github.com/kurihiro0119/github-review-metrics/internal/storage/postgres"
	"github.com/kurihiro0119/github-review-metrics/internal/storage/sqlite"
	"github.com/kurihiro0119/github-review-metrics/internal/storage/sqlstore"
	"github.com/kurihiro0119/github-review-metrics/internal/syncer"
)

// App holds the wired components
type App struct {
	Store      *sqlstore.Store
	Aggregator aggregator.Aggregator
	Members    *members.Service
	// Syncer is nil when no GitHub credential is configured.
	Syncer *syncer.Service
}

// OpenStorage opens the configured storage backend
func OpenStorage(cfg *config.Config) (*sqlstore.Store, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

// New opens storage and builds the services. A missing GitHub credential is not
// an error here: reads keep working and syncing reports the configuration error.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := OpenStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.StorageType, err)
	}

	trManager := manager.Must(trmsqlx.NewDefaultFactory(store.DB()))
	agg := aggregator.NewAggregator(store, trManager, log)
	a := &App{
		Store:      store,
		Aggregator: agg,
		Members:    members.NewService(trManager, store),
	}

	if err := cfg.ResolveGitHubToken(ctx); err != nil {
		log.Warn("failed to resolve GitHub token from Secrets Manager", logger.Err(err))
	}
	if err := cfg.ValidateGitHub(); err != nil {
		log.Warn("syncing disabled", logger.Err(err))
		return a, nil
	}

	coll, err := collector.NewGitHubCollector(collector.Options{
		Token:     cfg.GitHubToken,
		BaseURL:   cfg.GitHubAPIURL,
		PageDelay: cfg.SearchPageDelay,
		PRDelay:   cfg.PRFetchDelay,
		Logger:    log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	a.Syncer = syncer.NewService(log, trManager, coll, store, agg)

	return a, nil
}

// Close releases the storage connection
func (a *App) Close() error {
	return a.Store.Close()
}
