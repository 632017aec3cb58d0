package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-review-metrics/internal/config"
	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	"github.com/kurihiro0119/github-review-metrics/internal/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StorageType: "sqlite",
		SQLitePath:  filepath.Join(t.TempDir(), "metrics.db"),
	}
}

func TestNew_WithoutToken(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Nil(t, a.Syncer)
	require.NotNil(t, a.Aggregator)
	require.NotNil(t, a.Members)

	month, err := domain.ParseMonth("2025-03")
	require.NoError(t, err)
	board, err := a.Aggregator.Leaderboard(context.Background(), month)
	require.NoError(t, err)
	assert.Empty(t, board.Entries)
}

func TestNew_WithToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.GitHubToken = "token"

	a, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.NotNil(t, a.Syncer)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = "postgres"

	_, err := New(context.Background(), cfg, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_URL")
}
