package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
)

const syncRunColumns = `id, month, repo_owner, repo_name, status, processed_prs, total_comments,
	degraded_prs, error, started_at, finished_at`

const defaultRunsLimit = 20

// CreateSyncRun inserts the run, assigning its id and start time when unset.
func (s *Store) CreateSyncRun(ctx context.Context, run *domain.SyncRun) error {
	const op = "sqlstore.CreateSyncRun"

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = domain.SyncStatusInProgress
	}

	query := s.rebind(`
		INSERT INTO sync_runs (` + syncRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query,
		run.ID, run.Month, run.RepoOwner, run.RepoName, run.Status, run.ProcessedPRs,
		run.TotalComments, run.DegradedPRs, run.Error, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

// FinishSyncRun stores the final status and counters of the run.
func (s *Store) FinishSyncRun(ctx context.Context, run *domain.SyncRun) error {
	const op = "sqlstore.FinishSyncRun"

	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}

	query := s.rebind(`
		UPDATE sync_runs
		SET status = ?, processed_prs = ?, total_comments = ?, degraded_prs = ?, error = ?, finished_at = ?
		WHERE id = ?
	`)
	_, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query,
		run.Status, run.ProcessedPRs, run.TotalComments, run.DegradedPRs, run.Error, run.FinishedAt, run.ID,
	)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

// ListSyncRuns returns the most recent runs first
func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	const op = "sqlstore.ListSyncRuns"

	if limit <= 0 {
		limit = defaultRunsLimit
	}
	query := s.rebind(`SELECT ` + syncRunColumns + ` FROM sync_runs ORDER BY started_at DESC, id LIMIT ?`)

	runs := []*domain.SyncRun{}
	if err := s.getter.DefaultTrOrDB(ctx, s.db).SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, wrap(op, err)
	}
	return runs, nil
}
