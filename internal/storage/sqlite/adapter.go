package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/github-review-metrics/internal/storage/sqlstore"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS team_members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		github_id TEXT NOT NULL UNIQUE,
		track_id TEXT NOT NULL,
		track_name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_team_members_active ON team_members(is_active)`,

	`CREATE TABLE IF NOT EXISTS team_performances (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES team_members(id),
		month TEXT NOT NULL,
		commits_count INTEGER NOT NULL DEFAULT 0,
		prs_count INTEGER NOT NULL DEFAULT 0,
		review_comments_count INTEGER NOT NULL DEFAULT 0,
		pr_comments_count INTEGER NOT NULL DEFAULT 0,
		total_comments_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (member_id, month)
	)`,

	`CREATE TABLE IF NOT EXISTS pr_activities (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES team_members(id),
		pr_number INTEGER NOT NULL,
		pr_title TEXT NOT NULL,
		pr_state TEXT NOT NULL,
		commits_count INTEGER NOT NULL DEFAULT 0,
		received_comments_count INTEGER NOT NULL DEFAULT 0,
		received_reviews_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		merged_at TIMESTAMP,
		month TEXT NOT NULL,
		repo_owner TEXT NOT NULL,
		repo_name TEXT NOT NULL,
		pr_url TEXT NOT NULL,
		UNIQUE (member_id, pr_number, repo_owner, repo_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pr_activities_scope ON pr_activities(month, repo_owner, repo_name)`,
	`CREATE INDEX IF NOT EXISTS idx_pr_activities_member_month ON pr_activities(member_id, month)`,

	`CREATE TABLE IF NOT EXISTS review_activities (
		id TEXT PRIMARY KEY,
		reviewer_id TEXT NOT NULL REFERENCES team_members(id),
		pr_number INTEGER NOT NULL,
		pr_author_id TEXT NOT NULL REFERENCES team_members(id),
		review_type TEXT NOT NULL,
		review_state TEXT NOT NULL,
		comment_count INTEGER NOT NULL DEFAULT 0,
		reviewed_at TIMESTAMP NOT NULL,
		month TEXT NOT NULL,
		repo_owner TEXT NOT NULL,
		repo_name TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_activities_scope ON review_activities(month, repo_owner, repo_name)`,
	`CREATE INDEX IF NOT EXISTS idx_review_activities_reviewer_month ON review_activities(reviewer_id, month)`,

	`CREATE TABLE IF NOT EXISTS comment_details (
		id TEXT PRIMARY KEY,
		commenter_id TEXT NOT NULL REFERENCES team_members(id),
		pr_number INTEGER NOT NULL,
		pr_author_id TEXT NOT NULL REFERENCES team_members(id),
		comment_type TEXT NOT NULL,
		comment_length INTEGER NOT NULL,
		is_substantive BOOLEAN NOT NULL,
		created_at TIMESTAMP NOT NULL,
		month TEXT NOT NULL,
		repo_owner TEXT NOT NULL,
		repo_name TEXT NOT NULL,
		github_comment_id INTEGER NOT NULL,
		UNIQUE (github_comment_id, repo_owner, repo_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comment_details_scope ON comment_details(month, repo_owner, repo_name)`,
	`CREATE INDEX IF NOT EXISTS idx_comment_details_commenter_month ON comment_details(commenter_id, month)`,

	`CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		month TEXT NOT NULL,
		repo_owner TEXT NOT NULL,
		repo_name TEXT NOT NULL,
		status TEXT NOT NULL,
		processed_prs INTEGER NOT NULL DEFAULT 0,
		total_comments INTEGER NOT NULL DEFAULT 0,
		degraded_prs INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at)`,
}

// NewSQLiteStorage opens the database file and creates the schema
func NewSQLiteStorage(dbPath string) (*sqlstore.Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	s := sqlstore.New(db, schema)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}
