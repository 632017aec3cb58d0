package domain

import "time"

// SyncStatus is the lifecycle state of a sync run.
type SyncStatus string

const (
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
)

// SyncResult is what one sync reports back to its caller.
type SyncResult struct {
	ProcessedPRs  int `json:"processedPRs"`
	TotalComments int `json:"totalComments"`
	TotalItems    int `json:"totalItems"`
	// DegradedPRs were stored without their commits, reviews and comments.
	DegradedPRs   int `json:"degradedPRs,omitempty"`
}

// SyncRun records one sync invocation
type SyncRun struct {
	ID            string     `db:"id" json:"id"`
	Month         string     `db:"month" json:"month"`
	RepoOwner     string     `db:"repo_owner" json:"repo_owner"`
	RepoName      string     `db:"repo_name" json:"repo_name"`
	Status        SyncStatus `db:"status" json:"status"`
	ProcessedPRs  int        `db:"processed_prs" json:"processed_prs"`
	TotalComments int        `db:"total_comments" json:"total_comments"`
	DegradedPRs   int        `db:"degraded_prs" json:"degraded_prs"`
	Error         *string    `db:"error" json:"error,omitempty"`
	StartedAt     time.Time  `db:"started_at" json:"started_at"`
	FinishedAt    *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}
