package storage

import (
	"context"
	"errors"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("resource not found")

// MemberStore manages contributor records
type MemberStore interface {
	GetMemberByGitHubID(ctx context.Context, githubID string) (*domain.Member, error)
	// EnsureMember returns the member for the handle, creating a placeholder if absent.
	EnsureMember(ctx context.Context, githubID string) (*domain.Member, error)
	UpsertMember(ctx context.Context, member *domain.Member) (*domain.Member, error)
	SetMemberActive(ctx context.Context, githubID string, active bool) error
	GetActiveMembers(ctx context.Context) ([]*domain.Member, error)
	// ListMembers returns active members grouped by track
	ListMembers(ctx context.Context) ([]*domain.Member, error)
}

// FactStore manages the raw pull request, review and comment facts
type FactStore interface {
	// ClearScope deletes every fact of the scope
	ClearScope(ctx context.Context, scope domain.Scope) error
	SavePRActivity(ctx context.Context, activity *domain.PRActivity) error
	SaveReviewActivity(ctx context.Context, activity *domain.ReviewActivity) error
	SaveCommentDetail(ctx context.Context, comment *domain.CommentDetail) error

	GetPRActivities(ctx context.Context, memberID, month string) ([]*domain.PRActivity, error)
	GetReviewActivities(ctx context.Context, reviewerID, month string) ([]*domain.ReviewActivity, error)
	CountScopeFacts(ctx context.Context, scope domain.Scope) (*ScopeCounts, error)

	// Aggregation reads, across all repositories of the month
	GetPRStats(ctx context.Context, memberID, month string) (*domain.PRStats, error)
	GetCommentStats(ctx context.Context, memberID, month string) (*domain.CommentStats, error)
	GetReviewCount(ctx context.Context, reviewerID, month string) (int64, error)
}

// PerformanceStore manages the monthly summaries
type PerformanceStore interface {
	SavePerformance(ctx context.Context, perf *domain.MonthlyPerformance) error
	GetMemberPerformance(ctx context.Context, memberID, month string) (*domain.MonthlyPerformance, error)
	// GetLeaderboardRows returns every active member with the month's summary, zeros when absent.
	GetLeaderboardRows(ctx context.Context, month string) ([]*domain.LeaderboardEntry, error)
}

// SyncRunStore records sync invocations
type SyncRunStore interface {
	CreateSyncRun(ctx context.Context, run *domain.SyncRun) error
	FinishSyncRun(ctx context.Context, run *domain.SyncRun) error
	ListSyncRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}

// ScopeCounts is the number of fact rows stored for a scope
type ScopeCounts struct {
	PRs      int64 `db:"prs"`
	Reviews  int64 `db:"reviews"`
	Comments int64 `db:"comments"`
}

// Storage is the abstract interface for the persistence layer
type Storage interface {
	MemberStore
	FactStore
	PerformanceStore
	SyncRunStore

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
