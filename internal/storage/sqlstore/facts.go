package sqlstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	"github.com/kurihiro0119/github-review-metrics/internal/storage"
)

const (
	prActivityColumns = `id, member_id, pr_number, pr_title, pr_state, commits_count,
		received_comments_count, received_reviews_count, created_at, updated_at, merged_at,
		month, repo_owner, repo_name, pr_url`

	reviewActivityColumns = `id, reviewer_id, pr_number, pr_author_id, review_type, review_state,
		comment_count, reviewed_at, month, repo_owner, repo_name`

	commentDetailColumns = `id, commenter_id, pr_number, pr_author_id, comment_type, comment_length,
		is_substantive, created_at, month, repo_owner, repo_name, github_comment_id`
)

// ClearScope deletes comments, reviews and pull requests of the scope, in that order.
func (s *Store) ClearScope(ctx context.Context, scope domain.Scope) error {
	const op = "sqlstore.ClearScope"

	for _, table := range []string{"comment_details", "review_activities", "pr_activities"} {
		query := s.rebind(`DELETE FROM ` + table + ` WHERE month = ? AND repo_owner = ? AND repo_name = ?`)
		_, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query, scope.Month.String(), scope.RepoOwner, scope.RepoName)
		if err != nil {
			return wrap(op, err)
		}
	}
	return nil
}

func (s *Store) SavePRActivity(ctx context.Context, a *domain.PRActivity) error {
	const op = "sqlstore.SavePRActivity"

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := s.rebind(`
		INSERT INTO pr_activities (` + prActivityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (member_id, pr_number, repo_owner, repo_name) DO UPDATE SET
			pr_title = EXCLUDED.pr_title,
			pr_state = EXCLUDED.pr_state,
			commits_count = EXCLUDED.commits_count,
			received_comments_count = EXCLUDED.received_comments_count,
			received_reviews_count = EXCLUDED.received_reviews_count,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			merged_at = EXCLUDED.merged_at,
			month = EXCLUDED.month,
			pr_url = EXCLUDED.pr_url
	`)
	_, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query,
		a.ID, a.MemberID, a.PRNumber, a.PRTitle, a.PRState, a.CommitsCount,
		a.ReceivedCommentsCount, a.ReceivedReviewsCount, a.CreatedAt, a.UpdatedAt, a.MergedAt,
		a.Month, a.RepoOwner, a.RepoName, a.PRURL,
	)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

// SaveReviewActivity always inserts; reviews have no natural key and rely on ClearScope.
func (s *Store) SaveReviewActivity(ctx context.Context, a *domain.ReviewActivity) error {
	const op = "sqlstore.SaveReviewActivity"

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := s.rebind(`
		INSERT INTO review_activities (` + reviewActivityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query,
		a.ID, a.ReviewerID, a.PRNumber, a.PRAuthorID, a.ReviewType, a.ReviewState,
		a.CommentCount, a.ReviewedAt, a.Month, a.RepoOwner, a.RepoName,
	)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

// SaveCommentDetail upserts on the forge comment id within the repository.
func (s *Store) SaveCommentDetail(ctx context.Context, c *domain.CommentDetail) error {
	const op = "sqlstore.SaveCommentDetail"

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := s.rebind(`
		INSERT INTO comment_details (` + commentDetailColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (github_comment_id, repo_owner, repo_name) DO UPDATE SET
			commenter_id = EXCLUDED.commenter_id,
			pr_number = EXCLUDED.pr_number,
			pr_author_id = EXCLUDED.pr_author_id,
			comment_type = EXCLUDED.comment_type,
			comment_length = EXCLUDED.comment_length,
			is_substantive = EXCLUDED.is_substantive,
			created_at = EXCLUDED.created_at,
			month = EXCLUDED.month
	`)
	_, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query,
		c.ID, c.CommenterID, c.PRNumber, c.PRAuthorID, c.CommentType, c.CommentLength,
		c.IsSubstantive, c.CreatedAt, c.Month, c.RepoOwner, c.RepoName, c.GitHubCommentID,
	)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *Store) GetPRActivities(ctx context.Context, memberID, month string) ([]*domain.PRActivity, error) {
	const op = "sqlstore.GetPRActivities"

	query := s.rebind(`
		SELECT ` + prActivityColumns + `
		FROM pr_activities
		WHERE member_id = ? AND month = ?
		ORDER BY created_at, repo_owner, repo_name, pr_number
	`)

	activities := []*domain.PRActivity{}
	if err := s.getter.DefaultTrOrDB(ctx, s.db).SelectContext(ctx, &activities, query, memberID, month); err != nil {
		return nil, wrap(op, err)
	}
	return activities, nil
}

func (s *Store) GetReviewActivities(ctx context.Context, reviewerID, month string) ([]*domain.ReviewActivity, error) {
	const op = "sqlstore.GetReviewActivities"

	query := s.rebind(`
		SELECT ` + reviewActivityColumns + `
		FROM review_activities
		WHERE reviewer_id = ? AND month = ?
		ORDER BY reviewed_at, pr_number
	`)

	activities := []*domain.ReviewActivity{}
	if err := s.getter.DefaultTrOrDB(ctx, s.db).SelectContext(ctx, &activities, query, reviewerID, month); err != nil {
		return nil, wrap(op, err)
	}
	return activities, nil
}

func (s *Store) CountScopeFacts(ctx context.Context, scope domain.Scope) (*storage.ScopeCounts, error) {
	const op = "sqlstore.CountScopeFacts"

	const filter = ` WHERE month = ? AND repo_owner = ? AND repo_name = ?`
	query := s.rebind(`
		SELECT
			(SELECT COUNT(*) FROM pr_activities` + filter + `) AS prs,
			(SELECT COUNT(*) FROM review_activities` + filter + `) AS reviews,
			(SELECT COUNT(*) FROM comment_details` + filter + `) AS comments
	`)

	month := scope.Month.String()
	var counts storage.ScopeCounts
	err := s.getter.DefaultTrOrDB(ctx, s.db).GetContext(ctx, &counts, query,
		month, scope.RepoOwner, scope.RepoName,
		month, scope.RepoOwner, scope.RepoName,
		month, scope.RepoOwner, scope.RepoName,
	)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &counts, nil
}

// GetPRStats counts the member's pull requests of the month across repositories
func (s *Store) GetPRStats(ctx context.Context, memberID, month string) (*domain.PRStats, error) {
	const op = "sqlstore.GetPRStats"

	query := s.rebind(`
		SELECT
			COUNT(*) AS prs_count,
			COALESCE(SUM(commits_count), 0) AS commits_count,
			COALESCE(SUM(received_comments_count), 0) AS received_comments_count
		FROM pr_activities
		WHERE member_id = ? AND month = ?
	`)

	var stats domain.PRStats
	if err := s.getter.DefaultTrOrDB(ctx, s.db).GetContext(ctx, &stats, query, memberID, month); err != nil {
		return nil, wrap(op, err)
	}
	return &stats, nil
}

// GetCommentStats counts the comments the member authored in the month
func (s *Store) GetCommentStats(ctx context.Context, memberID, month string) (*domain.CommentStats, error) {
	const op = "sqlstore.GetCommentStats"

	query := s.rebind(`
		SELECT
			COUNT(*) AS total_comments,
			COALESCE(SUM(CASE WHEN is_substantive THEN 1 ELSE 0 END), 0) AS substantive_comments,
			COALESCE(SUM(comment_length), 0) AS total_comment_length
		FROM comment_details
		WHERE commenter_id = ? AND month = ?
	`)

	var stats domain.CommentStats
	if err := s.getter.DefaultTrOrDB(ctx, s.db).GetContext(ctx, &stats, query, memberID, month); err != nil {
		return nil, wrap(op, err)
	}
	return &stats, nil
}

func (s *Store) GetReviewCount(ctx context.Context, reviewerID, month string) (int64, error) {
	const op = "sqlstore.GetReviewCount"

	query := s.rebind(`SELECT COUNT(*) FROM review_activities WHERE reviewer_id = ? AND month = ?`)

	var count int64
	if err := s.getter.DefaultTrOrDB(ctx, s.db).GetContext(ctx, &count, query, reviewerID, month); err != nil {
		return 0, wrap(op, err)
	}
	return count, nil
}
