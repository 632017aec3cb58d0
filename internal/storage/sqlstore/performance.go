package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
)

const performanceColumns = `id, member_id, month, commits_count, prs_count, review_comments_count,
	pr_comments_count, total_comments_count, created_at, updated_at`

// SavePerformance upserts the summary of (member, month)
func (s *Store) SavePerformance(ctx context.Context, p *domain.MonthlyPerformance) error {
	const op = "sqlstore.SavePerformance"

	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := s.rebind(`
		INSERT INTO team_performances (` + performanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (member_id, month) DO UPDATE SET
			commits_count = EXCLUDED.commits_count,
			prs_count = EXCLUDED.prs_count,
			review_comments_count = EXCLUDED.review_comments_count,
			pr_comments_count = EXCLUDED.pr_comments_count,
			total_comments_count = EXCLUDED.total_comments_count,
			updated_at = EXCLUDED.updated_at
	`)
	_, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query,
		p.ID, p.MemberID, p.Month, p.CommitsCount, p.PRsCount, p.ReviewCommentsCount,
		p.PRCommentsCount, p.TotalCommentsCount, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *Store) GetMemberPerformance(ctx context.Context, memberID, month string) (*domain.MonthlyPerformance, error) {
	const op = "sqlstore.GetMemberPerformance"

	query := s.rebind(`SELECT ` + performanceColumns + ` FROM team_performances WHERE member_id = ? AND month = ?`)

	var perf domain.MonthlyPerformance
	if err := s.getter.DefaultTrOrDB(ctx, s.db).GetContext(ctx, &perf, query, memberID, month); err != nil {
		return nil, wrap(op, err)
	}
	return &perf, nil
}

// GetLeaderboardRows joins active members with the month's summaries, ordered by name.
func (s *Store) GetLeaderboardRows(ctx context.Context, month string) ([]*domain.LeaderboardEntry, error) {
	const op = "sqlstore.GetLeaderboardRows"

	query := s.rebind(`
		SELECT
			m.id AS member_id,
			m.name,
			m.github_id,
			m.track_name,
			COALESCE(p.commits_count, 0) AS commits_count,
			COALESCE(p.prs_count, 0) AS prs_count,
			COALESCE(p.review_comments_count, 0) AS review_comments_count,
			COALESCE(p.pr_comments_count, 0) AS pr_comments_count,
			COALESCE(p.total_comments_count, 0) AS total_comments_count
		FROM team_members m
		LEFT JOIN team_performances p ON p.member_id = m.id AND p.month = ?
		WHERE m.is_active = ?
		ORDER BY m.name, m.github_id
	`)

	rows := []*domain.LeaderboardEntry{}
	if err := s.getter.DefaultTrOrDB(ctx, s.db).SelectContext(ctx, &rows, query, month, true); err != nil {
		return nil, wrap(op, err)
	}
	return rows, nil
}
