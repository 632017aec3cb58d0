package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
	"github.com/kurihiro0119/github-review-metrics/internal/storage"
)

// Aggregator defines the interface for the monthly summaries and their read side
type Aggregator interface {
	// RecomputeMonthlyStats rebuilds the summary of every active member for the month
	RecomputeMonthlyStats(ctx context.Context, month domain.Month) error

	// Leaderboard ranks active members by score for the month
	Leaderboard(ctx context.Context, month domain.Month) (*domain.Leaderboard, error)

	// GetMemberActivities lists a member's pull requests and reviews for the month
	GetMemberActivities(ctx context.Context, githubID string, month domain.Month) (*domain.MemberActivities, error)

	// GetMemberPerformance returns the stored summary of a member for the month
	GetMemberPerformance(ctx context.Context, githubID string, month domain.Month) (*domain.MemberPerformance, error)
}

// Store is the persistence the aggregator reads facts from and writes summaries to
type Store interface {
	GetActiveMembers(ctx context.Context) ([]*domain.Member, error)
	GetMemberByGitHubID(ctx context.Context, githubID string) (*domain.Member, error)

	GetPRStats(ctx context.Context, memberID, month string) (*domain.PRStats, error)
	GetCommentStats(ctx context.Context, memberID, month string) (*domain.CommentStats, error)
	GetReviewCount(ctx context.Context, reviewerID, month string) (int64, error)
	GetPRActivities(ctx context.Context, memberID, month string) ([]*domain.PRActivity, error)
	GetReviewActivities(ctx context.Context, reviewerID, month string) ([]*domain.ReviewActivity, error)

	SavePerformance(ctx context.Context, perf *domain.MonthlyPerformance) error
	GetMemberPerformance(ctx context.Context, memberID, month string) (*domain.MonthlyPerformance, error)
	GetLeaderboardRows(ctx context.Context, month string) ([]*domain.LeaderboardEntry, error)
}

// TransactionManager runs fn in a transaction carried by ctx
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// aggregator implements the Aggregator interface
type aggregator struct {
	store Store
	trm   TransactionManager
	log   *slog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(store Store, trm TransactionManager, log *slog.Logger) Aggregator {
	return &aggregator{
		store: store,
		trm:   trm,
		log:   log,
	}
}

// RecomputeMonthlyStats recomputes from the fact tables only, so running it twice
// without writes in between yields the same rows. Summaries of inactive members
// are left as they are.
func (a *aggregator) RecomputeMonthlyStats(ctx context.Context, month domain.Month) error {
	return a.trm.Do(ctx, func(ctx context.Context) error {
		members, err := a.store.GetActiveMembers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list active members: %w", err)
		}

		for _, member := range members {
			if err := a.recomputeMember(ctx, member, month.String()); err != nil {
				return err
			}
		}

		a.log.Info("monthly stats recomputed",
			slog.String("month", month.String()),
			slog.Int("members", len(members)),
		)
		return nil
	})
}

func (a *aggregator) recomputeMember(ctx context.Context, member *domain.Member, month string) error {
	prStats, err := a.store.GetPRStats(ctx, member.ID, month)
	if err != nil {
		return fmt.Errorf("failed to get pr stats for %s: %w", member.GitHubID, err)
	}
	commentStats, err := a.store.GetCommentStats(ctx, member.ID, month)
	if err != nil {
		return fmt.Errorf("failed to get comment stats for %s: %w", member.GitHubID, err)
	}
	reviews, err := a.store.GetReviewCount(ctx, member.ID, month)
	if err != nil {
		return fmt.Errorf("failed to get review count for %s: %w", member.GitHubID, err)
	}

	// substantive count, comment length and reviews are not part of the summary yet
	a.log.Debug("member stats",
		slog.String("member", member.GitHubID),
		slog.Int64("reviews", reviews),
		slog.Int64("substantive_comments", commentStats.SubstantiveComments),
		slog.Int64("comment_length", commentStats.TotalCommentLength),
	)

	perf := &domain.MonthlyPerformance{
		MemberID:            member.ID,
		Month:               month,
		CommitsCount:        prStats.CommitsCount,
		PRsCount:            prStats.PRsCount,
		ReviewCommentsCount: commentStats.TotalComments,
		PRCommentsCount:     prStats.ReceivedCommentsCount,
		TotalCommentsCount:  commentStats.TotalComments,
	}
	if err := a.store.SavePerformance(ctx, perf); err != nil {
		return fmt.Errorf("failed to save performance for %s: %w", member.GitHubID, err)
	}
	return nil
}

// Leaderboard sorts by score descending; ties keep the store's name order.
func (a *aggregator) Leaderboard(ctx context.Context, month domain.Month) (*domain.Leaderboard, error) {
	entries, err := a.store.GetLeaderboardRows(ctx, month.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard rows: %w", err)
	}

	scores := make(stats.Float64Data, 0, len(entries))
	for _, e := range entries {
		e.ComputeScore()
		scores = append(scores, float64(e.Score))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i, e := range entries {
		e.Rank = i + 1
	}

	board := &domain.Leaderboard{
		Month:   month.String(),
		Entries: entries,
	}
	if len(scores) > 0 {
		if board.MeanScore, err = stats.Mean(scores); err != nil {
			return nil, fmt.Errorf("failed to compute mean score: %w", err)
		}
		if board.MedianScore, err = stats.Median(scores); err != nil {
			return nil, fmt.Errorf("failed to compute median score: %w", err)
		}
	}
	return board, nil
}

func (a *aggregator) GetMemberActivities(ctx context.Context, githubID string, month domain.Month) (*domain.MemberActivities, error) {
	member, err := a.store.GetMemberByGitHubID(ctx, githubID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("member " + githubID)
		}
		return nil, err
	}

	prs, err := a.store.GetPRActivities(ctx, member.ID, month.String())
	if err != nil {
		return nil, err
	}
	reviews, err := a.store.GetReviewActivities(ctx, member.ID, month.String())
	if err != nil {
		return nil, err
	}

	return &domain.MemberActivities{
		Member:  member,
		Month:   month.String(),
		PRs:     prs,
		Reviews: reviews,
	}, nil
}

func (a *aggregator) GetMemberPerformance(ctx context.Context, githubID string, month domain.Month) (*domain.MemberPerformance, error) {
	member, err := a.store.GetMemberByGitHubID(ctx, githubID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("member " + githubID)
		}
		return nil, err
	}

	perf, err := a.store.GetMemberPerformance(ctx, member.ID, month.String())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("performance of %s for %s", githubID, month))
		}
		return nil, err
	}

	return &domain.MemberPerformance{
		Member:      member,
		Performance: perf,
		Score:       perf.Score(),
	}, nil
}
