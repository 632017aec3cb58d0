// Package syncer replays a month of forge activity for one repository into the
// fact tables and triggers the monthly recompute.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/kurihiro0119/github-review-metrics/internal/classifier"
	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
	"github.com/kurihiro0119/github-review-metrics/internal/logger"
)

// Collector fetches a month of pull requests with their sub-resources
type Collector interface {
	GetCompleteMonthData(ctx context.Context, repo domain.RepoRef, month domain.Month) ([]*domain.PRData, error)
}

// Store is the write side the sync owns
type Store interface {
	EnsureMember(ctx context.Context, githubID string) (*domain.Member, error)

	ClearScope(ctx context.Context, scope domain.Scope) error
	SavePRActivity(ctx context.Context, activity *domain.PRActivity) error
	SaveReviewActivity(ctx context.Context, activity *domain.ReviewActivity) error
	SaveCommentDetail(ctx context.Context, comment *domain.CommentDetail) error

	CreateSyncRun(ctx context.Context, run *domain.SyncRun) error
	FinishSyncRun(ctx context.Context, run *domain.SyncRun) error
}

// Recomputer rebuilds the monthly summaries
type Recomputer interface {
	RecomputeMonthlyStats(ctx context.Context, month domain.Month) error
}

// TransactionManager runs fn in a transaction carried by ctx
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service drives one sync per scope
type Service struct {
	collector  Collector
	store      Store
	recomputer Recomputer
	trm        TransactionManager
	log        *slog.Logger
}

func NewService(log *slog.Logger, trm TransactionManager, collector Collector, store Store, recomputer Recomputer) *Service {
	return &Service{
		collector:  collector,
		store:      store,
		recomputer: recomputer,
		trm:        trm,
		log:        log,
	}
}

// Sync fetches the scope's pull requests, replaces the scope's facts with them and
// recomputes the month. The clear phase and each pull request are committed on
// their own, so a failure part way leaves the facts persisted so far. Every call
// is recorded as a sync run.
func (s *Service) Sync(ctx context.Context, scope domain.Scope) (*domain.SyncResult, error) {
	const op = "syncer.Sync"

	log := s.log.With(slog.String("op", op), slog.String("scope", scope.String()))

	run := &domain.SyncRun{
		Month:     scope.Month.String(),
		RepoOwner: scope.RepoOwner,
		RepoName:  scope.RepoName,
		Status:    domain.SyncStatusInProgress,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSyncRun(ctx, run); err != nil {
		return nil, fmt.Errorf("%s: failed to record sync run: %w", op, err)
	}

	result, err := s.sync(ctx, scope, log)

	if result != nil {
		run.ProcessedPRs = result.ProcessedPRs
		run.TotalComments = result.TotalComments
		run.DegradedPRs = result.DegradedPRs
	}
	if err != nil {
		msg := err.Error()
		run.Status = domain.SyncStatusFailed
		run.Error = &msg
	} else {
		run.Status = domain.SyncStatusCompleted
	}
	if finishErr := s.store.FinishSyncRun(context.WithoutCancel(ctx), run); finishErr != nil {
		log.Error("failed to finish sync run", slog.String("run", run.ID), logger.Err(finishErr))
	}

	if err != nil {
		log.Error("sync failed", logger.Err(err))
		return nil, err
	}

	log.Info("sync completed",
		slog.Int("processed_prs", result.ProcessedPRs),
		slog.Int("total_comments", result.TotalComments),
		slog.Int("total_items", result.TotalItems),
		slog.Int("degraded_prs", result.DegradedPRs),
	)
	return result, nil
}

// sync returns the counters reached so far alongside any error.
func (s *Service) sync(ctx context.Context, scope domain.Scope, log *slog.Logger) (*domain.SyncResult, error) {
	items, err := s.collector.GetCompleteMonthData(ctx, scope.Repo(), scope.Month)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch month data: %w", err)
	}
	log.Info("month data fetched", slog.Int("items", len(items)))

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		return s.store.ClearScope(ctx, scope)
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to clear previous data", err)
	}

	result := &domain.SyncResult{TotalItems: len(items)}
	for _, item := range items {
		var comments int
		err := s.trm.Do(ctx, func(ctx context.Context) error {
			var err error
			comments, err = s.persistPR(ctx, scope, item)
			return err
		})
		if err != nil {
			return result, apperrors.NewInternalError(fmt.Sprintf("failed to persist pull request #%d", item.PR.Number), err)
		}
		result.TotalComments += comments
		result.ProcessedPRs++
		if item.Degraded {
			log.Warn("stored pull request without sub-resources", slog.Int("pr", item.PR.Number))
			result.DegradedPRs++
		}
	}

	if err := s.recomputer.RecomputeMonthlyStats(ctx, scope.Month); err != nil {
		return result, apperrors.NewInternalError("failed to recompute monthly stats", err)
	}
	return result, nil
}

// persistPR stores one pull request with its reviews and comments and returns the
// number of comments stored.
func (s *Service) persistPR(ctx context.Context, scope domain.Scope, item *domain.PRData) (int, error) {
	pr := item.PR
	month := scope.Month.String()

	authorLogin := pr.Author
	if authorLogin == "" {
		authorLogin = domain.GhostLogin
	}
	author, err := s.store.EnsureMember(ctx, authorLogin)
	if err != nil {
		return 0, err
	}

	err = s.store.SavePRActivity(ctx, &domain.PRActivity{
		MemberID:              author.ID,
		PRNumber:              pr.Number,
		PRTitle:               pr.Title,
		PRState:               pr.State,
		CommitsCount:          len(item.Commits),
		ReceivedCommentsCount: item.ReceivedCommentsCount(),
		ReceivedReviewsCount:  len(item.Reviews),
		CreatedAt:             pr.CreatedAt,
		UpdatedAt:             pr.UpdatedAt,
		MergedAt:              pr.MergedAt,
		Month:                 month,
		RepoOwner:             scope.RepoOwner,
		RepoName:              scope.RepoName,
		PRURL:                 pr.HTMLURL,
	})
	if err != nil {
		return 0, err
	}

	for _, review := range item.Reviews {
		if review.Author == "" {
			continue
		}
		reviewer, err := s.store.EnsureMember(ctx, review.Author)
		if err != nil {
			return 0, err
		}
		err = s.store.SaveReviewActivity(ctx, &domain.ReviewActivity{
			ReviewerID:   reviewer.ID,
			PRNumber:     pr.Number,
			PRAuthorID:   author.ID,
			ReviewType:   domain.ReviewTypeReview,
			ReviewState:  review.State,
			CommentCount: 1,
			ReviewedAt:   review.SubmittedAt,
			Month:        month,
			RepoOwner:    scope.RepoOwner,
			RepoName:     scope.RepoName,
		})
		if err != nil {
			return 0, err
		}
	}

	comments := 0
	for _, group := range []struct {
		kind     domain.CommentType
		comments []*domain.Comment
	}{
		{domain.CommentTypeReview, item.ReviewComments},
		{domain.CommentTypeIssue, item.IssueComments},
	} {
		for _, c := range group.comments {
			if c.Author == "" {
				continue
			}
			commenter, err := s.store.EnsureMember(ctx, c.Author)
			if err != nil {
				return 0, err
			}
			err = s.store.SaveCommentDetail(ctx, &domain.CommentDetail{
				CommenterID:     commenter.ID,
				PRNumber:        pr.Number,
				PRAuthorID:      author.ID,
				CommentType:     group.kind,
				CommentLength:   utf8.RuneCountInString(c.Body),
				IsSubstantive:   classifier.IsSubstantive(c.Body),
				CreatedAt:       c.CreatedAt,
				Month:           month,
				RepoOwner:       scope.RepoOwner,
				RepoName:        scope.RepoName,
				GitHubCommentID: c.ID,
			})
			if err != nil {
				return 0, err
			}
			comments++
		}
	}

	return comments, nil
}
