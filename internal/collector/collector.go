package collector

import (
	"context"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
)

// Collector defines the interface for collecting pull request activity from GitHub
type Collector interface {
	// ListPullRequestsForMonth searches pull requests created in the month.
	// A non-success search response fails the whole call.
	ListPullRequestsForMonth(ctx context.Context, repo domain.RepoRef, month domain.Month) ([]*domain.PullRequest, error)

	// FetchCommentsAndReviews fetches reviews, review comments and issue comments concurrently.
	// Non-success responses degrade to empty lists.
	FetchCommentsAndReviews(ctx context.Context, repo domain.RepoRef, number int) (*CommentsAndReviews, error)

	// FetchCommits fetches the commits of a pull request, degrading to an empty list.
	FetchCommits(ctx context.Context, repo domain.RepoRef, number int) ([]*domain.Commit, error)

	// GetCompleteMonthData returns every pull request of the month with its sub-resources.
	GetCompleteMonthData(ctx context.Context, repo domain.RepoRef, month domain.Month) ([]*domain.PRData, error)
}

// CommentsAndReviews holds the review-related sub-resources of one pull request
type CommentsAndReviews struct {
	Reviews        []*domain.Review
	ReviewComments []*domain.Comment
	IssueComments  []*domain.Comment
}
