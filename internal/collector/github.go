package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
	"github.com/kurihiro0119/github-review-metrics/internal/logger"
)

const (
	perPage = 100

	defaultPageDelay = time.Second
	defaultPRDelay   = 500 * time.Millisecond
)

// Options configures a GitHubCollector
type Options struct {
	Token   string
	BaseURL string // defaults to https://api.github.com/

	// PageDelay is slept between search pages, PRDelay after each pull request.
	PageDelay time.Duration
	PRDelay   time.Duration

	Sleep  SleepFunc
	Logger *slog.Logger
}

// GitHubCollector implements Collector using GitHub API
type GitHubCollector struct {
	client      *github.Client
	rateLimiter RateLimiter
	pageDelay   time.Duration
	prDelay     time.Duration
	log         *slog.Logger
}

// NewGitHubCollector creates a new GitHub collector. A missing token fails before any network call.
func NewGitHubCollector(opts Options) (*GitHubCollector, error) {
	if opts.Token == "" {
		return nil, apperrors.NewConfigError("GitHub token not configured", nil)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.PageDelay == 0 {
		opts.PageDelay = defaultPageDelay
	}
	if opts.PRDelay == 0 {
		opts.PRDelay = defaultPRDelay
	}

	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	client := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		baseURL := opts.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid GitHub API URL", err)
		}
		client.BaseURL = u
	}

	return &GitHubCollector{
		client:      client,
		rateLimiter: NewRateLimiter(opts.Sleep, opts.Logger),
		pageDelay:   opts.PageDelay,
		prDelay:     opts.PRDelay,
		log:         opts.Logger,
	}, nil
}

// SearchQuery builds the search query for pull requests created in the month.
func SearchQuery(repo domain.RepoRef, month domain.Month) string {
	from, to := month.Range()
	return fmt.Sprintf("repo:%s type:pr created:%s..%s",
		repo.FullName(), from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// ListPullRequestsForMonth searches pull requests created in the month, page by page,
// until a short or empty page.
func (c *GitHubCollector) ListPullRequestsForMonth(ctx context.Context, repo domain.RepoRef, month domain.Month) ([]*domain.PullRequest, error) {
	query := SearchQuery(repo, month)
	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{Page: 1, PerPage: perPage},
	}

	allPRs := []*domain.PullRequest{}
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, resp, err := c.client.Search.Issues(ctx, query, opts)
		if err != nil {
			if resp != nil && !isSuccess(resp.StatusCode) {
				return nil, apperrors.NewAPIError(resp.StatusCode, err)
			}
			return nil, fmt.Errorf("failed to search pull requests for %s: %w", repo.FullName(), err)
		}
		c.updateRateLimitFromResponse(resp)

		items := result.Issues
		if len(items) == 0 {
			break
		}
		for _, issue := range items {
			allPRs = append(allPRs, toPullRequest(issue))
		}
		if len(items) < perPage {
			break
		}

		opts.Page++
		c.log.Debug("fetching next page of pull requests", slog.Int("page", opts.Page))
		if err := c.rateLimiter.Pause(ctx, c.pageDelay); err != nil {
			return nil, err
		}
	}

	return allPRs, nil
}

// FetchCommentsAndReviews fetches reviews, review comments and issue comments concurrently
func (c *GitHubCollector) FetchCommentsAndReviews(ctx context.Context, repo domain.RepoRef, number int) (*CommentsAndReviews, error) {
	out := &CommentsAndReviews{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		out.Reviews, err = c.fetchReviews(gctx, repo, number)
		return err
	})
	g.Go(func() error {
		var err error
		out.ReviewComments, err = c.fetchReviewComments(gctx, repo, number)
		return err
	})
	g.Go(func() error {
		var err error
		out.IssueComments, err = c.fetchIssueComments(gctx, repo, number)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchCommits fetches the commits of a pull request
func (c *GitHubCollector) FetchCommits(ctx context.Context, repo domain.RepoRef, number int) ([]*domain.Commit, error) {
	commits, resp, err := c.client.PullRequests.ListCommits(ctx, repo.Owner, repo.Name, number, &github.ListOptions{PerPage: perPage})
	if err != nil {
		return []*domain.Commit{}, c.softFail("commits", number, resp, err)
	}
	c.updateRateLimitFromResponse(resp)

	out := make([]*domain.Commit, 0, len(commits))
	for _, commit := range commits {
		out = append(out, &domain.Commit{
			SHA:    commit.GetSHA(),
			Author: commit.GetAuthor().GetLogin(),
		})
	}
	return out, nil
}

// GetCompleteMonthData fetches every pull request of the month, then its sub-resources.
// Pull requests are processed one at a time with a fixed pause after each; a pull request
// whose sub-resources cannot be fetched is kept with empty lists.
func (c *GitHubCollector) GetCompleteMonthData(ctx context.Context, repo domain.RepoRef, month domain.Month) ([]*domain.PRData, error) {
	prs, err := c.ListPullRequestsForMonth(ctx, repo, month)
	if err != nil {
		return nil, err
	}
	c.log.Info("found pull requests",
		slog.String("repo", repo.FullName()),
		slog.String("month", month.String()),
		slog.Int("count", len(prs)),
	)

	results := make([]*domain.PRData, 0, len(prs))
	for i, pr := range prs {
		data, err := c.fetchPRData(ctx, repo, pr)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.log.Warn("failed to fetch pull request data, keeping it with empty activity",
				slog.Int("pr", pr.Number),
				logger.Err(err),
			)
			data = emptyPRData(pr)
		}
		results = append(results, data)

		c.log.Debug("pull request fetched",
			slog.Int("pr", pr.Number),
			slog.Int("done", i+1),
			slog.Int("total", len(prs)),
		)
		if err := c.rateLimiter.Pause(ctx, c.prDelay); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (c *GitHubCollector) fetchPRData(ctx context.Context, repo domain.RepoRef, pr *domain.PullRequest) (*domain.PRData, error) {
	var commits []*domain.Commit
	var comments *CommentsAndReviews

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		commits, err = c.FetchCommits(gctx, repo, pr.Number)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = c.FetchCommentsAndReviews(gctx, repo, pr.Number)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.PRData{
		PR:             pr,
		Commits:        commits,
		Reviews:        comments.Reviews,
		ReviewComments: comments.ReviewComments,
		IssueComments:  comments.IssueComments,
	}, nil
}

func (c *GitHubCollector) fetchReviews(ctx context.Context, repo domain.RepoRef, number int) ([]*domain.Review, error) {
	reviews, resp, err := c.client.PullRequests.ListReviews(ctx, repo.Owner, repo.Name, number, &github.ListOptions{PerPage: perPage})
	if err != nil {
		return []*domain.Review{}, c.softFail("reviews", number, resp, err)
	}
	c.updateRateLimitFromResponse(resp)

	out := make([]*domain.Review, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, &domain.Review{
			ID:          review.GetID(),
			Author:      review.GetUser().GetLogin(),
			State:       review.GetState(),
			SubmittedAt: review.GetSubmittedAt().Time,
		})
	}
	return out, nil
}

func (c *GitHubCollector) fetchReviewComments(ctx context.Context, repo domain.RepoRef, number int) ([]*domain.Comment, error) {
	opts := &github.PullRequestListCommentsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	comments, resp, err := c.client.PullRequests.ListComments(ctx, repo.Owner, repo.Name, number, opts)
	if err != nil {
		return []*domain.Comment{}, c.softFail("review comments", number, resp, err)
	}
	c.updateRateLimitFromResponse(resp)

	out := make([]*domain.Comment, 0, len(comments))
	for _, comment := range comments {
		out = append(out, &domain.Comment{
			ID:        comment.GetID(),
			Author:    comment.GetUser().GetLogin(),
			Body:      comment.GetBody(),
			CreatedAt: comment.GetCreatedAt().Time,
		})
	}
	return out, nil
}

func (c *GitHubCollector) fetchIssueComments(ctx context.Context, repo domain.RepoRef, number int) ([]*domain.Comment, error) {
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	comments, resp, err := c.client.Issues.ListComments(ctx, repo.Owner, repo.Name, number, opts)
	if err != nil {
		return []*domain.Comment{}, c.softFail("issue comments", number, resp, err)
	}
	c.updateRateLimitFromResponse(resp)

	out := make([]*domain.Comment, 0, len(comments))
	for _, comment := range comments {
		out = append(out, &domain.Comment{
			ID:        comment.GetID(),
			Author:    comment.GetUser().GetLogin(),
			Body:      comment.GetBody(),
			CreatedAt: comment.GetCreatedAt().Time,
		})
	}
	return out, nil
}

// softFail swallows non-success responses so the caller continues with an empty list.
// Transport and decoding failures are returned.
func (c *GitHubCollector) softFail(resource string, number int, resp *github.Response, err error) error {
	if resp != nil && !isSuccess(resp.StatusCode) {
		c.log.Warn("sub-resource fetch failed, using empty list",
			slog.String("resource", resource),
			slog.Int("pr", number),
			slog.Int("status", resp.StatusCode),
		)
		return nil
	}
	return fmt.Errorf("failed to fetch %s for #%d: %w", resource, number, err)
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (c *GitHubCollector) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

func toPullRequest(issue *github.Issue) *domain.PullRequest {
	pr := &domain.PullRequest{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		State:     issue.GetState(),
		Author:    issue.GetUser().GetLogin(),
		HTMLURL:   issue.GetHTMLURL(),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
	}
	if links := issue.PullRequestLinks; links != nil && links.MergedAt != nil {
		t := links.MergedAt.Time
		pr.MergedAt = &t
		pr.State = "merged"
	}
	return pr
}

func emptyPRData(pr *domain.PullRequest) *domain.PRData {
	return &domain.PRData{
		PR:             pr,
		Commits:        []*domain.Commit{},
		Reviews:        []*domain.Review{},
		ReviewComments: []*domain.Comment{},
		IssueComments:  []*domain.Comment{},
		Degraded:       true,
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
