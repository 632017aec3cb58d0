package aggregator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
	"github.com/kurihiro0119/github-review-metrics/internal/logger"
	"github.com/kurihiro0119/github-review-metrics/internal/storage/sqlite"
	"github.com/kurihiro0119/github-review-metrics/internal/storage/sqlstore"
)

var march = domain.Month{Year: 2025, Month: time.March}

func setup(t *testing.T) (*sqlstore.Store, Aggregator) {
	t.Helper()
	store, err := sqlite.NewSQLiteStorage(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	trManager := manager.Must(trmsqlx.NewDefaultFactory(store.DB()))
	return store, NewAggregator(store, trManager, logger.Discard())
}

func member(t *testing.T, store *sqlstore.Store, handle string) *domain.Member {
	t.Helper()
	m, err := store.EnsureMember(context.Background(), handle)
	require.NoError(t, err)
	return m
}

func savePR(t *testing.T, store *sqlstore.Store, memberID string, number, commits, received int, repo string) {
	t.Helper()
	created := time.Date(2025, time.March, number, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SavePRActivity(context.Background(), &domain.PRActivity{
		MemberID:              memberID,
		PRNumber:              number,
		PRTitle:               "change",
		PRState:               "open",
		CommitsCount:          commits,
		ReceivedCommentsCount: received,
		CreatedAt:             created,
		UpdatedAt:             created,
		Month:                 "2025-03",
		RepoOwner:             "acme",
		RepoName:              repo,
		PRURL:                 "https://github.com/acme/" + repo,
	}))
}

func saveComment(t *testing.T, store *sqlstore.Store, commenterID, authorID string, id int64) {
	t.Helper()
	require.NoError(t, store.SaveCommentDetail(context.Background(), &domain.CommentDetail{
		CommenterID:     commenterID,
		PRNumber:        1,
		PRAuthorID:      authorID,
		CommentType:     domain.CommentTypeIssue,
		CommentLength:   42,
		IsSubstantive:   true,
		CreatedAt:       time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
		Month:           "2025-03",
		RepoOwner:       "acme",
		RepoName:        "widgets",
		GitHubCommentID: id,
	}))
}

func TestAggregator_RecomputeMonthlyStats(t *testing.T) {
	ctx := context.Background()
	store, agg := setup(t)

	alice := member(t, store, "alice")
	bob := member(t, store, "bob")

	// pull requests across two repositories count toward the same month
	savePR(t, store, alice.ID, 1, 2, 1, "widgets")
	savePR(t, store, alice.ID, 2, 3, 4, "widgets")
	savePR(t, store, alice.ID, 3, 4, 0, "gadgets")
	saveComment(t, store, alice.ID, bob.ID, 10)
	saveComment(t, store, alice.ID, bob.ID, 11)

	require.NoError(t, agg.RecomputeMonthlyStats(ctx, march))
	first, err := store.GetMemberPerformance(ctx, alice.ID, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, int64(9), first.CommitsCount)
	assert.Equal(t, int64(3), first.PRsCount)
	assert.Equal(t, int64(2), first.TotalCommentsCount)
	assert.Equal(t, int64(2), first.ReviewCommentsCount)
	assert.Equal(t, int64(5), first.PRCommentsCount)

	bobPerf, err := store.GetMemberPerformance(ctx, bob.ID, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bobPerf.PRsCount)

	require.NoError(t, agg.RecomputeMonthlyStats(ctx, march))
	second, err := store.GetMemberPerformance(ctx, alice.ID, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CommitsCount, second.CommitsCount)
	assert.Equal(t, first.PRsCount, second.PRsCount)
	assert.Equal(t, first.TotalCommentsCount, second.TotalCommentsCount)
	assert.Equal(t, first.PRCommentsCount, second.PRCommentsCount)
}

func TestAggregator_RecomputeSkipsInactive(t *testing.T) {
	ctx := context.Background()
	store, agg := setup(t)

	alice := member(t, store, "alice")
	savePR(t, store, alice.ID, 1, 2, 0, "widgets")
	require.NoError(t, agg.RecomputeMonthlyStats(ctx, march))

	require.NoError(t, store.SetMemberActive(ctx, "alice", false))
	savePR(t, store, alice.ID, 2, 5, 0, "widgets")
	require.NoError(t, agg.RecomputeMonthlyStats(ctx, march))

	perf, err := store.GetMemberPerformance(ctx, alice.ID, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, int64(2), perf.CommitsCount)
}

func TestAggregator_Leaderboard(t *testing.T) {
	ctx := context.Background()
	store, agg := setup(t)

	alice := member(t, store, "alice")
	bob := member(t, store, "bob")
	carol := member(t, store, "carol")
	member(t, store, "dave")

	savePR(t, store, alice.ID, 1, 1, 0, "widgets") // 1 + 2 = 3
	savePR(t, store, bob.ID, 2, 1, 0, "widgets")   // 3
	savePR(t, store, carol.ID, 3, 6, 0, "widgets") // 8
	saveComment(t, store, carol.ID, alice.ID, 1)   // 9
	require.NoError(t, agg.RecomputeMonthlyStats(ctx, march))

	board, err := agg.Leaderboard(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, "2025-03", board.Month)
	require.Len(t, board.Entries, 4)

	var order []string
	for _, e := range board.Entries {
		order = append(order, e.GitHubID)
	}
	assert.Equal(t, []string{"carol", "alice", "bob", "dave"}, order)
	assert.Equal(t, int64(9), board.Entries[0].Score)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, 4, board.Entries[3].Rank)
	assert.Equal(t, int64(0), board.Entries[3].Score)

	assert.InDelta(t, 3.75, board.MeanScore, 1e-9)
	assert.InDelta(t, 3.0, board.MedianScore, 1e-9)
}

func TestAggregator_Leaderboard_Empty(t *testing.T) {
	_, agg := setup(t)

	board, err := agg.Leaderboard(context.Background(), march)
	require.NoError(t, err)
	assert.Empty(t, board.Entries)
	assert.Zero(t, board.MeanScore)
}

func TestAggregator_GetMemberActivities(t *testing.T) {
	ctx := context.Background()
	store, agg := setup(t)

	alice := member(t, store, "alice")
	bob := member(t, store, "bob")
	savePR(t, store, alice.ID, 1, 2, 0, "widgets")
	require.NoError(t, store.SaveReviewActivity(ctx, &domain.ReviewActivity{
		ReviewerID: alice.ID, PRNumber: 7, PRAuthorID: bob.ID, ReviewType: domain.ReviewTypeReview,
		ReviewState: "APPROVED", CommentCount: 1, ReviewedAt: time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC),
		Month: "2025-03", RepoOwner: "acme", RepoName: "widgets",
	}))

	activities, err := agg.GetMemberActivities(ctx, "alice", march)
	require.NoError(t, err)
	assert.Equal(t, "alice", activities.Member.GitHubID)
	assert.Len(t, activities.PRs, 1)
	require.Len(t, activities.Reviews, 1)
	assert.Equal(t, 7, activities.Reviews[0].PRNumber)

	_, err = agg.GetMemberActivities(ctx, "nobody", march)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAggregator_GetMemberPerformance(t *testing.T) {
	ctx := context.Background()
	store, agg := setup(t)

	alice := member(t, store, "alice")
	bob := member(t, store, "bob")
	savePR(t, store, alice.ID, 1, 3, 1, "widgets")
	saveComment(t, store, alice.ID, bob.ID, 11)
	require.NoError(t, agg.RecomputeMonthlyStats(ctx, march))

	got, err := agg.GetMemberPerformance(ctx, "alice", march)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.Member.ID)
	assert.Equal(t, int64(3), got.Performance.CommitsCount)
	assert.Equal(t, int64(1), got.Performance.PRsCount)
	assert.Equal(t, int64(1), got.Performance.TotalCommentsCount)
	assert.Equal(t, int64(6), got.Score)

	_, err = agg.GetMemberPerformance(ctx, "alice", domain.Month{Year: 2025, Month: time.April})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = agg.GetMemberPerformance(ctx, "nobody", march)
	assert.True(t, apperrors.IsNotFound(err))
}
