package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
)

var (
	testRepo  = domain.RepoRef{Owner: "acme", Name: "widgets"}
	testMonth = domain.Month{Year: 2025, Month: time.March}
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *sleepRecorder) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, got := range s.delays {
		if got == d {
			n++
		}
	}
	return n
}

// setupTestCollector creates a GitHubCollector that talks to a mock HTTP server.
func setupTestCollector(t *testing.T, handler http.Handler) (*GitHubCollector, *sleepRecorder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sleeper := &sleepRecorder{}
	c, err := NewGitHubCollector(Options{
		Token:     "test-token",
		BaseURL:   server.URL,
		PageDelay: time.Second,
		PRDelay:   500 * time.Millisecond,
		Sleep:     sleeper.Sleep,
	})
	require.NoError(t, err)
	return c, sleeper
}

func searchPage(t *testing.T, from, n int) string {
	t.Helper()
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"number":     from + i,
			"title":      fmt.Sprintf("PR %d", from+i),
			"state":      "open",
			"html_url":   fmt.Sprintf("https://github.com/acme/widgets/pull/%d", from+i),
			"user":       map[string]any{"login": "alice"},
			"created_at": "2025-03-10T12:00:00Z",
			"updated_at": "2025-03-11T12:00:00Z",
			"pull_request": map[string]any{
				"url": "https://api.github.com/repos/acme/widgets/pulls/1",
			},
		})
	}
	body, err := json.Marshal(map[string]any{"total_count": n, "items": items})
	require.NoError(t, err)
	return string(body)
}

func TestNewGitHubCollector_MissingToken(t *testing.T) {
	c, err := NewGitHubCollector(Options{})
	assert.Nil(t, c)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfig, apperrors.CodeOf(err))
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "repo:acme/widgets type:pr created:2025-03-01..2025-03-31", SearchQuery(testRepo, testMonth))
	assert.Equal(t, "repo:acme/widgets type:pr created:2024-02-01..2024-02-29",
		SearchQuery(testRepo, domain.Month{Year: 2024, Month: time.February}))
}

func TestGitHubCollector_ListPullRequestsForMonth(t *testing.T) {
	t.Run("paginates until an empty page", func(t *testing.T) {
		var calls int
		mux := http.NewServeMux()
		mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
			calls++
			assert.Equal(t, "repo:acme/widgets type:pr created:2025-03-01..2025-03-31", r.URL.Query().Get("q"))
			assert.Equal(t, "100", r.URL.Query().Get("per_page"))
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			switch r.URL.Query().Get("page") {
			case "1":
				fmt.Fprint(w, searchPage(t, 1, 100))
			default:
				fmt.Fprint(w, `{"total_count": 100, "items": []}`)
			}
		})
		c, sleeper := setupTestCollector(t, mux)

		prs, err := c.ListPullRequestsForMonth(context.Background(), testRepo, testMonth)
		require.NoError(t, err)
		assert.Len(t, prs, 100)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, sleeper.count(time.Second))
		assert.Equal(t, "alice", prs[0].Author)
		assert.Equal(t, 1, prs[0].Number)
	})

	t.Run("short page stops without pausing", func(t *testing.T) {
		var calls int
		mux := http.NewServeMux()
		mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
			calls++
			fmt.Fprint(w, searchPage(t, 1, 3))
		})
		c, sleeper := setupTestCollector(t, mux)

		prs, err := c.ListPullRequestsForMonth(context.Background(), testRepo, testMonth)
		require.NoError(t, err)
		assert.Len(t, prs, 3)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 0, sleeper.count(time.Second))
	})

	t.Run("merged pull request", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"total_count": 1, "items": [{"number": 7, "state": "closed", "user": {"login": "bob"},
				"pull_request": {"merged_at": "2025-03-12T08:00:00Z"}}]}`)
		})
		c, _ := setupTestCollector(t, mux)

		prs, err := c.ListPullRequestsForMonth(context.Background(), testRepo, testMonth)
		require.NoError(t, err)
		require.Len(t, prs, 1)
		assert.Equal(t, "merged", prs[0].State)
		require.NotNil(t, prs[0].MergedAt)
		assert.Equal(t, time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC), prs[0].MergedAt.UTC())
	})

	t.Run("search failure is fatal", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message": "Internal Server Error"}`)
		})
		c, _ := setupTestCollector(t, mux)

		prs, err := c.ListPullRequestsForMonth(context.Background(), testRepo, testMonth)
		assert.Nil(t, prs)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeForgeAPI, apperrors.CodeOf(err))
		assert.Contains(t, err.Error(), "GitHub API error: 500")
	})
}

func subResourceMux(t *testing.T, overrides map[string]http.HandlerFunc) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPage(t, 1, 2))
	})

	defaults := map[string]string{
		"/repos/acme/widgets/pulls/%d/commits": `[{"sha": "a1", "author": {"login": "alice"}}, {"sha": "a2", "author": {"login": "alice"}}]`,
		"/repos/acme/widgets/pulls/%d/reviews": `[{"id": 11, "state": "APPROVED", "user": {"login": "bob"}, "submitted_at": "2025-03-10T13:00:00Z"}]`,
		"/repos/acme/widgets/pulls/%d/comments": `[{"id": 21, "body": "please rename this variable", "user": {"login": "bob"}, "created_at": "2025-03-10T13:00:00Z"},
			{"id": 22, "body": "ok", "user": null, "created_at": "2025-03-10T14:00:00Z"}]`,
		"/repos/acme/widgets/issues/%d/comments": `[{"id": 31, "body": "LGTM", "user": {"login": "carol"}, "created_at": "2025-03-10T15:00:00Z"}]`,
	}
	for _, n := range []int{1, 2} {
		for pattern, body := range defaults {
			path := fmt.Sprintf(pattern, n)
			if h, ok := overrides[path]; ok {
				mux.HandleFunc(path, h)
				continue
			}
			body := body
			mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "100", r.URL.Query().Get("per_page"))
				fmt.Fprint(w, body)
			})
		}
	}
	return mux
}

func TestGitHubCollector_GetCompleteMonthData(t *testing.T) {
	t.Run("collects every sub-resource", func(t *testing.T) {
		c, sleeper := setupTestCollector(t, subResourceMux(t, nil))

		data, err := c.GetCompleteMonthData(context.Background(), testRepo, testMonth)
		require.NoError(t, err)
		require.Len(t, data, 2)

		first := data[0]
		assert.False(t, first.Degraded)
		assert.Len(t, first.Commits, 2)
		require.Len(t, first.Reviews, 1)
		assert.Equal(t, "bob", first.Reviews[0].Author)
		require.Len(t, first.ReviewComments, 2)
		assert.Equal(t, "", first.ReviewComments[1].Author)
		assert.Equal(t, int64(21), first.ReviewComments[0].ID)
		assert.Len(t, first.IssueComments, 1)
		assert.Equal(t, 3, first.ReceivedCommentsCount())

		assert.Equal(t, 2, sleeper.count(500*time.Millisecond))
	})

	t.Run("non-success sub-resource degrades to an empty list", func(t *testing.T) {
		notFound := func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		}
		c, _ := setupTestCollector(t, subResourceMux(t, map[string]http.HandlerFunc{
			"/repos/acme/widgets/pulls/1/reviews": notFound,
		}))

		data, err := c.GetCompleteMonthData(context.Background(), testRepo, testMonth)
		require.NoError(t, err)
		require.Len(t, data, 2)
		assert.False(t, data[0].Degraded)
		assert.Empty(t, data[0].Reviews)
		assert.Len(t, data[0].Commits, 2)
		assert.Len(t, data[0].ReviewComments, 2)
		assert.Len(t, data[1].Reviews, 1)
	})

	t.Run("unexpected failure keeps the pull request with empty lists", func(t *testing.T) {
		broken := func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}
		c, sleeper := setupTestCollector(t, subResourceMux(t, map[string]http.HandlerFunc{
			"/repos/acme/widgets/pulls/2/commits": broken,
		}))

		data, err := c.GetCompleteMonthData(context.Background(), testRepo, testMonth)
		require.NoError(t, err)
		require.Len(t, data, 2)

		assert.False(t, data[0].Degraded)
		degraded := data[1]
		assert.True(t, degraded.Degraded)
		assert.Equal(t, 2, degraded.PR.Number)
		assert.Empty(t, degraded.Commits)
		assert.Empty(t, degraded.Reviews)
		assert.Empty(t, degraded.ReviewComments)
		assert.Empty(t, degraded.IssueComments)

		assert.Equal(t, 2, sleeper.count(500*time.Millisecond))
	})

	t.Run("search failure aborts", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"message": "Validation Failed"}`)
		})
		c, _ := setupTestCollector(t, mux)

		data, err := c.GetCompleteMonthData(context.Background(), testRepo, testMonth)
		assert.Nil(t, data)
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
	})
}
