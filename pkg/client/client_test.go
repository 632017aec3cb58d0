package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
)

func setupTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func TestClient_Sync(t *testing.T) {
	testCases := []struct {
		name        string
		handlerFunc func(w http.ResponseWriter, r *http.Request)
		expected    *domain.SyncResult
		expectedErr *Error
	}{
		{
			name: "success",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/v1/sync", r.URL.Path)
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, map[string]string{"month": "2025-03", "repoOwner": "acme", "repoName": "widgets"}, body)
				fmt.Fprint(w, `{"success": true, "message": "Successfully synced 2 PRs with 5 comments",
					"data": {"processedPRs": 2, "totalComments": 5, "totalItems": 2}}`)
			},
			expected: &domain.SyncResult{ProcessedPRs: 2, TotalComments: 5, TotalItems: 2},
		},
		{
			name: "structured error",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, `{"error": {"code": "FORGE_API_ERROR", "message": "GitHub API error: 500", "details": "boom"}}`)
			},
			expectedErr: &Error{StatusCode: http.StatusBadGateway, Code: "FORGE_API_ERROR", Message: "GitHub API error: 500", Details: "boom"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := setupTestClient(t, http.HandlerFunc(tc.handlerFunc))
			result, err := c.Sync(context.Background(), "2025-03", "acme", "widgets")
			if tc.expectedErr != nil {
				var apiErr *Error
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tc.expectedErr, apiErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestClient_GetLeaderboard(t *testing.T) {
	c := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/months/2025-03/leaderboard", r.URL.Path)
		fmt.Fprint(w, `{"data": {"month": "2025-03", "mean_score": 8.5, "median_score": 8.5,
			"entries": [{"rank": 1, "github_id": "alice", "score": 17}, {"rank": 2, "github_id": "bob", "score": 0}]}}`)
	}))

	board, err := c.GetLeaderboard(context.Background(), "2025-03")
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "alice", board.Entries[0].GitHubID)
	assert.Equal(t, int64(17), board.Entries[0].Score)
	assert.Equal(t, 8.5, board.MeanScore)
}

func TestClient_PutMember(t *testing.T) {
	c := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/members/alice", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["isActive"])
		fmt.Fprint(w, `{"data": {"id": "m1", "github_id": "alice", "name": "Alice", "is_active": false}}`)
	}))

	inactive := false
	member, err := c.PutMember(context.Background(), "alice", MemberUpdate{Name: "Alice", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "m1", member.ID)
	assert.False(t, member.IsActive)
}

func TestClient_ListMembers(t *testing.T) {
	c := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/members", r.URL.Path)
		fmt.Fprint(w, `{"data": [{"github_id": "bea", "track_id": "backend"}, {"github_id": "adam", "track_id": "frontend"}]}`)
	}))

	list, err := c.ListMembers(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bea", list[0].GitHubID)
	assert.Equal(t, "frontend", list[1].TrackID)
}

func TestClient_GetMemberPerformance(t *testing.T) {
	c := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/months/2025-03/members/alice/performance", r.URL.Path)
		fmt.Fprint(w, `{"data": {"member": {"github_id": "alice"}, "performance": {"commits_count": 3, "prs_count": 1}, "score": 5}}`)
	}))

	perf, err := c.GetMemberPerformance(context.Background(), "alice", "2025-03")
	require.NoError(t, err)
	assert.Equal(t, "alice", perf.Member.GitHubID)
	assert.Equal(t, int64(3), perf.Performance.CommitsCount)
	assert.Equal(t, int64(5), perf.Score)
}

func TestClient_ListSyncRuns(t *testing.T) {
	c := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sync/runs", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"data": [{"id": "r1", "month": "2025-03", "status": "completed", "processed_prs": 4}]}`)
	}))

	runs, err := c.ListSyncRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.SyncStatusCompleted, runs[0].Status)
	assert.Equal(t, 4, runs[0].ProcessedPRs)
}

func TestClient_HealthCheck(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		c := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "ok"}`)
		}))
		assert.NoError(t, c.HealthCheck(context.Background()))
	})

	t.Run("unstructured failure", func(t *testing.T) {
		c := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `down`)
		}))
		err := c.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}
