package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
)

// Client is the API client for github-review-metrics
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// a sync sleeps between pages and pull requests, so it can run for minutes
			Timeout: 30 * time.Minute,
		},
	}
}

// Error is a non-200 answer of the API
type Error struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("API error: %d %s: %s (%s)", e.StatusCode, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("API error: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// MemberUpdate is the body of a member upsert
type MemberUpdate struct {
	Name      string `json:"name"`
	TrackID   string `json:"trackId,omitempty"`
	TrackName string `json:"trackName,omitempty"`
	IsActive  *bool  `json:"isActive,omitempty"`
}

// Sync triggers a sync of one month of one repository
func (c *Client) Sync(ctx context.Context, month, repoOwner, repoName string) (*domain.SyncResult, error) {
	body := map[string]string{
		"month":     month,
		"repoOwner": repoOwner,
		"repoName":  repoName,
	}

	var response struct {
		Success bool               `json:"success"`
		Message string             `json:"message"`
		Data    *domain.SyncResult `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/sync", nil, body, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetLeaderboard retrieves the ranked members of a month
func (c *Client) GetLeaderboard(ctx context.Context, month string) (*domain.Leaderboard, error) {
	path := fmt.Sprintf("/api/v1/months/%s/leaderboard", url.PathEscape(month))

	var response struct {
		Data *domain.Leaderboard `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetMemberActivities retrieves a member's pull requests and reviews of a month
func (c *Client) GetMemberActivities(ctx context.Context, handle, month string) (*domain.MemberActivities, error) {
	path := fmt.Sprintf("/api/v1/months/%s/members/%s", url.PathEscape(month), url.PathEscape(handle))

	var response struct {
		Data *domain.MemberActivities `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// PutMember creates or updates a member
func (c *Client) PutMember(ctx context.Context, handle string, update MemberUpdate) (*domain.Member, error) {
	path := fmt.Sprintf("/api/v1/members/%s", url.PathEscape(handle))

	var response struct {
		Data *domain.Member `json:"data"`
	}
	if err := c.do(ctx, http.MethodPut, path, nil, update, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetMemberPerformance retrieves a member's stored summary of a month
func (c *Client) GetMemberPerformance(ctx context.Context, handle, month string) (*domain.MemberPerformance, error) {
	path := fmt.Sprintf("/api/v1/months/%s/members/%s/performance", url.PathEscape(month), url.PathEscape(handle))

	var response struct {
		Data *domain.MemberPerformance `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ListMembers retrieves the active members grouped by track
func (c *Client) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	var response struct {
		Data []*domain.Member `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/members", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ListSyncRuns retrieves the most recent sync runs
func (c *Client) ListSyncRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var response struct {
		Data []*domain.SyncRun `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/sync/runs", params, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, result any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var envelope struct {
			Error *Error `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
			envelope.Error.StatusCode = resp.StatusCode
			return envelope.Error
		}
		return fmt.Errorf("API error: %s - %s", resp.Status, string(raw))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
