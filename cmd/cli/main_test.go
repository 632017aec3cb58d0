package main

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
	"github.com/kurihiro0119/github-review-metrics/pkg/client"
)

func TestHint(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "local rate limit",
			err:      fmt.Errorf("sync failed: %w", apperrors.NewAPIError(http.StatusTooManyRequests, nil)),
			contains: "rate limit",
		},
		{
			name:     "remote rate limit",
			err:      fmt.Errorf("sync failed: %w", &client.Error{StatusCode: http.StatusTooManyRequests, Code: "RATE_LIMITED", Message: "GitHub API error: 429"}),
			contains: "rate limit",
		},
		{
			name:     "local not found",
			err:      fmt.Errorf("failed to get member performance: %w", apperrors.NewNotFoundError("member alice")),
			contains: "run sync",
		},
		{
			name:     "remote not found",
			err:      &client.Error{StatusCode: http.StatusNotFound, Code: "NOT_FOUND", Message: "member alice not found"},
			contains: "run sync",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, hint(tc.err), tc.contains)
		})
	}

	t.Run("no hint for other errors", func(t *testing.T) {
		assert.Empty(t, hint(errors.New("boom")))
		assert.Empty(t, hint(apperrors.NewBadRequestError("name is required")))
	})
}
