package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	testCases := []struct {
		name         string
		status       int
		expectedCode ErrCode
		expectedHTTP int
	}{
		{name: "server error", status: http.StatusInternalServerError, expectedCode: ErrCodeForgeAPI, expectedHTTP: http.StatusBadGateway},
		{name: "unprocessable query", status: http.StatusUnprocessableEntity, expectedCode: ErrCodeForgeAPI, expectedHTTP: http.StatusBadGateway},
		{name: "forbidden", status: http.StatusForbidden, expectedCode: ErrCodeRateLimited, expectedHTTP: http.StatusTooManyRequests},
		{name: "too many requests", status: http.StatusTooManyRequests, expectedCode: ErrCodeRateLimited, expectedHTTP: http.StatusTooManyRequests},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewAPIError(tc.status, errors.New("boom"))
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.Equal(t, tc.status, err.StatusCode)
			assert.Equal(t, tc.expectedHTTP, HTTPStatus(err))
			assert.Contains(t, err.Error(), fmt.Sprintf("%d", tc.status))
		})
	}
}

func TestCodeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("sync: %w", NewBadRequestError("bad month"))
	assert.Equal(t, ErrCodeBadRequest, CodeOf(err))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))

	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("member")))
	assert.False(t, IsNotFound(NewInternalError("x", nil)))
	assert.True(t, IsRateLimited(NewAPIError(http.StatusTooManyRequests, nil)))
	assert.False(t, IsRateLimited(NewAPIError(http.StatusBadGateway, nil)))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInternalError("failed to save", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INTERNAL_ERROR: failed to save (connection refused)", err.Error())
}
