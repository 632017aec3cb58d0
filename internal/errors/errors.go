package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound    ErrCode = "NOT_FOUND"
	ErrCodeBadRequest  ErrCode = "BAD_REQUEST"
	ErrCodeConfig      ErrCode = "CONFIG_ERROR"
	ErrCodeRateLimited ErrCode = "RATE_LIMITED"
	ErrCodeForgeAPI    ErrCode = "FORGE_API_ERROR"
	ErrCodeInternal    ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	// StatusCode is the HTTP status the forge answered with, if any.
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewConfigError creates a new configuration error
func NewConfigError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeConfig,
		Message: message,
		Err:     err,
	}
}

// NewAPIError creates an error for a non-success forge response.
// 403 and 429 are reported as rate limiting.
func NewAPIError(statusCode int, err error) *AppError {
	code := ErrCodeForgeAPI
	if statusCode == http.StatusForbidden || statusCode == http.StatusTooManyRequests {
		code = ErrCodeRateLimited
	}
	return &AppError{
		Code:       code,
		Message:    fmt.Sprintf("GitHub API error: %d", statusCode),
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in the chain, or INTERNAL_ERROR.
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return CodeOf(err) == ErrCodeRateLimited
}

// HTTPStatus maps an error to the status the trigger interface answers with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeForgeAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
