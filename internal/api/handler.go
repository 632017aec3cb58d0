package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-review-metrics/internal/aggregator"
	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
	"github.com/kurihiro0119/github-review-metrics/internal/logger"
	"github.com/kurihiro0119/github-review-metrics/internal/members"
	"github.com/kurihiro0119/github-review-metrics/internal/storage"
)

const missingTokenMessage = "GitHub token not configured. Please set GITHUB_TOKEN environment variable."

// Syncer runs one sync for a scope
type Syncer interface {
	Sync(ctx context.Context, scope domain.Scope) (*domain.SyncResult, error)
}

// Members reconciles and lists member profiles
type Members interface {
	Put(ctx context.Context, handle string, p members.Profile) (*domain.Member, error)
	List(ctx context.Context) ([]*domain.Member, error)
}

// Store is the part of the persistence layer the handlers read directly
type Store interface {
	ListSyncRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}

// Handler handles API requests
type Handler struct {
	syncer     Syncer
	aggregator aggregator.Aggregator
	members    Members
	store      Store
	log        *slog.Logger
}

// NewHandler creates a new API handler. syncer is nil when no GitHub credential is configured.
func NewHandler(log *slog.Logger, syncer Syncer, agg aggregator.Aggregator, members Members, store Store) *Handler {
	return &Handler{
		syncer:     syncer,
		aggregator: agg,
		members:    members,
		store:      store,
		log:        log,
	}
}

// SyncRequest is the body of the sync trigger
type SyncRequest struct {
	Month     string `json:"month" binding:"required"`
	RepoOwner string `json:"repoOwner" binding:"required"`
	RepoName  string `json:"repoName" binding:"required"`
}

// SyncResponse is returned by a successful sync
type SyncResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    *domain.SyncResult `json:"data"`
}

// MemberRequest is the body of a member upsert
type MemberRequest struct {
	Name      string `json:"name" binding:"required"`
	TrackID   string `json:"trackId"`
	TrackName string `json:"trackName"`
	IsActive  *bool  `json:"isActive"`
}

// Sync triggers a sync of one month of one repository
// POST /api/v1/sync
func (h *Handler) Sync(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError("Missing required parameters: month, repoOwner, repoName"))
		return
	}
	month, err := domain.ParseMonth(req.Month)
	if err != nil {
		respondError(c, apperrors.NewBadRequestError(err.Error()))
		return
	}
	if h.syncer == nil {
		respondError(c, apperrors.NewConfigError(missingTokenMessage, nil))
		return
	}

	scope := domain.Scope{Month: month, RepoOwner: req.RepoOwner, RepoName: req.RepoName}
	// A sync clears the scope before persisting, so a client hanging up must
	// not stop it half way.
	result, err := h.syncer.Sync(context.WithoutCancel(c.Request.Context()), scope)
	if err != nil {
		h.log.Error("sync request failed", slog.String("scope", scope.String()), logger.Err(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SyncResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully synced %d PRs with %d comments", result.ProcessedPRs, result.TotalComments),
		Data:    result,
	})
}

// ListSyncRuns returns the most recent sync runs
// GET /api/v1/sync/runs
func (h *Handler) ListSyncRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		respondError(c, apperrors.NewBadRequestError("limit must be a positive integer"))
		return
	}

	runs, err := h.store.ListSyncRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": runs,
	})
}

// GetLeaderboard returns the ranked members of a month
// GET /api/v1/months/:month/leaderboard
func (h *Handler) GetLeaderboard(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}

	board, err := h.aggregator.Leaderboard(c.Request.Context(), month)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": board,
	})
}

// GetMemberActivities returns a member's pull requests and reviews of a month
// GET /api/v1/months/:month/members/:handle
func (h *Handler) GetMemberActivities(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}

	activities, err := h.aggregator.GetMemberActivities(c.Request.Context(), c.Param("handle"), month)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": activities,
	})
}

// GetMemberPerformance returns a member's stored summary of a month
// GET /api/v1/months/:month/members/:handle/performance
func (h *Handler) GetMemberPerformance(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}

	perf, err := h.aggregator.GetMemberPerformance(c.Request.Context(), c.Param("handle"), month)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": perf,
	})
}

// ListMembers returns the active members grouped by track
// GET /api/v1/members
func (h *Handler) ListMembers(c *gin.Context) {
	list, err := h.members.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": list,
	})
}

// PutMember creates a member or reconciles its profile
// PUT /api/v1/members/:handle
func (h *Handler) PutMember(c *gin.Context) {
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError("name is required"))
		return
	}

	saved, err := h.members.Put(c.Request.Context(), c.Param("handle"), members.Profile{
		Name:      req.Name,
		TrackID:   req.TrackID,
		TrackName: req.TrackName,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": saved,
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func parseMonthParam(c *gin.Context) (domain.Month, bool) {
	month, err := domain.ParseMonth(c.Param("month"))
	if err != nil {
		respondError(c, apperrors.NewBadRequestError(err.Error()))
		return domain.Month{}, false
	}
	return month, true
}

// ErrorBody is the error envelope of every failed request
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code    apperrors.ErrCode `json:"code"`
	Message string            `json:"message"`
	Details string            `json:"details,omitempty"`
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = apperrors.NewNotFoundError("resource")
	}

	detail := ErrorDetail{
		Code:    apperrors.CodeOf(err),
		Message: "Internal server error",
		Details: err.Error(),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		detail.Message = appErr.Message
		if appErr.Err != nil {
			detail.Details = appErr.Err.Error()
		} else {
			detail.Details = ""
		}
	}

	c.JSON(apperrors.HTTPStatus(err), ErrorBody{Error: detail})
}
