package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kurihiro0119/github-review-metrics/internal/app"
	"github.com/kurihiro0119/github-review-metrics/internal/config"
	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
	"github.com/kurihiro0119/github-review-metrics/internal/members"
	"github.com/kurihiro0119/github-review-metrics/pkg/client"
)

// backend is what the commands talk to: either the local database or a running API server.
type backend interface {
	Sync(ctx context.Context, scope domain.Scope) (*domain.SyncResult, error)
	Leaderboard(ctx context.Context, month domain.Month) (*domain.Leaderboard, error)
	MemberActivities(ctx context.Context, handle string, month domain.Month) (*domain.MemberActivities, error)
	MemberPerformance(ctx context.Context, handle string, month domain.Month) (*domain.MemberPerformance, error)
	PutMember(ctx context.Context, handle string, update client.MemberUpdate) (*domain.Member, error)
	ListMembers(ctx context.Context) ([]*domain.Member, error)
	SyncRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error)
	Close() error
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

func getBackend(ctx context.Context, log *slog.Logger) (backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if useAPI {
		return &remoteBackend{client: client.NewClient(cfg.APIEndpoint)}, nil
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &localBackend{app: a}, nil
}

type localBackend struct {
	app *app.App
}

func (b *localBackend) Sync(ctx context.Context, scope domain.Scope) (*domain.SyncResult, error) {
	if b.app.Syncer == nil {
		return nil, apperrors.NewConfigError("GitHub token not configured. Please set GITHUB_TOKEN environment variable.", nil)
	}
	return b.app.Syncer.Sync(ctx, scope)
}

func (b *localBackend) Leaderboard(ctx context.Context, month domain.Month) (*domain.Leaderboard, error) {
	return b.app.Aggregator.Leaderboard(ctx, month)
}

func (b *localBackend) MemberActivities(ctx context.Context, handle string, month domain.Month) (*domain.MemberActivities, error) {
	return b.app.Aggregator.GetMemberActivities(ctx, handle, month)
}

func (b *localBackend) MemberPerformance(ctx context.Context, handle string, month domain.Month) (*domain.MemberPerformance, error) {
	return b.app.Aggregator.GetMemberPerformance(ctx, handle, month)
}

func (b *localBackend) PutMember(ctx context.Context, handle string, update client.MemberUpdate) (*domain.Member, error) {
	return b.app.Members.Put(ctx, handle, members.Profile{
		Name:      update.Name,
		TrackID:   update.TrackID,
		TrackName: update.TrackName,
		IsActive:  update.IsActive,
	})
}

func (b *localBackend) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	return b.app.Members.List(ctx)
}

func (b *localBackend) SyncRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	return b.app.Store.ListSyncRuns(ctx, limit)
}

func (b *localBackend) Close() error {
	return b.app.Close()
}

type remoteBackend struct {
	client *client.Client
}

func (b *remoteBackend) Sync(ctx context.Context, scope domain.Scope) (*domain.SyncResult, error) {
	return b.client.Sync(ctx, scope.Month.String(), scope.RepoOwner, scope.RepoName)
}

func (b *remoteBackend) Leaderboard(ctx context.Context, month domain.Month) (*domain.Leaderboard, error) {
	return b.client.GetLeaderboard(ctx, month.String())
}

func (b *remoteBackend) MemberActivities(ctx context.Context, handle string, month domain.Month) (*domain.MemberActivities, error) {
	return b.client.GetMemberActivities(ctx, handle, month.String())
}

func (b *remoteBackend) MemberPerformance(ctx context.Context, handle string, month domain.Month) (*domain.MemberPerformance, error) {
	return b.client.GetMemberPerformance(ctx, handle, month.String())
}

func (b *remoteBackend) PutMember(ctx context.Context, handle string, update client.MemberUpdate) (*domain.Member, error) {
	return b.client.PutMember(ctx, handle, update)
}

func (b *remoteBackend) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	return b.client.ListMembers(ctx)
}

func (b *remoteBackend) SyncRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	return b.client.ListSyncRuns(ctx, limit)
}

func (b *remoteBackend) Close() error {
	return nil
}
