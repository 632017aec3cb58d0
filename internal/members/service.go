// Package members reconciles contributor profiles created lazily by the sync.
package members

import (
	"context"
	"strings"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
)

// Store is the member part of the persistence layer
type Store interface {
	UpsertMember(ctx context.Context, member *domain.Member) (*domain.Member, error)
	SetMemberActive(ctx context.Context, githubID string, active bool) error
	GetMemberByGitHubID(ctx context.Context, githubID string) (*domain.Member, error)
	ListMembers(ctx context.Context) ([]*domain.Member, error)
}

// TransactionManager runs fn in a transaction carried by ctx
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Profile is what an operator knows about a member. An empty track falls back to
// the placeholder track; a nil IsActive keeps the current flag.
type Profile struct {
	Name      string
	TrackID   string
	TrackName string
	IsActive  *bool
}

type Service struct {
	store Store
	trm   TransactionManager
}

func NewService(trm TransactionManager, store Store) *Service {
	return &Service{
		store: store,
		trm:   trm,
	}
}

// Put creates the member or updates its profile, then applies the active flag.
func (s *Service) Put(ctx context.Context, handle string, p Profile) (*domain.Member, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, apperrors.NewBadRequestError("name is required")
	}

	member := &domain.Member{
		Name:      p.Name,
		GitHubID:  handle,
		TrackID:   p.TrackID,
		TrackName: p.TrackName,
	}
	if member.TrackID == "" {
		member.TrackID = domain.UnknownTrackID
	}
	if member.TrackName == "" {
		member.TrackName = domain.UnknownTrackName
	}

	var saved *domain.Member
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.store.UpsertMember(ctx, member)
		if err != nil {
			return err
		}
		if p.IsActive == nil || *p.IsActive == saved.IsActive {
			return nil
		}
		if err := s.store.SetMemberActive(ctx, handle, *p.IsActive); err != nil {
			return err
		}
		saved, err = s.store.GetMemberByGitHubID(ctx, handle)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// List returns the active members grouped by track
func (s *Service) List(ctx context.Context) ([]*domain.Member, error) {
	return s.store.ListMembers(ctx)
}
