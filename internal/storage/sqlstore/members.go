package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	"github.com/kurihiro0119/github-review-metrics/internal/storage"
)

const memberColumns = `id, name, github_id, track_id, track_name, is_active, created_at, updated_at`

func (s *Store) GetMemberByGitHubID(ctx context.Context, githubID string) (*domain.Member, error) {
	const op = "sqlstore.GetMemberByGitHubID"

	query := s.rebind(`SELECT ` + memberColumns + ` FROM team_members WHERE github_id = ?`)

	var member domain.Member
	if err := s.getter.DefaultTrOrDB(ctx, s.db).GetContext(ctx, &member, query, githubID); err != nil {
		return nil, wrap(op, err)
	}
	return &member, nil
}

// EnsureMember is safe to call repeatedly for the same handle: a concurrent
// insert of the same handle is absorbed by the conflict clause.
func (s *Store) EnsureMember(ctx context.Context, githubID string) (*domain.Member, error) {
	const op = "sqlstore.EnsureMember"

	member, err := s.GetMemberByGitHubID(ctx, githubID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	placeholder := domain.NewPlaceholderMember(githubID)
	query := s.rebind(`
		INSERT INTO team_members (` + memberColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (github_id) DO NOTHING
	`)
	_, err = s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query,
		uuid.New().String(), placeholder.Name, placeholder.GitHubID,
		placeholder.TrackID, placeholder.TrackName, placeholder.IsActive,
		placeholder.CreatedAt, placeholder.UpdatedAt,
	)
	if err != nil {
		return nil, wrap(op, err)
	}

	return s.GetMemberByGitHubID(ctx, githubID)
}

// UpsertMember creates the member or updates its profile fields. The active flag
// of an existing member is left untouched.
func (s *Store) UpsertMember(ctx context.Context, member *domain.Member) (*domain.Member, error) {
	const op = "sqlstore.UpsertMember"

	now := time.Now().UTC()
	query := s.rebind(`
		INSERT INTO team_members (` + memberColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (github_id) DO UPDATE SET
			name = EXCLUDED.name,
			track_id = EXCLUDED.track_id,
			track_name = EXCLUDED.track_name,
			updated_at = EXCLUDED.updated_at
	`)
	_, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query,
		uuid.New().String(), member.Name, member.GitHubID,
		member.TrackID, member.TrackName, true, now, now,
	)
	if err != nil {
		return nil, wrap(op, err)
	}

	return s.GetMemberByGitHubID(ctx, member.GitHubID)
}

func (s *Store) SetMemberActive(ctx context.Context, githubID string, active bool) error {
	const op = "sqlstore.SetMemberActive"

	query := s.rebind(`UPDATE team_members SET is_active = ?, updated_at = ? WHERE github_id = ?`)
	res, err := s.getter.DefaultTrOrDB(ctx, s.db).ExecContext(ctx, query, active, time.Now().UTC(), githubID)
	if err != nil {
		return wrap(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetActiveMembers returns active members ordered by name
func (s *Store) GetActiveMembers(ctx context.Context) ([]*domain.Member, error) {
	const op = "sqlstore.GetActiveMembers"

	query := s.rebind(`SELECT ` + memberColumns + ` FROM team_members WHERE is_active = ? ORDER BY name, github_id`)

	members := []*domain.Member{}
	if err := s.getter.DefaultTrOrDB(ctx, s.db).SelectContext(ctx, &members, query, true); err != nil {
		return nil, wrap(op, err)
	}
	return members, nil
}

// ListMembers returns active members ordered by track, then name
func (s *Store) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	const op = "sqlstore.ListMembers"

	query := s.rebind(`SELECT ` + memberColumns + ` FROM team_members WHERE is_active = ? ORDER BY track_id, name, github_id`)

	members := []*domain.Member{}
	if err := s.getter.DefaultTrOrDB(ctx, s.db).SelectContext(ctx, &members, query, true); err != nil {
		return nil, wrap(op, err)
	}
	return members, nil
}
