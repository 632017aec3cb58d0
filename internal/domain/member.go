package domain

import "time"

const (
	// UnknownTrackID is assigned to members created lazily during a sync.
	UnknownTrackID   = "unknown"
	UnknownTrackName = "Unknown Track"

	// GhostLogin stands in for authors whose forge account no longer exists.
	GhostLogin = "ghost"
)

// Member represents a contributor keyed by their forge login
type Member struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	GitHubID  string    `db:"github_id" json:"github_id"`
	TrackID   string    `db:"track_id" json:"track_id"`
	TrackName string    `db:"track_name" json:"track_name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewPlaceholderMember builds the member record used when a handle is first seen.
func NewPlaceholderMember(githubID string) *Member {
	now := time.Now().UTC()
	return &Member{
		Name:      githubID,
		GitHubID:  githubID,
		TrackID:   UnknownTrackID,
		TrackName: UnknownTrackName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
