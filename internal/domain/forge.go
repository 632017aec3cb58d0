package domain

import "time"

// PullRequest is a pull request as returned by the forge search.
type PullRequest struct {
	Number    int
	Title     string
	State     string // open, closed, merged
	Author    string
	HTMLURL   string
	CreatedAt time.Time
	UpdatedAt time.Time
	MergedAt  *time.Time
}

// Commit is a commit attached to a pull request.
type Commit struct {
	SHA    string
	Author string
}

// Review is a submitted pull request review. Author is empty for deleted accounts.
type Review struct {
	ID          int64
	Author      string
	State       string
	SubmittedAt time.Time
}

// Comment is a review comment or an issue comment. Author is empty for deleted accounts.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}

// PRData bundles a pull request with its sub-resources.
type PRData struct {
	PR             *PullRequest
	Commits        []*Commit
	Reviews        []*Review
	ReviewComments []*Comment
	IssueComments  []*Comment

	// Degraded is set when fetching sub-resources failed and every list was emptied.
	Degraded bool
}

// ReceivedCommentsCount is the number of comments left on the pull request.
func (d *PRData) ReceivedCommentsCount() int {
	return len(d.ReviewComments) + len(d.IssueComments)
}
