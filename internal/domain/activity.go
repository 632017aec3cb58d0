package domain

import "time"

// CommentType distinguishes where a comment was left on a pull request.
type CommentType string

const (
	CommentTypeReview CommentType = "review_comment"
	CommentTypeIssue  CommentType = "issue_comment"
)

// ReviewTypeReview is the only review type the sync records.
const ReviewTypeReview = "review"

// PRActivity is one pull request authored by a member in a month.
type PRActivity struct {
	ID                    string     `db:"id" json:"id"`
	MemberID              string     `db:"member_id" json:"member_id"`
	PRNumber              int        `db:"pr_number" json:"pr_number"`
	PRTitle               string     `db:"pr_title" json:"pr_title"`
	PRState               string     `db:"pr_state" json:"pr_state"`
	CommitsCount          int        `db:"commits_count" json:"commits_count"`
	ReceivedCommentsCount int        `db:"received_comments_count" json:"received_comments_count"`
	ReceivedReviewsCount  int        `db:"received_reviews_count" json:"received_reviews_count"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
	MergedAt              *time.Time `db:"merged_at" json:"merged_at,omitempty"`
	Month                 string     `db:"month" json:"month"`
	RepoOwner             string     `db:"repo_owner" json:"repo_owner"`
	RepoName              string     `db:"repo_name" json:"repo_name"`
	PRURL                 string     `db:"pr_url" json:"pr_url"`
}

// ReviewActivity is one review event submitted by a member.
type ReviewActivity struct {
	ID           string    `db:"id" json:"id"`
	ReviewerID   string    `db:"reviewer_id" json:"reviewer_id"`
	PRNumber     int       `db:"pr_number" json:"pr_number"`
	PRAuthorID   string    `db:"pr_author_id" json:"pr_author_id"`
	ReviewType   string    `db:"review_type" json:"review_type"`
	ReviewState  string    `db:"review_state" json:"review_state"`
	CommentCount int       `db:"comment_count" json:"comment_count"`
	ReviewedAt   time.Time `db:"reviewed_at" json:"reviewed_at"`
	Month        string    `db:"month" json:"month"`
	RepoOwner    string    `db:"repo_owner" json:"repo_owner"`
	RepoName     string    `db:"repo_name" json:"repo_name"`
}

// CommentDetail is one comment left on a pull request.
type CommentDetail struct {
	ID              string      `db:"id" json:"id"`
	CommenterID     string      `db:"commenter_id" json:"commenter_id"`
	PRNumber        int         `db:"pr_number" json:"pr_number"`
	PRAuthorID      string      `db:"pr_author_id" json:"pr_author_id"`
	CommentType     CommentType `db:"comment_type" json:"comment_type"`
	CommentLength   int         `db:"comment_length" json:"comment_length"`
	IsSubstantive   bool        `db:"is_substantive" json:"is_substantive"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	Month           string      `db:"month" json:"month"`
	RepoOwner       string      `db:"repo_owner" json:"repo_owner"`
	RepoName        string      `db:"repo_name" json:"repo_name"`
	GitHubCommentID int64       `db:"github_comment_id" json:"github_comment_id"`
}

// PRStats is the per-member pull request aggregate for a month.
type PRStats struct {
	PRsCount              int64 `db:"prs_count"`
	CommitsCount          int64 `db:"commits_count"`
	ReceivedCommentsCount int64 `db:"received_comments_count"`
}

// CommentStats is the per-member authored comment aggregate for a month.
type CommentStats struct {
	TotalComments       int64 `db:"total_comments"`
	SubstantiveComments int64 `db:"substantive_comments"`
	TotalCommentLength  int64 `db:"total_comment_length"`
}

// MemberActivities groups a member's raw facts for one month.
type MemberActivities struct {
	Member  *Member           `json:"member"`
	Month   string            `json:"month"`
	PRs     []*PRActivity     `json:"prs"`
	Reviews []*ReviewActivity `json:"reviews"`
}
