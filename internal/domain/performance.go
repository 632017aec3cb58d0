package domain

import "time"

// MonthlyPerformance is the per-member summary recomputed on every sync.
//
// ReviewCommentsCount holds the number of comments the member authored, not the
// number of review comments; the column name predates the current aggregation.
type MonthlyPerformance struct {
	ID                  string    `db:"id" json:"id"`
	MemberID            string    `db:"member_id" json:"member_id"`
	Month               string    `db:"month" json:"month"`
	CommitsCount        int64     `db:"commits_count" json:"commits_count"`
	PRsCount            int64     `db:"prs_count" json:"prs_count"`
	ReviewCommentsCount int64     `db:"review_comments_count" json:"review_comments_count"`
	PRCommentsCount     int64     `db:"pr_comments_count" json:"pr_comments_count"`
	TotalCommentsCount  int64     `db:"total_comments_count" json:"total_comments_count"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Score is the composite ranking score.
func (p *MonthlyPerformance) Score() int64 {
	return p.CommitsCount + p.PRsCount*2 + p.TotalCommentsCount
}

// LeaderboardEntry is an active member with their summary for a month.
type LeaderboardEntry struct {
	Rank                int    `json:"rank"`
	MemberID            string `db:"member_id" json:"member_id"`
	Name                string `db:"name" json:"name"`
	GitHubID            string `db:"github_id" json:"github_id"`
	TrackName           string `db:"track_name" json:"track_name"`
	CommitsCount        int64  `db:"commits_count" json:"commits_count"`
	PRsCount            int64  `db:"prs_count" json:"prs_count"`
	ReviewCommentsCount int64  `db:"review_comments_count" json:"review_comments_count"`
	PRCommentsCount     int64  `db:"pr_comments_count" json:"pr_comments_count"`
	TotalCommentsCount  int64  `db:"total_comments_count" json:"total_comments_count"`
	Score               int64  `json:"score"`
}

// ComputeScore fills Score from the counts.
func (e *LeaderboardEntry) ComputeScore() {
	p := MonthlyPerformance{
		CommitsCount:       e.CommitsCount,
		PRsCount:           e.PRsCount,
		TotalCommentsCount: e.TotalCommentsCount,
	}
	e.Score = p.Score()
}

// Leaderboard is the ranked view of a month.
type Leaderboard struct {
	Month       string              `json:"month"`
	Entries     []*LeaderboardEntry `json:"entries"`
	MeanScore   float64             `json:"mean_score"`
	MedianScore float64             `json:"median_score"`
}

// MemberPerformance is one member's summary of a month.
type MemberPerformance struct {
	Member      *Member             `json:"member"`
	Performance *MonthlyPerformance `json:"performance"`
	Score       int64               `json:"score"`
}
