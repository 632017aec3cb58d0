package domain

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar month in YYYY-MM form.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// String returns the month in YYYY-MM form.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Range returns the first instant of the month and the last second of its last day (UTC).
func (m Month) Range() (from, to time.Time) {
	from = time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	// day 0 of the next month is the last day of this one
	to = time.Date(m.Year, m.Month+1, 0, 23, 59, 59, 0, time.UTC)
	return from, to
}

// Scope bounds one clear/persist cycle.
type Scope struct {
	Month     Month
	RepoOwner string
	RepoName  string
}

// Repo returns the repository the scope refers to.
func (s Scope) Repo() RepoRef {
	return RepoRef{Owner: s.RepoOwner, Name: s.RepoName}
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s@%s", s.RepoOwner, s.RepoName, s.Month)
}

// RepoRef identifies a repository on the forge.
type RepoRef struct {
	Owner string
	Name  string
}

// FullName returns owner/name.
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}
