// Package leaderboard ranks guardians for a period, category and region.
// Ranking is deterministic: score descending, then user id ascending.
package leaderboard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	region "github.com/ecoguardian-in/core/geo-region"
	ranks "github.com/ecoguardian-in/core/rank-ladder"
	"github.com/ecoguardian-in/core/types"
)

// Error definitions
var (
	ErrUnknownCategory = errors.New("unknown leaderboard category")
	ErrUnknownPeriod   = errors.New("unknown leaderboard period")
	ErrUserNotRanked   = errors.New("user not on leaderboard")
)

// Category selects which quantity is the score
type Category string

const (
	CategoryPoints             Category = "points"
	CategoryReportsSubmitted   Category = "reports_submitted"
	CategoryReportsVerified    Category = "reports_verified"
	CategoryEnforcementActions Category = "enforcement_actions"
)

// Validate checks the category is known
func (c Category) Validate() error {
	switch c {
	case CategoryPoints, CategoryReportsSubmitted, CategoryReportsVerified, CategoryEnforcementActions:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
}

// Period selects the time window the score is summed over
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all_time"
)

// Window lengths for the trailing periods
const (
	WeeklyWindow  = 7 * 24 * time.Hour
	MonthlyWindow = 30 * 24 * time.Hour
)

// Validate checks the period is known
func (p Period) Validate() error {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
}

// Since returns the start of the trailing window; zero for all-time
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return now.Add(-WeeklyWindow)
	case PeriodMonthly:
		return now.Add(-MonthlyWindow)
	default:
		return time.Time{}
	}
}

// Candidate is one guardian's pre-aggregated score
type Candidate struct {
	UserID            types.UserID   `json:"user_id"`
	DisplayName       string         `json:"display_name"`
	GuardianRank      ranks.Rank     `json:"guardian_rank"`
	Score             int            `json:"score"`
	Region            types.RegionID `json:"region,omitempty"`
	ShowOnLeaderboard bool           `json:"show_on_leaderboard"`
}

// Entry is one numbered row of a leaderboard
type Entry struct {
	Position     int            `json:"rank"`
	UserID       types.UserID   `json:"user_id"`
	DisplayName  string         `json:"display_name"`
	GuardianRank ranks.Rank     `json:"guardian_rank"`
	Score        int            `json:"score"`
	Region       types.RegionID `json:"region,omitempty"`
}

// Rank orders eligible candidates and numbers them 1..n. Candidates that opted
// out or have no positive score are dropped. Equal scores are ordered by
// ascending user id, so repeated calls produce the same list.
func Rank(candidates []Candidate) []Entry {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.ShowOnLeaderboard || c.Score <= 0 {
			continue
		}
		eligible = append(eligible, c)
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Score != eligible[j].Score {
			return eligible[i].Score > eligible[j].Score
		}
		return eligible[i].UserID < eligible[j].UserID
	})

	entries := make([]Entry, len(eligible))
	for i, c := range eligible {
		entries[i] = Entry{
			Position:     i + 1,
			UserID:       c.UserID,
			DisplayName:  c.DisplayName,
			GuardianRank: c.GuardianRank,
			Score:        c.Score,
			Region:       c.Region,
		}
	}
	return entries
}

// Query describes one leaderboard request
type Query struct {
	Period     Period           `json:"period"`
	Category   Category         `json:"category"`
	Region     types.RegionID   `json:"region,omitempty"`
	Search     string           `json:"search,omitempty"`
	Pagination types.Pagination `json:"pagination"`
}

// Normalize fills defaults (all-time points, first page) and rolls a cell
// finer than region resolution up to its region
func (q Query) Normalize() Query {
	if q.Period == "" {
		q.Period = PeriodAllTime
	}
	if q.Category == "" {
		q.Category = CategoryPoints
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Pagination = q.Pagination.Normalize()
	if q.Region != "" {
		if r, err := region.ForCell(string(q.Region)); err == nil {
			q.Region = r
		}
	}
	return q
}

// Validate checks the period, category and region
func (q Query) Validate() error {
	if err := q.Period.Validate(); err != nil {
		return err
	}
	if err := q.Category.Validate(); err != nil {
		return err
	}
	if q.Region != "" {
		r, err := region.ForCell(string(q.Region))
		if err != nil {
			return err
		}
		if r != q.Region {
			return fmt.Errorf("%w: %s is not a region cell", region.ErrInvalidResolution, q.Region)
		}
	}
	return nil
}

// CacheKey identifies the ranked list this query reads from. Search and
// pagination are applied after the cache.
func (q Query) CacheKey() string {
	region := string(q.Region)
	if region == "" {
		region = "all"
	}
	return fmt.Sprintf("leaderboard:%s:%s:%s", q.Period, q.Category, region)
}

// Search keeps entries whose display name fuzzily matches text. Positions are
// kept from the full ranking.
func Search(entries []Entry, text string) []Entry {
	text = strings.TrimSpace(text)
	if text == "" {
		return entries
	}

	var out []Entry
	for _, e := range entries {
		if fuzzy.MatchNormalizedFold(text, e.DisplayName) {
			out = append(out, e)
		}
	}
	return out
}

// Page slices entries for the requested page and fills in the total
func Page(entries []Entry, p types.Pagination) ([]Entry, types.Pagination) {
	p = p.Normalize()
	p.Total = len(entries)

	start := p.Offset()
	if start < 0 || start >= len(entries) {
		return []Entry{}, p
	}
	end := start + p.PageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], p
}

// Standing is a user's place on a leaderboard
type Standing struct {
	Entry      Entry   `json:"entry"`
	Total      int     `json:"total"`
	Percentile float64 `json:"percentile"` // top X%
}

// Position finds userID in a ranked list
func Position(entries []Entry, userID types.UserID) (Standing, error) {
	for _, e := range entries {
		if e.UserID == userID {
			return Standing{
				Entry:      e,
				Total:      len(entries),
				Percentile: float64(e.Position) / float64(len(entries)) * 100,
			}, nil
		}
	}
	return Standing{}, fmt.Errorf("%w: %s", ErrUserNotRanked, userID)
}

// Around returns the entries within radius positions of userID
func Around(entries []Entry, userID types.UserID, radius int) ([]Entry, error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: radius %d", types.ErrInvalidInput, radius)
	}
	st, err := Position(entries, userID)
	if err != nil {
		return nil, err
	}
	idx := st.Entry.Position - 1
	radius = min(radius, len(entries))
	lo := max(0, idx-radius)
	hi := min(len(entries), idx+radius+1)
	return entries[lo:hi], nil
}
