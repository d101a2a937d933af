package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ecoguardian-in/core/leaderboard"
	ranks "github.com/ecoguardian-in/core/rank-ladder"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/types"
)

// Regional standing rules for the regional_expert badge
const (
	RegionalTopWindow     = leaderboard.MonthlyWindow
	RegionalTopMinReports = 5
)

// countedActivity is the activity each count category tallies
var countedActivity = map[leaderboard.Category]scoring.ActivityType{
	leaderboard.CategoryReportsSubmitted:   scoring.ReportSubmitted,
	leaderboard.CategoryReportsVerified:    scoring.ReportVerified,
	leaderboard.CategoryEnforcementActions: scoring.EnforcementTriggered,
}

type candidateRow struct {
	UserID            string
	DisplayName       string
	GuardianRank      string
	Region            string
	ShowOnLeaderboard bool
	Score             int
}

// LeaderboardCandidates sums each guardian's score for a category over the
// activity log from since onward. A zero since covers all time; an empty
// region covers everyone. Opted-out guardians are returned with their flag
// so the ranker can drop them.
func (s *Store) LeaderboardCandidates(ctx context.Context, category leaderboard.Category, since time.Time, region types.RegionID) ([]leaderboard.Candidate, error) {
	if err := category.Validate(); err != nil {
		return nil, err
	}

	const cols = "a.user_id, p.display_name, p.guardian_rank, p.region, p.show_on_leaderboard"
	q := s.db.WithContext(ctx).
		Table("guardian_activities AS a").
		Joins("JOIN guardian_profiles AS p ON p.user_id = a.user_id").
		Group(cols)

	if category == leaderboard.CategoryPoints {
		q = q.Select(cols + ", SUM(a.points_earned) AS score")
	} else {
		q = q.Select(cols+", COUNT(*) AS score").Where("a.type = ?", string(countedActivity[category]))
	}
	if !since.IsZero() {
		q = q.Where("a.created_at >= ?", since.UTC())
	}
	if region != "" {
		q = q.Where("p.region = ?", string(region))
	}

	var rows []candidateRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregating %s leaderboard: %w", category, err)
	}

	out := make([]leaderboard.Candidate, len(rows))
	for i, r := range rows {
		out[i] = leaderboard.Candidate{
			UserID:            types.UserID(r.UserID),
			DisplayName:       r.DisplayName,
			GuardianRank:      ranks.Rank(r.GuardianRank),
			Score:             r.Score,
			Region:            types.RegionID(r.Region),
			ShowOnLeaderboard: r.ShowOnLeaderboard,
		}
	}
	return out, nil
}

type regionalCount struct {
	UserID  string
	Reports int
}

func regionalCounts(tx *gorm.DB, region types.RegionID, since time.Time) ([]regionalCount, error) {
	var counts []regionalCount
	err := tx.Model(&ActivityRow{}).
		Select("user_id, COUNT(*) AS reports").
		Where("region = ? AND type = ? AND created_at >= ?", string(region), string(scoring.ReportSubmitted), since).
		Group("user_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("counting regional reports: %w", err)
	}
	return counts, nil
}

// topReporter picks the most reports, ties going to the lower user id
func topReporter(counts []regionalCount) (regionalCount, bool) {
	var best regionalCount
	found := false
	for _, c := range counts {
		if !found || c.Reports > best.Reports || (c.Reports == best.Reports && c.UserID < best.UserID) {
			best = c
			found = true
		}
	}
	return best, found && best.Reports >= RegionalTopMinReports
}

// regionalTopAfter reports whether act's user leads its region once act is counted
func regionalTopAfter(tx *gorm.DB, region types.RegionID, act *scoring.UserActivity, now time.Time) (bool, error) {
	if region == "" {
		return false, nil
	}
	counts, err := regionalCounts(tx, region, now.Add(-RegionalTopWindow))
	if err != nil {
		return false, err
	}

	if act.Type == scoring.ReportSubmitted {
		found := false
		for i := range counts {
			if counts[i].UserID == string(act.UserID) {
				counts[i].Reports++
				found = true
			}
		}
		if !found {
			counts = append(counts, regionalCount{UserID: string(act.UserID), Reports: 1})
		}
	}

	top, ok := topReporter(counts)
	return ok && top.UserID == string(act.UserID), nil
}

// RegionalTop returns the guardian with the most reports submitted in a
// region from since onward, with their count. It fails with ErrNotFound when
// nobody has reached RegionalTopMinReports.
func (s *Store) RegionalTop(ctx context.Context, region types.RegionID, since time.Time) (types.UserID, int, error) {
	if region == "" {
		return "", 0, fmt.Errorf("%w: region is required", types.ErrInvalidInput)
	}
	counts, err := regionalCounts(s.db.WithContext(ctx), region, since.UTC())
	if err != nil {
		return "", 0, err
	}
	top, ok := topReporter(counts)
	if !ok {
		return "", 0, fmt.Errorf("%w: no leading reporter in %s", types.ErrNotFound, region)
	}
	return types.UserID(top.UserID), top.Reports, nil
}

// IsRegionalTop reports whether userID currently leads their home region
func (s *Store) IsRegionalTop(ctx context.Context, userID types.UserID, region types.RegionID) (bool, error) {
	if region == "" {
		return false, nil
	}
	top, _, err := s.RegionalTop(ctx, region, s.clock().Add(-RegionalTopWindow))
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return top == userID, nil
}
