package guardian

import (
	"time"

	"github.com/ecoguardian-in/core/badges"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/types"
)

// StatsFromLog derives a badge snapshot from a user's activity log as of now.
// IsRegionalTop is not derivable from one user's log and is left false.
func StatsFromLog(log []scoring.UserActivity, now time.Time) badges.StatsSnapshot {
	var s badges.StatsSnapshot
	days := make([]time.Time, 0, len(log))

	for _, a := range log {
		days = append(days, a.CreatedAt)

		switch a.Type {
		case scoring.ReportSubmitted:
			s.ReportsSubmitted++
			switch types.IncidentCategory(a.Meta(types.MetaCategory)) {
			case types.CategoryWaterPollution:
				s.WaterReports++
			case types.CategoryDeforestation:
				s.DeforestationReports++
			}
			if types.ReportChannel(a.Meta(types.MetaChannel)) == types.ChannelVoice {
				s.VoiceReports++
			}
		case scoring.ReportVerified:
			s.ReportsVerified++
		case scoring.EnforcementTriggered:
			s.EnforcementActions++
		case scoring.EvidenceUploaded:
			s.EvidenceCount++
		}
	}

	s.ActivityStreak = StreakDays(days, now)
	return s
}

// StreakDays counts consecutive UTC calendar days with activity, ending at the
// most recent active day. A streak whose last day is before yesterday is
// broken and counts 0.
func StreakDays(times []time.Time, now time.Time) int {
	if len(times) == 0 {
		return 0
	}

	active := make(map[time.Time]bool, len(times))
	var latest time.Time
	for _, t := range times {
		d := day(t)
		active[d] = true
		if d.After(latest) {
			latest = d
		}
	}

	today := day(now)
	if latest.Before(today.AddDate(0, 0, -1)) {
		return 0
	}

	streak := 0
	for d := latest; active[d]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
