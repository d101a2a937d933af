package store

import (
	"time"

	"github.com/ecoguardian-in/core/badges"
	"github.com/ecoguardian-in/core/guardian"
	impact "github.com/ecoguardian-in/core/outcome-impact"
	ranks "github.com/ecoguardian-in/core/rank-ladder"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/types"
)

// ProfileRow is the cached guardian profile. Version guards concurrent
// writers: every update must match the version it read.
type ProfileRow struct {
	UserID             string `gorm:"primaryKey;size:128"`
	DisplayName        string
	GuardianRank       string `gorm:"index"`
	Points             int
	ReportsSubmitted   int
	ReportsVerified    int
	EnforcementActions int
	Region             string `gorm:"index"`
	ShowOnLeaderboard  bool
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (ProfileRow) TableName() string { return "guardian_profiles" }

// ActivityRow is one entry of the append-only activity log
type ActivityRow struct {
	ID           string            `gorm:"primaryKey;size:36"`
	UserID       string            `gorm:"size:128;index:idx_activity_user_time,priority:1"`
	Type         string            `gorm:"index"`
	IncidentID   string            `gorm:"index"`
	PointsEarned int
	Region       string            `gorm:"index:idx_activity_region_time,priority:1"`
	Metadata     map[string]string `gorm:"serializer:json"`
	CreatedAt    time.Time         `gorm:"index:idx_activity_user_time,priority:2;index:idx_activity_region_time,priority:2"`
}

func (ActivityRow) TableName() string { return "guardian_activities" }

// BadgeAwardRow records an earned badge. The unique index makes a second
// award of the same badge fail even if two writers race past the version check.
type BadgeAwardRow struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"size:128;uniqueIndex:idx_badge_award"`
	BadgeID   string    `gorm:"size:64;uniqueIndex:idx_badge_award"`
	AwardedAt time.Time
}

func (BadgeAwardRow) TableName() string { return "guardian_badge_awards" }

// OutcomeRow is an enforcement outcome reported against an incident
type OutcomeRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	IncidentID  string `gorm:"index"`
	ReporterID  string `gorm:"size:128;index"`
	Type        string
	OutcomeDate time.Time
	Verified    bool `gorm:"index"`
	VerifiedBy  string
	VerifiedAt  *time.Time
	ImpactScore float64
	CreatedAt   time.Time
}

func (OutcomeRow) TableName() string { return "guardian_outcomes" }

func allModels() []any {
	return []any{&ProfileRow{}, &ActivityRow{}, &BadgeAwardRow{}, &OutcomeRow{}}
}

func profileRowFrom(p *guardian.Profile) ProfileRow {
	return ProfileRow{
		UserID:             string(p.UserID),
		DisplayName:        p.DisplayName,
		GuardianRank:       string(p.Rank),
		Points:             p.Points,
		ReportsSubmitted:   p.ReportsSubmitted,
		ReportsVerified:    p.ReportsVerified,
		EnforcementActions: p.EnforcementActions,
		Region:             string(p.Region),
		ShowOnLeaderboard:  p.ShowOnLeaderboard,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (r *ProfileRow) toProfile(awards []BadgeAwardRow) *guardian.Profile {
	earned := make(badges.Earned, len(awards))
	for _, a := range awards {
		earned[badges.ID(a.BadgeID)] = a.AwardedAt
	}
	return &guardian.Profile{
		UserID:             types.UserID(r.UserID),
		DisplayName:        r.DisplayName,
		Rank:               ranks.Rank(r.GuardianRank),
		Points:             r.Points,
		ReportsSubmitted:   r.ReportsSubmitted,
		ReportsVerified:    r.ReportsVerified,
		EnforcementActions: r.EnforcementActions,
		Badges:             earned,
		Region:             types.RegionID(r.Region),
		ShowOnLeaderboard:  r.ShowOnLeaderboard,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func activityRowFrom(a scoring.UserActivity, region types.RegionID) ActivityRow {
	return ActivityRow{
		ID:           a.ID,
		UserID:       string(a.UserID),
		Type:         string(a.Type),
		IncidentID:   string(a.IncidentID),
		PointsEarned: a.PointsEarned,
		Region:       string(region),
		Metadata:     a.Metadata,
		CreatedAt:    a.CreatedAt,
	}
}

func (r *ActivityRow) toActivity() scoring.UserActivity {
	return scoring.UserActivity{
		ID:           r.ID,
		UserID:       types.UserID(r.UserID),
		Type:         scoring.ActivityType(r.Type),
		IncidentID:   types.IncidentID(r.IncidentID),
		PointsEarned: r.PointsEarned,
		Metadata:     r.Metadata,
		CreatedAt:    r.CreatedAt,
	}
}

func outcomeRowFrom(o *impact.IncidentOutcome, now time.Time) OutcomeRow {
	return OutcomeRow{
		ID:          string(o.ID),
		IncidentID:  string(o.IncidentID),
		ReporterID:  string(o.ReporterID),
		Type:        string(o.Type),
		OutcomeDate: o.OutcomeDate,
		Verified:    o.Verified,
		VerifiedBy:  string(o.VerifiedBy),
		VerifiedAt:  o.VerifiedAt,
		ImpactScore: o.ImpactScore,
		CreatedAt:   now,
	}
}

func (r *OutcomeRow) toOutcome() *impact.IncidentOutcome {
	return &impact.IncidentOutcome{
		ID:          types.OutcomeID(r.ID),
		IncidentID:  types.IncidentID(r.IncidentID),
		ReporterID:  types.UserID(r.ReporterID),
		Type:        impact.OutcomeType(r.Type),
		OutcomeDate: r.OutcomeDate,
		Verified:    r.Verified,
		VerifiedBy:  types.UserID(r.VerifiedBy),
		VerifiedAt:  r.VerifiedAt,
		ImpactScore: r.ImpactScore,
	}
}
