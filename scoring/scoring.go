// Package scoring implements the Guardian activity point table.
// The table is public so guardians can verify exactly how their points are earned.
package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecoguardian-in/core/types"
)

// Error definitions
var (
	ErrUnknownActivity = errors.New("unknown activity type")
	ErrInvalidActivity = errors.New("invalid activity")
)

// ActivityType defines the kinds of user activity that are scored
type ActivityType string

const (
	ReportSubmitted      ActivityType = "report_submitted"
	ReportVerified       ActivityType = "report_verified"
	ReportRejected       ActivityType = "report_rejected"
	EnforcementTriggered ActivityType = "enforcement_triggered"
	BadgeEarned          ActivityType = "badge_earned"
	RankPromoted         ActivityType = "rank_promoted"
	CommentAdded         ActivityType = "comment_added"
	EvidenceUploaded     ActivityType = "evidence_uploaded"
	AlertSubscription    ActivityType = "alert_subscription"
)

// Points defines the point value for each activity type.
// Existing guardians' totals were computed with these values; do not change them.
var Points = map[ActivityType]int{
	ReportSubmitted:      5,
	ReportVerified:       15,
	ReportRejected:       0, // not penalised, only unrewarded
	EnforcementTriggered: 50,
	BadgeEarned:          0, // badge points are credited by the badge award
	RankPromoted:         25,
	CommentAdded:         2,
	EvidenceUploaded:     5,
	AlertSubscription:    3,
}

var activityOrder = []ActivityType{
	ReportSubmitted,
	ReportVerified,
	ReportRejected,
	EnforcementTriggered,
	BadgeEarned,
	RankPromoted,
	CommentAdded,
	EvidenceUploaded,
	AlertSubscription,
}

// ActivityTypes returns every activity type in table order
func ActivityTypes() []ActivityType {
	out := make([]ActivityType, len(activityOrder))
	copy(out, activityOrder)
	return out
}

// Score returns the point value for an activity type.
// An unknown type is an error, never zero.
func Score(activity ActivityType) (int, error) {
	pts, ok := Points[activity]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownActivity, activity)
	}
	return pts, nil
}

// MustScore is Score for compile-time constants; it panics on an unknown type.
func MustScore(activity ActivityType) int {
	pts, err := Score(activity)
	if err != nil {
		panic(err)
	}
	return pts
}

// ValidateActivity checks if an activity type is valid
func ValidateActivity(activity ActivityType) error {
	_, err := Score(activity)
	return err
}

// ParseActivityType converts a wire string into an ActivityType
func ParseActivityType(s string) (ActivityType, error) {
	a := ActivityType(s)
	if err := ValidateActivity(a); err != nil {
		return "", err
	}
	return a, nil
}

// UserActivity is an append-only record of one scored action
type UserActivity struct {
	ID           string            `json:"id"`
	UserID       types.UserID      `json:"user_id"`
	Type         ActivityType      `json:"activity_type"`
	IncidentID   types.IncidentID  `json:"incident_id,omitempty"`
	PointsEarned int               `json:"points_earned"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Meta returns a metadata value or ""
func (a UserActivity) Meta(key string) string {
	if a.Metadata == nil {
		return ""
	}
	return a.Metadata[key]
}

// NewActivity creates the activity record for a scored action
func NewActivity(userID types.UserID, activity ActivityType, incidentID types.IncidentID, metadata map[string]string, now time.Time) (*UserActivity, error) {
	if err := userID.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActivity, err)
	}
	pts, err := Score(activity)
	if err != nil {
		return nil, err
	}
	if activity == BadgeEarned {
		return nil, fmt.Errorf("%w: badge awards are recorded with NewBadgeActivity", ErrInvalidActivity)
	}

	var meta map[string]string
	if len(metadata) > 0 {
		meta = make(map[string]string, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}

	return &UserActivity{
		ID:           uuid.NewString(),
		UserID:       userID,
		Type:         activity,
		IncidentID:   incidentID,
		PointsEarned: pts,
		Metadata:     meta,
		CreatedAt:    now,
	}, nil
}

// NewBadgeActivity records a badge award. PointsEarned carries the badge's own
// value so the activity log alone reproduces a guardian's point total.
func NewBadgeActivity(userID types.UserID, badgeID string, badgePoints int, now time.Time) *UserActivity {
	return &UserActivity{
		ID:           uuid.NewString(),
		UserID:       userID,
		Type:         BadgeEarned,
		PointsEarned: badgePoints,
		Metadata:     map[string]string{types.MetaBadgeID: badgeID},
		CreatedAt:    now,
	}
}

// NewPromotionActivity records a rank promotion worth the rank_promoted points
func NewPromotionActivity(userID types.UserID, from, to string, now time.Time) *UserActivity {
	return &UserActivity{
		ID:           uuid.NewString(),
		UserID:       userID,
		Type:         RankPromoted,
		PointsEarned: Points[RankPromoted],
		Metadata:     map[string]string{types.MetaRankFrom: from, types.MetaRankTo: to},
		CreatedAt:    now,
	}
}

// PointsDescription returns a human-readable description of point values
func PointsDescription() map[ActivityType]string {
	return map[ActivityType]string{
		ReportSubmitted:      "+5: Submit an incident report",
		ReportVerified:       "+15: Your report was verified by an authority",
		ReportRejected:       "+0: Your report was rejected (no penalty)",
		EnforcementTriggered: "+50: Your report led to enforcement action",
		BadgeEarned:          "+badge value: Earn a badge",
		RankPromoted:         "+25: Promoted to a higher Guardian rank",
		CommentAdded:         "+2: Comment on an incident",
		EvidenceUploaded:     "+5: Upload photo or video evidence",
		AlertSubscription:    "+3: Subscribe to regional alerts",
	}
}
