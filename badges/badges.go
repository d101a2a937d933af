// Package badges implements the Guardian badge catalog and evaluator.
// Every badge is a single threshold on one stats field, so the table below is
// the whole rule set.
package badges

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Error definitions
var (
	ErrUnknownBadge = errors.New("unknown badge")
	ErrNegativeStat = errors.New("negative stats value")
)

// ID identifies a badge
type ID string

const (
	FirstReport     ID = "first_report"
	Verified5       ID = "verified_5"
	Verified20      ID = "verified_20"
	Verified50      ID = "verified_50"
	Enforcement1    ID = "enforcement_1"
	Enforcement5    ID = "enforcement_5"
	WaterGuardian   ID = "water_guardian"
	ForestProtector ID = "forest_protector"
	PhotoEvidence   ID = "photo_evidence"
	VoiceReporter   ID = "voice_reporter"
	Streak7         ID = "streak_7"
	Streak30        ID = "streak_30"
	RegionalExpert  ID = "regional_expert"
)

// Field names a StatsSnapshot counter a badge is measured against
type Field string

const (
	FieldReportsSubmitted     Field = "reports_submitted"
	FieldReportsVerified      Field = "reports_verified"
	FieldEnforcementActions   Field = "enforcement_actions"
	FieldWaterReports         Field = "water_reports"
	FieldDeforestationReports Field = "deforestation_reports"
	FieldEvidenceCount        Field = "evidence_count"
	FieldVoiceReports         Field = "voice_reports"
	FieldActivityStreak       Field = "activity_streak"
	FieldRegionalTop          Field = "is_regional_top" // boolean, threshold 1
)

// Badge is an immutable catalog entry
type Badge struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Points      int    `json:"points"`
	Field       Field  `json:"field"`
	Threshold   int    `json:"threshold"`
}

// catalog is in display order. Order does not affect evaluation results.
var catalog = []Badge{
	{ID: FirstReport, Name: "First Report", Description: "Submitted your first incident report", Icon: "flag", Points: 10, Field: FieldReportsSubmitted, Threshold: 1},
	{ID: Verified5, Name: "Trusted Reporter", Description: "5 of your reports were verified", Icon: "check-circle", Points: 25, Field: FieldReportsVerified, Threshold: 5},
	{ID: Verified20, Name: "Reliable Witness", Description: "20 of your reports were verified", Icon: "shield-check", Points: 100, Field: FieldReportsVerified, Threshold: 20},
	{ID: Verified50, Name: "Veteran Guardian", Description: "50 of your reports were verified", Icon: "award", Points: 250, Field: FieldReportsVerified, Threshold: 50},
	{ID: Enforcement1, Name: "Catalyst", Description: "A report of yours led to enforcement action", Icon: "gavel", Points: 50, Field: FieldEnforcementActions, Threshold: 1},
	{ID: Enforcement5, Name: "Change Maker", Description: "5 reports of yours led to enforcement action", Icon: "scale", Points: 200, Field: FieldEnforcementActions, Threshold: 5},
	{ID: WaterGuardian, Name: "Water Guardian", Description: "Reported 10 water pollution incidents", Icon: "droplet", Points: 100, Field: FieldWaterReports, Threshold: 10},
	{ID: ForestProtector, Name: "Forest Protector", Description: "Reported 10 deforestation incidents", Icon: "tree", Points: 100, Field: FieldDeforestationReports, Threshold: 10},
	{ID: PhotoEvidence, Name: "Evidence Collector", Description: "Uploaded 50 pieces of evidence", Icon: "camera", Points: 75, Field: FieldEvidenceCount, Threshold: 50},
	{ID: VoiceReporter, Name: "Voice of the Land", Description: "Submitted 10 reports by voice", Icon: "mic", Points: 50, Field: FieldVoiceReports, Threshold: 10},
	{ID: Streak7, Name: "Week Watch", Description: "Active 7 days in a row", Icon: "calendar", Points: 30, Field: FieldActivityStreak, Threshold: 7},
	{ID: Streak30, Name: "Month Watch", Description: "Active 30 days in a row", Icon: "flame", Points: 150, Field: FieldActivityStreak, Threshold: 30},
	{ID: RegionalExpert, Name: "Regional Expert", Description: "Top reporter in your region this period", Icon: "map-pin", Points: 500, Field: FieldRegionalTop, Threshold: 1},
}

var byID = func() map[ID]Badge {
	m := make(map[ID]Badge, len(catalog))
	for _, b := range catalog {
		m[b.ID] = b
	}
	return m
}()

// Catalog returns a copy of every badge in display order
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for id
func Lookup(id ID) (Badge, error) {
	b, ok := byID[id]
	if !ok {
		return Badge{}, fmt.Errorf("%w: %q", ErrUnknownBadge, id)
	}
	return b, nil
}

// StatsSnapshot is a guardian's cumulative state at evaluation time
type StatsSnapshot struct {
	ReportsSubmitted     int  `json:"reports_submitted"`
	ReportsVerified      int  `json:"reports_verified"`
	EnforcementActions   int  `json:"enforcement_actions"`
	WaterReports         int  `json:"water_reports"`
	DeforestationReports int  `json:"deforestation_reports"`
	EvidenceCount        int  `json:"evidence_count"`
	VoiceReports         int  `json:"voice_reports"`
	ActivityStreak       int  `json:"activity_streak"`
	IsRegionalTop        bool `json:"is_regional_top"`
}

// Validate rejects negative counters
func (s StatsSnapshot) Validate() error {
	for _, f := range []Field{
		FieldReportsSubmitted, FieldReportsVerified, FieldEnforcementActions,
		FieldWaterReports, FieldDeforestationReports, FieldEvidenceCount,
		FieldVoiceReports, FieldActivityStreak,
	} {
		if v := s.Value(f); v < 0 {
			return fmt.Errorf("%w: %s = %d", ErrNegativeStat, f, v)
		}
	}
	return nil
}

// Value returns the counter named by f; booleans read as 0 or 1
func (s StatsSnapshot) Value(f Field) int {
	switch f {
	case FieldReportsSubmitted:
		return s.ReportsSubmitted
	case FieldReportsVerified:
		return s.ReportsVerified
	case FieldEnforcementActions:
		return s.EnforcementActions
	case FieldWaterReports:
		return s.WaterReports
	case FieldDeforestationReports:
		return s.DeforestationReports
	case FieldEvidenceCount:
		return s.EvidenceCount
	case FieldVoiceReports:
		return s.VoiceReports
	case FieldActivityStreak:
		return s.ActivityStreak
	case FieldRegionalTop:
		if s.IsRegionalTop {
			return 1
		}
		return 0
	}
	return 0
}

// Qualifies reports whether the snapshot meets this badge's threshold
func (b Badge) Qualifies(s StatsSnapshot) bool {
	return s.Value(b.Field) >= b.Threshold
}

// Earned is a set of badge ids a guardian already holds
type Earned map[ID]time.Time

// Has reports whether id is in the set
func (e Earned) Has(id ID) bool {
	_, ok := e[id]
	return ok
}

// EarnedSet builds an Earned set from ids with zero award times
func EarnedSet(ids ...ID) Earned {
	e := make(Earned, len(ids))
	for _, id := range ids {
		e[id] = time.Time{}
	}
	return e
}

// Evaluate returns, in catalog order, every badge the snapshot qualifies for
// that is not already earned. A jump across several thresholds awards every
// crossed badge in the same call.
func Evaluate(stats StatsSnapshot, alreadyEarned Earned) ([]Badge, error) {
	if err := stats.Validate(); err != nil {
		return nil, err
	}

	var out []Badge
	for _, b := range catalog {
		if alreadyEarned.Has(b.ID) {
			continue
		}
		if b.Qualifies(stats) {
			out = append(out, b)
		}
	}
	return out, nil
}

// TotalPoints sums the point values of the given badges
func TotalPoints(ids []ID) (int, error) {
	total := 0
	for _, id := range ids {
		b, err := Lookup(id)
		if err != nil {
			return 0, err
		}
		total += b.Points
	}
	return total, nil
}

// BadgeProgress is how close a guardian is to an unearned badge
type BadgeProgress struct {
	Badge   Badge `json:"badge"`
	Current int   `json:"current"`
	Percent int   `json:"percent"`
}

// NextBadges reports progress toward every unearned badge, closest first
func NextBadges(stats StatsSnapshot, earned Earned) ([]BadgeProgress, error) {
	if err := stats.Validate(); err != nil {
		return nil, err
	}

	var out []BadgeProgress
	for _, b := range catalog {
		if earned.Has(b.ID) {
			continue
		}
		cur := stats.Value(b.Field)
		pct := int(math.Floor(100 * float64(cur) / float64(b.Threshold)))
		if pct > 100 {
			pct = 100
		}
		out = append(out, BadgeProgress{Badge: b, Current: cur, Percent: pct})
	}

	// insertion sort keeps catalog order among equal percentages
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Percent > out[j-1].Percent; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// BadgeDescription returns descriptions for each badge
func BadgeDescription() map[ID]string {
	out := make(map[ID]string, len(catalog))
	for _, b := range catalog {
		out[b.ID] = fmt.Sprintf("%s (+%d): %s", b.Name, b.Points, b.Description)
	}
	return out
}
