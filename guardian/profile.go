// Package guardian holds the per-user Guardian profile and the rules for
// folding activity into it. The activity log is the source of truth; a
// Profile is a materialised view that Replay can rebuild at any time.
package guardian

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ecoguardian-in/core/badges"
	ranks "github.com/ecoguardian-in/core/rank-ladder"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/types"
)

// Error definitions
var (
	ErrWrongUser          = errors.New("activity belongs to another user")
	ErrDerivedActivity    = errors.New("activity type is derived, not applied directly")
	ErrInconsistentLog    = errors.New("activity log is inconsistent")
	ErrNegativeAdjustment = errors.New("activity would decrease a counter")
)

// Profile is a guardian's cumulative reputation state
type Profile struct {
	UserID             types.UserID   `json:"user_id"`
	DisplayName        string         `json:"display_name"`
	Rank               ranks.Rank     `json:"rank"`
	Points             int            `json:"points"`
	ReportsSubmitted   int            `json:"reports_submitted"`
	ReportsVerified    int            `json:"reports_verified"`
	EnforcementActions int            `json:"enforcement_actions"`
	Badges             badges.Earned  `json:"badges"`
	Region             types.RegionID `json:"region,omitempty"`
	ShowOnLeaderboard  bool           `json:"show_on_leaderboard"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// NewProfile creates a profile with default values
func NewProfile(userID types.UserID, displayName string, now time.Time) *Profile {
	return &Profile{
		UserID:            userID,
		DisplayName:       displayName,
		Rank:              ranks.Observer,
		Badges:            badges.Earned{},
		ShowOnLeaderboard: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Stats overlays the profile's own counters onto a snapshot carrying the
// log-derived fields (category counts, streak, regional standing)
func (p *Profile) Stats(extra badges.StatsSnapshot) badges.StatsSnapshot {
	extra.ReportsSubmitted = p.ReportsSubmitted
	extra.ReportsVerified = p.ReportsVerified
	extra.EnforcementActions = p.EnforcementActions
	return extra
}

// RankTransition records a change of cached rank
type RankTransition struct {
	From     ranks.Rank `json:"from"`
	To       ranks.Rank `json:"to"`
	Promoted bool       `json:"promoted"`
}

// Result is everything one applied activity produced
type Result struct {
	// Activities is the applied activity followed by any badge_earned and
	// rank_promoted records it triggered, in the order they happened
	Activities    []scoring.UserActivity `json:"activities"`
	PointsDelta   int                    `json:"points_delta"`
	BadgesAwarded []badges.Badge         `json:"badges_awarded,omitempty"`
	Rank          RankTransition         `json:"rank"`
}

// Apply folds one scored activity into the profile. extra supplies the
// log-derived stats as they stand after this activity. Newly qualifying
// badges are awarded once and their points credited; the rank is then
// re-resolved, and every upward move earns rank_promoted points, which can
// in turn lift the rank again.
func (p *Profile) Apply(act *scoring.UserActivity, extra badges.StatsSnapshot, now time.Time) (*Result, error) {
	if act.UserID != p.UserID {
		return nil, fmt.Errorf("%w: %s applied to %s", ErrWrongUser, act.UserID, p.UserID)
	}
	if act.Type == scoring.BadgeEarned || act.Type == scoring.RankPromoted {
		return nil, fmt.Errorf("%w: %s", ErrDerivedActivity, act.Type)
	}
	if err := scoring.ValidateActivity(act.Type); err != nil {
		return nil, err
	}
	if act.PointsEarned < 0 {
		return nil, fmt.Errorf("%w: %d points", ErrNegativeAdjustment, act.PointsEarned)
	}
	if p.Badges == nil {
		p.Badges = badges.Earned{}
	}

	startPoints := p.Points
	res := &Result{
		Activities: []scoring.UserActivity{*act},
		Rank:       RankTransition{From: p.Rank, To: p.Rank},
	}

	p.Points += act.PointsEarned
	p.bump(act.Type)

	awarded, err := badges.Evaluate(p.Stats(extra), p.Badges)
	if err != nil {
		return nil, err
	}
	for _, b := range awarded {
		p.Badges[b.ID] = now
		p.Points += b.Points
		res.Activities = append(res.Activities, *scoring.NewBadgeActivity(p.UserID, string(b.ID), b.Points, now))
	}
	res.BadgesAwarded = awarded

	promotions, err := p.settleRank(now)
	if err != nil {
		return nil, err
	}
	res.Activities = append(res.Activities, promotions...)
	res.Rank.To = p.Rank
	res.Rank.Promoted = ranks.IsPromotion(res.Rank.From, res.Rank.To)

	res.PointsDelta = p.Points - startPoints
	p.UpdatedAt = now
	return res, nil
}

// settleRank re-resolves the rank until it stops moving. The loop is bounded
// by the ladder height since each pass either stops or climbs a rung.
func (p *Profile) settleRank(now time.Time) ([]scoring.UserActivity, error) {
	var out []scoring.UserActivity
	for i := 0; i < len(ranks.Ladder()); i++ {
		resolved, err := ranks.Resolve(p.ReportsVerified, p.Points)
		if err != nil {
			return nil, err
		}
		if !ranks.IsPromotion(p.Rank, resolved) {
			// a stale cached rank above the resolved one is corrected silently
			p.Rank = resolved
			return out, nil
		}
		promo := scoring.NewPromotionActivity(p.UserID, string(p.Rank), string(resolved), now)
		out = append(out, *promo)
		p.Points += promo.PointsEarned
		p.Rank = resolved
	}
	return out, nil
}

func (p *Profile) bump(t scoring.ActivityType) {
	switch t {
	case scoring.ReportSubmitted:
		p.ReportsSubmitted++
	case scoring.ReportVerified:
		p.ReportsVerified++
	case scoring.EnforcementTriggered:
		p.EnforcementActions++
	}
}

// Progress returns progress toward the next rank
func (p *Profile) Progress() (ranks.Progress, error) {
	return ranks.ComputeProgress(p.Rank, p.ReportsVerified, p.Points)
}

// BadgeIDs returns the earned badge ids in catalog order
func (p *Profile) BadgeIDs() []badges.ID {
	var out []badges.ID
	for _, b := range badges.Catalog() {
		if p.Badges.Has(b.ID) {
			out = append(out, b.ID)
		}
	}
	return out
}

// Replay rebuilds a profile from its activity log. Counters and points are
// summed, badges come from badge_earned records, and the rank is resolved
// from the totals.
func Replay(userID types.UserID, displayName string, log []scoring.UserActivity) (*Profile, error) {
	sorted := make([]scoring.UserActivity, len(log))
	copy(sorted, log)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var created time.Time
	if len(sorted) > 0 {
		created = sorted[0].CreatedAt
	}
	p := NewProfile(userID, displayName, created)

	for _, a := range sorted {
		if a.UserID != userID {
			return nil, fmt.Errorf("%w: %s in log of %s", ErrWrongUser, a.UserID, userID)
		}
		if err := scoring.ValidateActivity(a.Type); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInconsistentLog, err)
		}
		if a.PointsEarned < 0 {
			return nil, fmt.Errorf("%w: activity %s has %d points", ErrInconsistentLog, a.ID, a.PointsEarned)
		}
		p.Points += a.PointsEarned
		p.bump(a.Type)

		if a.Type == scoring.BadgeEarned {
			id := badges.ID(a.Meta(types.MetaBadgeID))
			if _, err := badges.Lookup(id); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInconsistentLog, err)
			}
			if p.Badges.Has(id) {
				return nil, fmt.Errorf("%w: badge %s awarded twice", ErrInconsistentLog, id)
			}
			p.Badges[id] = a.CreatedAt
		}
		p.UpdatedAt = a.CreatedAt
	}

	rank, err := ranks.Resolve(p.ReportsVerified, p.Points)
	if err != nil {
		return nil, err
	}
	p.Rank = rank
	return p, nil
}

// Drift lists the fields where a cached profile disagrees with a replayed one
func Drift(cached, replayed *Profile) []string {
	var out []string
	if cached.Points != replayed.Points {
		out = append(out, "points")
	}
	if cached.Rank != replayed.Rank {
		out = append(out, "rank")
	}
	if cached.ReportsSubmitted != replayed.ReportsSubmitted {
		out = append(out, "reports_submitted")
	}
	if cached.ReportsVerified != replayed.ReportsVerified {
		out = append(out, "reports_verified")
	}
	if cached.EnforcementActions != replayed.EnforcementActions {
		out = append(out, "enforcement_actions")
	}
	if len(cached.Badges) != len(replayed.Badges) {
		out = append(out, "badges")
	} else {
		for id := range replayed.Badges {
			if !cached.Badges.Has(id) {
				out = append(out, "badges")
				break
			}
		}
	}
	return out
}
