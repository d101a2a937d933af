// Package ranks implements the Guardian rank ladder.
// Rank is derived from a guardian's verified report count and point total,
// both of which must meet a rung's thresholds.
package ranks

import (
	"errors"
	"fmt"
	"math"
)

// Error definitions
var (
	ErrUnknownRank   = errors.New("unknown guardian rank")
	ErrNegativeInput = errors.New("negative rank input")
)

// Rank is a Guardian reputation tier
type Rank string

const (
	Observer Rank = "observer"
	Bronze   Rank = "bronze"
	Silver   Rank = "silver"
	Gold     Rank = "gold"
	Diamond  Rank = "diamond"
)

// Requirement is the unlock threshold of one rung
type Requirement struct {
	Rank               Rank `json:"rank"`
	MinVerifiedReports int  `json:"min_verified_reports"`
	MinPoints          int  `json:"min_points"`
}

// ladder is ordered lowest to highest. Thresholds strictly increase on both
// dimensions; the first rung is the (0,0) floor.
var ladder = []Requirement{
	{Rank: Observer, MinVerifiedReports: 0, MinPoints: 0},
	{Rank: Bronze, MinVerifiedReports: 5, MinPoints: 50},
	{Rank: Silver, MinVerifiedReports: 20, MinPoints: 200},
	{Rank: Gold, MinVerifiedReports: 50, MinPoints: 500},
	{Rank: Diamond, MinVerifiedReports: 100, MinPoints: 1000},
}

// Ladder returns a copy of the rank ladder, lowest rung first
func Ladder() []Requirement {
	out := make([]Requirement, len(ladder))
	copy(out, ladder)
	return out
}

// Level returns the zero-based position of r on the ladder, or -1
func (r Rank) Level() int {
	for i, req := range ladder {
		if req.Rank == r {
			return i
		}
	}
	return -1
}

// IsValid reports whether r is on the ladder
func (r Rank) IsValid() bool {
	return r.Level() >= 0
}

// Compare returns -1, 0 or 1 by ladder order
func (r Rank) Compare(other Rank) int {
	a, b := r.Level(), other.Level()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether r is below other
func (r Rank) Less(other Rank) bool {
	return r.Compare(other) < 0
}

// Next returns the rung above r; ok is false at the top
func (r Rank) Next() (next Rank, ok bool) {
	lvl := r.Level()
	if lvl < 0 || lvl+1 >= len(ladder) {
		return "", false
	}
	return ladder[lvl+1].Rank, true
}

// ParseRank converts a wire string into a Rank
func ParseRank(s string) (Rank, error) {
	r := Rank(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRank, s)
	}
	return r, nil
}

// RequirementFor returns the thresholds of r
func RequirementFor(r Rank) (Requirement, error) {
	lvl := r.Level()
	if lvl < 0 {
		return Requirement{}, fmt.Errorf("%w: %q", ErrUnknownRank, r)
	}
	return ladder[lvl], nil
}

func validateInputs(verifiedReports, points int) error {
	if verifiedReports < 0 {
		return fmt.Errorf("%w: verified reports %d", ErrNegativeInput, verifiedReports)
	}
	if points < 0 {
		return fmt.Errorf("%w: points %d", ErrNegativeInput, points)
	}
	return nil
}

// Qualifies reports whether both thresholds of req are met
func (req Requirement) Qualifies(verifiedReports, points int) bool {
	return verifiedReports >= req.MinVerifiedReports && points >= req.MinPoints
}

// Resolve returns the highest rank whose thresholds are both met.
// The walk runs from the top rung down and ends at the observer floor.
func Resolve(verifiedReports, points int) (Rank, error) {
	if err := validateInputs(verifiedReports, points); err != nil {
		return "", err
	}
	for i := len(ladder) - 1; i >= 0; i-- {
		if ladder[i].Qualifies(verifiedReports, points) {
			return ladder[i].Rank, nil
		}
	}
	return Observer, nil
}

// IsPromotion reports whether moving from prev to next is an upward move
func IsPromotion(prev, next Rank) bool {
	return prev.Less(next)
}

// Progress is how far a guardian is toward the next rung
type Progress struct {
	Current          Rank  `json:"current"`
	Next             *Rank `json:"next,omitempty"`
	VerifiedProgress int   `json:"verified_progress"` // 0-100
	PointsProgress   int   `json:"points_progress"`   // 0-100
	VerifiedNeeded   int   `json:"verified_needed"`
	PointsNeeded     int   `json:"points_needed"`
}

// IsTerminal reports whether the guardian is at the top rung
func (p Progress) IsTerminal() bool {
	return p.Next == nil
}

// ComputeProgress measures verifiedReports and points against the rung directly
// above current. At the top rung Next is nil and both percentages are 100.
func ComputeProgress(current Rank, verifiedReports, points int) (Progress, error) {
	if err := validateInputs(verifiedReports, points); err != nil {
		return Progress{}, err
	}
	if !current.IsValid() {
		return Progress{}, fmt.Errorf("%w: %q", ErrUnknownRank, current)
	}

	next, ok := current.Next()
	if !ok {
		return Progress{
			Current:          current,
			VerifiedProgress: 100,
			PointsProgress:   100,
		}, nil
	}

	req, err := RequirementFor(next)
	if err != nil {
		return Progress{}, err
	}
	return Progress{
		Current:          current,
		Next:             &next,
		VerifiedProgress: percent(verifiedReports, req.MinVerifiedReports),
		PointsProgress:   percent(points, req.MinPoints),
		VerifiedNeeded:   max(0, req.MinVerifiedReports-verifiedReports),
		PointsNeeded:     max(0, req.MinPoints-points),
	}, nil
}

// percent is min(100, 100*have/need), floored. need is positive for every
// rung above observer.
func percent(have, need int) int {
	if need <= 0 {
		return 100
	}
	p := math.Floor(100 * float64(have) / float64(need))
	if p > 100 {
		return 100
	}
	return int(p)
}

// RankDescription returns descriptions for each rank
func RankDescription() map[Rank]string {
	return map[Rank]string{
		Observer: "Observer (0 verified, 0 pts): Watching and learning",
		Bronze:   "Bronze (5 verified, 50 pts): Reliable first reports",
		Silver:   "Silver (20 verified, 200 pts): Trusted community reporter",
		Gold:     "Gold (50 verified, 500 pts): Regional environmental watchdog",
		Diamond:  "Diamond (100 verified, 1000 pts): Elite Guardian",
	}
}
