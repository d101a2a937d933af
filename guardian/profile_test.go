package guardian

import (
	"errors"
	"testing"
	"time"

	"github.com/ecoguardian-in/core/badges"
	ranks "github.com/ecoguardian-in/core/rank-ladder"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/types"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func mustActivity(t *testing.T, user types.UserID, kind scoring.ActivityType, meta map[string]string, at time.Time) *scoring.UserActivity {
	t.Helper()
	a, err := scoring.NewActivity(user, kind, "inc-1", meta, at)
	if err != nil {
		t.Fatalf("NewActivity(%s) returned error: %v", kind, err)
	}
	return a
}

// applyAll applies activities in order the way the store does: the log
// (including derived records) feeds StatsFromLog for each step.
func applyAll(t *testing.T, p *Profile, acts []*scoring.UserActivity) []scoring.UserActivity {
	t.Helper()
	var log []scoring.UserActivity
	for _, a := range acts {
		extra := StatsFromLog(append(log, *a), a.CreatedAt)
		res, err := p.Apply(a, extra, a.CreatedAt)
		if err != nil {
			t.Fatalf("Apply(%s) returned error: %v", a.Type, err)
		}
		log = append(log, res.Activities...)
	}
	return log
}

func TestNewProfile(t *testing.T) {
	p := NewProfile("user-123", "Asha", t0)

	if p.Rank != ranks.Observer {
		t.Errorf("Rank = %s, want observer", p.Rank)
	}
	if p.Points != 0 || len(p.Badges) != 0 {
		t.Errorf("new profile should be empty, got %+v", p)
	}
	if !p.ShowOnLeaderboard {
		t.Error("new profile should be on the leaderboard by default")
	}
}

func TestApply_FirstReport(t *testing.T) {
	p := NewProfile("user-1", "Asha", t0)
	act := mustActivity(t, "user-1", scoring.ReportSubmitted, nil, t0)

	res, err := p.Apply(act, StatsFromLog([]scoring.UserActivity{*act}, t0), t0)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if p.ReportsSubmitted != 1 {
		t.Errorf("ReportsSubmitted = %d, want 1", p.ReportsSubmitted)
	}
	if len(res.BadgesAwarded) != 1 || res.BadgesAwarded[0].ID != badges.FirstReport {
		t.Fatalf("BadgesAwarded = %+v, want first_report", res.BadgesAwarded)
	}
	if p.Points != 15 || res.PointsDelta != 15 {
		t.Errorf("points = %d, delta = %d, want 15/15", p.Points, res.PointsDelta)
	}
	if len(res.Activities) != 2 || res.Activities[1].Type != scoring.BadgeEarned {
		t.Errorf("activities = %+v", res.Activities)
	}
	if res.Rank.Promoted {
		t.Error("first report should not promote")
	}
}

func TestApply_PromotionToBronze(t *testing.T) {
	p := NewProfile("user-1", "Asha", t0)
	p.ReportsVerified = 4
	p.ReportsSubmitted = 4
	p.Points = 45
	p.Badges = badges.EarnedSet(badges.FirstReport)

	act := mustActivity(t, "user-1", scoring.ReportVerified, nil, t0)
	extra := badges.StatsSnapshot{} // counters come from the profile

	res, err := p.Apply(act, extra, t0)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	// 45 + 15 (verified) + 25 (verified_5) = 85 → bronze, +25 promotion = 110
	if p.Points != 110 {
		t.Errorf("Points = %d, want 110", p.Points)
	}
	if res.PointsDelta != 65 {
		t.Errorf("PointsDelta = %d, want 65", res.PointsDelta)
	}
	if p.Rank != ranks.Bronze {
		t.Errorf("Rank = %s, want bronze", p.Rank)
	}
	if !res.Rank.Promoted || res.Rank.From != ranks.Observer || res.Rank.To != ranks.Bronze {
		t.Errorf("transition = %+v", res.Rank)
	}

	last := res.Activities[len(res.Activities)-1]
	if last.Type != scoring.RankPromoted || last.Meta(types.MetaRankTo) != "bronze" {
		t.Errorf("last activity = %+v, want rank_promoted to bronze", last)
	}
}

func TestApply_MultiRungJump(t *testing.T) {
	p := NewProfile("user-1", "Asha", t0)
	p.ReportsVerified = 49
	p.Points = 470
	p.Badges = badges.EarnedSet(badges.Verified5, badges.Verified20)

	act := mustActivity(t, "user-1", scoring.ReportVerified, nil, t0)
	res, err := p.Apply(act, badges.StatsSnapshot{}, t0)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if p.Rank != ranks.Gold {
		t.Fatalf("Rank = %s, want gold", p.Rank)
	}
	promotions := 0
	for _, a := range res.Activities {
		if a.Type == scoring.RankPromoted {
			promotions++
			if a.Meta(types.MetaRankFrom) != "observer" || a.Meta(types.MetaRankTo) != "gold" {
				t.Errorf("promotion = %v", a.Metadata)
			}
		}
	}
	if promotions != 1 {
		t.Errorf("promotions = %d, want 1 (single jump)", promotions)
	}
	// 470 + 15 + 250 (verified_50) + 25
	if p.Points != 760 {
		t.Errorf("Points = %d, want 760", p.Points)
	}
}

func TestApply_BadgesNotReawarded(t *testing.T) {
	p := NewProfile("user-1", "Asha", t0)
	log := applyAll(t, p, []*scoring.UserActivity{
		mustActivity(t, "user-1", scoring.ReportSubmitted, nil, t0),
	})
	points := p.Points

	act := mustActivity(t, "user-1", scoring.CommentAdded, nil, t0.Add(time.Hour))
	res, err := p.Apply(act, StatsFromLog(append(log, *act), act.CreatedAt), act.CreatedAt)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(res.BadgesAwarded) != 0 {
		t.Errorf("BadgesAwarded = %+v, want none", res.BadgesAwarded)
	}
	if p.Points != points+2 {
		t.Errorf("Points = %d, want %d", p.Points, points+2)
	}
}

func TestApply_RejectedScoresZero(t *testing.T) {
	p := NewProfile("user-1", "Asha", t0)
	act := mustActivity(t, "user-1", scoring.ReportRejected, nil, t0)

	res, err := p.Apply(act, badges.StatsSnapshot{}, t0)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if res.PointsDelta != 0 || p.Points != 0 {
		t.Errorf("rejected report changed points: delta %d", res.PointsDelta)
	}
}

func TestApply_Errors(t *testing.T) {
	p := NewProfile("user-1", "Asha", t0)

	other := mustActivity(t, "user-2", scoring.ReportSubmitted, nil, t0)
	if _, err := p.Apply(other, badges.StatsSnapshot{}, t0); !errors.Is(err, ErrWrongUser) {
		t.Errorf("error = %v, want ErrWrongUser", err)
	}

	badge := scoring.NewBadgeActivity("user-1", "first_report", 10, t0)
	if _, err := p.Apply(badge, badges.StatsSnapshot{}, t0); !errors.Is(err, ErrDerivedActivity) {
		t.Errorf("error = %v, want ErrDerivedActivity", err)
	}

	act := mustActivity(t, "user-1", scoring.CommentAdded, nil, t0)
	if _, err := p.Apply(act, badges.StatsSnapshot{EvidenceCount: -3}, t0); !errors.Is(err, badges.ErrNegativeStat) {
		t.Errorf("error = %v, want ErrNegativeStat", err)
	}
}

func TestApply_RankMatchesResolver(t *testing.T) {
	p := NewProfile("user-1", "Asha", t0)
	var acts []*scoring.UserActivity
	at := t0
	for i := 0; i < 30; i++ {
		at = at.Add(time.Hour)
		acts = append(acts, mustActivity(t, "user-1", scoring.ReportSubmitted, nil, at))
		at = at.Add(time.Hour)
		acts = append(acts, mustActivity(t, "user-1", scoring.ReportVerified, nil, at))
	}
	applyAll(t, p, acts)

	want, _ := ranks.Resolve(p.ReportsVerified, p.Points)
	if p.Rank != want {
		t.Errorf("cached rank %s != resolved %s", p.Rank, want)
	}
	if p.Rank != ranks.Silver {
		t.Errorf("Rank = %s, want silver after 30 verified", p.Rank)
	}
}

func TestReplay_MatchesApply(t *testing.T) {
	p := NewProfile("user-1", "Asha", t0)
	water := map[string]string{types.MetaCategory: string(types.CategoryWaterPollution)}

	var acts []*scoring.UserActivity
	at := t0
	for i := 0; i < 12; i++ {
		at = at.Add(2 * time.Hour)
		acts = append(acts,
			mustActivity(t, "user-1", scoring.ReportSubmitted, water, at),
			mustActivity(t, "user-1", scoring.ReportVerified, nil, at.Add(time.Minute)),
		)
	}
	acts = append(acts, mustActivity(t, "user-1", scoring.EnforcementTriggered, nil, at.Add(time.Hour)))
	log := applyAll(t, p, acts)

	replayed, err := Replay("user-1", "Asha", log)
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if drift := Drift(p, replayed); len(drift) != 0 {
		t.Errorf("Drift = %v, want none (cached %+v, replayed %+v)", drift, p, replayed)
	}
	if !replayed.Badges.Has(badges.WaterGuardian) || !replayed.Badges.Has(badges.Enforcement1) {
		t.Errorf("replayed badges = %v", replayed.BadgeIDs())
	}
}

func TestReplay_Inconsistent(t *testing.T) {
	b := scoring.NewBadgeActivity("user-1", string(badges.FirstReport), 10, t0)
	if _, err := Replay("user-1", "", []scoring.UserActivity{*b, *b}); !errors.Is(err, ErrInconsistentLog) {
		t.Errorf("duplicate badge error = %v, want ErrInconsistentLog", err)
	}

	unknown := scoring.NewBadgeActivity("user-1", "golden_shovel", 10, t0)
	if _, err := Replay("user-1", "", []scoring.UserActivity{*unknown}); !errors.Is(err, ErrInconsistentLog) {
		t.Errorf("unknown badge error = %v, want ErrInconsistentLog", err)
	}

	other := scoring.NewBadgeActivity("user-2", string(badges.FirstReport), 10, t0)
	if _, err := Replay("user-1", "", []scoring.UserActivity{*other}); !errors.Is(err, ErrWrongUser) {
		t.Errorf("foreign activity error = %v, want ErrWrongUser", err)
	}
}

func TestDrift(t *testing.T) {
	a := NewProfile("user-1", "", t0)
	b := NewProfile("user-1", "", t0)
	a.Points = 10
	b.Badges = badges.EarnedSet(badges.Streak7)

	drift := Drift(a, b)
	if len(drift) != 2 || drift[0] != "points" || drift[1] != "badges" {
		t.Errorf("Drift = %v, want [points badges]", drift)
	}
}

func TestProgress(t *testing.T) {
	p := NewProfile("user-1", "", t0)
	p.ReportsVerified = 2
	p.Points = 25
	prog, err := p.Progress()
	if err != nil {
		t.Fatalf("Progress returned error: %v", err)
	}
	if prog.VerifiedProgress != 40 || prog.PointsProgress != 50 {
		t.Errorf("progress = %+v", prog)
	}
}
