package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/ecoguardian-in/core/types"
)

func TestScore(t *testing.T) {
	tests := []struct {
		activity ActivityType
		want     int
	}{
		{ReportSubmitted, 5},
		{ReportVerified, 15},
		{ReportRejected, 0},
		{EnforcementTriggered, 50},
		{BadgeEarned, 0},
		{RankPromoted, 25},
		{CommentAdded, 2},
		{EvidenceUploaded, 5},
		{AlertSubscription, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.activity), func(t *testing.T) {
			got, err := Score(tt.activity)
			if err != nil {
				t.Fatalf("Score(%s) returned error: %v", tt.activity, err)
			}
			if got != tt.want {
				t.Errorf("Score(%s) = %d, want %d", tt.activity, got, tt.want)
			}
		})
	}
}

func TestScore_Unknown(t *testing.T) {
	_, err := Score("report_deleted")
	if !errors.Is(err, ErrUnknownActivity) {
		t.Errorf("Score(unknown) error = %v, want ErrUnknownActivity", err)
	}
}

func TestMustScore_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustScore should panic for an unknown activity")
		}
	}()
	MustScore("nope")
}

func TestActivityTypesCoverTable(t *testing.T) {
	all := ActivityTypes()
	if len(all) != len(Points) {
		t.Fatalf("ActivityTypes() has %d entries, Points has %d", len(all), len(Points))
	}
	for _, a := range all {
		if _, ok := Points[a]; !ok {
			t.Errorf("activity %s missing from Points", a)
		}
		if Points[a] < 0 {
			t.Errorf("activity %s has negative points", a)
		}
	}
}

func TestParseActivityType(t *testing.T) {
	if a, err := ParseActivityType("comment_added"); err != nil || a != CommentAdded {
		t.Errorf("ParseActivityType(comment_added) = %s, %v", a, err)
	}
	if _, err := ParseActivityType(""); err == nil {
		t.Error("ParseActivityType(\"\") should fail")
	}
}

func TestNewActivity(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	meta := map[string]string{types.MetaCategory: string(types.CategoryWaterPollution)}

	act, err := NewActivity("user-1", ReportSubmitted, "inc-9", meta, now)
	if err != nil {
		t.Fatalf("NewActivity returned error: %v", err)
	}
	if act.ID == "" {
		t.Error("expected generated ID")
	}
	if act.PointsEarned != 5 {
		t.Errorf("PointsEarned = %d, want 5", act.PointsEarned)
	}
	if act.Meta(types.MetaCategory) != "water_pollution" {
		t.Errorf("category metadata = %q", act.Meta(types.MetaCategory))
	}

	// metadata is copied, not aliased
	meta[types.MetaCategory] = "changed"
	if act.Meta(types.MetaCategory) != "water_pollution" {
		t.Error("activity metadata should not alias the caller's map")
	}
}

func TestNewActivity_Rejects(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		user     types.UserID
		activity ActivityType
		wantErr  error
	}{
		{"empty user", "", ReportSubmitted, ErrInvalidActivity},
		{"unknown type", "user-1", "bogus", ErrUnknownActivity},
		{"badge via table", "user-1", BadgeEarned, ErrInvalidActivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewActivity(tt.user, tt.activity, "", nil, now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewBadgeActivity(t *testing.T) {
	act := NewBadgeActivity("user-1", "verified_5", 25, time.Now())
	if act.Type != BadgeEarned {
		t.Errorf("Type = %s, want %s", act.Type, BadgeEarned)
	}
	if act.PointsEarned != 25 {
		t.Errorf("PointsEarned = %d, want 25", act.PointsEarned)
	}
	if act.Meta(types.MetaBadgeID) != "verified_5" {
		t.Errorf("badge metadata = %q", act.Meta(types.MetaBadgeID))
	}
}

func TestNewPromotionActivity(t *testing.T) {
	act := NewPromotionActivity("user-1", "observer", "bronze", time.Now())
	if act.PointsEarned != 25 {
		t.Errorf("PointsEarned = %d, want 25", act.PointsEarned)
	}
	if act.Meta(types.MetaRankTo) != "bronze" {
		t.Errorf("rank_to = %q", act.Meta(types.MetaRankTo))
	}
}

func TestPointsDescription(t *testing.T) {
	desc := PointsDescription()
	for activity := range Points {
		if _, ok := desc[activity]; !ok {
			t.Errorf("missing description for activity: %s", activity)
		}
	}
}

func BenchmarkScore(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Score(ReportVerified)
	}
}
