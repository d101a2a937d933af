package badges

import (
	"errors"
	"testing"
	"time"
)

func ids(bs []Badge) []ID {
	out := make([]ID, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func contains(bs []Badge, id ID) bool {
	for _, b := range bs {
		if b.ID == id {
			return true
		}
	}
	return false
}

func TestCatalog(t *testing.T) {
	cat := Catalog()
	if len(cat) != 13 {
		t.Fatalf("catalog has %d badges, want 13", len(cat))
	}
	seen := make(map[ID]bool)
	for _, b := range cat {
		if seen[b.ID] {
			t.Errorf("duplicate badge id %s", b.ID)
		}
		seen[b.ID] = true
		if b.Points < 10 || b.Points > 500 {
			t.Errorf("badge %s points = %d, want 10..500", b.ID, b.Points)
		}
		if b.Threshold < 1 {
			t.Errorf("badge %s threshold = %d", b.ID, b.Threshold)
		}
	}
}

func TestThresholdTable(t *testing.T) {
	tests := []struct {
		id        ID
		field     Field
		threshold int
	}{
		{FirstReport, FieldReportsSubmitted, 1},
		{Verified5, FieldReportsVerified, 5},
		{Verified20, FieldReportsVerified, 20},
		{Verified50, FieldReportsVerified, 50},
		{Enforcement1, FieldEnforcementActions, 1},
		{Enforcement5, FieldEnforcementActions, 5},
		{WaterGuardian, FieldWaterReports, 10},
		{ForestProtector, FieldDeforestationReports, 10},
		{PhotoEvidence, FieldEvidenceCount, 50},
		{VoiceReporter, FieldVoiceReports, 10},
		{Streak7, FieldActivityStreak, 7},
		{Streak30, FieldActivityStreak, 30},
		{RegionalExpert, FieldRegionalTop, 1},
	}

	for _, tt := range tests {
		b, err := Lookup(tt.id)
		if err != nil {
			t.Fatalf("Lookup(%s) returned error: %v", tt.id, err)
		}
		if b.Field != tt.field || b.Threshold != tt.threshold {
			t.Errorf("%s = %s>=%d, want %s>=%d", tt.id, b.Field, b.Threshold, tt.field, tt.threshold)
		}
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		stats   StatsSnapshot
		earned  Earned
		want    []ID
		notWant []ID
	}{
		{
			name:  "nothing yet",
			stats: StatsSnapshot{},
			want:  nil,
		},
		{
			name:  "first report",
			stats: StatsSnapshot{ReportsSubmitted: 1},
			want:  []ID{FirstReport},
		},
		{
			name:    "jump awards both verified badges",
			stats:   StatsSnapshot{ReportsSubmitted: 20, ReportsVerified: 20},
			earned:  EarnedSet(FirstReport),
			want:    []ID{Verified5, Verified20},
			notWant: []ID{FirstReport, Verified50},
		},
		{
			name:    "already earned verified_5 is skipped",
			stats:   StatsSnapshot{ReportsVerified: 20},
			earned:  EarnedSet(Verified5),
			want:    []ID{Verified20},
			notWant: []ID{Verified5},
		},
		{
			name:  "regional top",
			stats: StatsSnapshot{IsRegionalTop: true},
			want:  []ID{RegionalExpert},
		},
		{
			name:  "streaks",
			stats: StatsSnapshot{ActivityStreak: 30},
			want:  []ID{Streak7, Streak30},
		},
		{
			name: "category and evidence",
			stats: StatsSnapshot{
				WaterReports: 10, DeforestationReports: 9, EvidenceCount: 50, VoiceReports: 10,
			},
			want:    []ID{WaterGuardian, PhotoEvidence, VoiceReporter},
			notWant: []ID{ForestProtector},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.stats, tt.earned)
			if err != nil {
				t.Fatalf("Evaluate returned error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Evaluate = %v, want %v", ids(got), tt.want)
			}
			for _, id := range tt.want {
				if !contains(got, id) {
					t.Errorf("expected badge %s in %v", id, ids(got))
				}
			}
			for _, id := range tt.notWant {
				if contains(got, id) {
					t.Errorf("badge %s should not be awarded", id)
				}
			}
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	stats := StatsSnapshot{
		ReportsSubmitted: 60, ReportsVerified: 55, EnforcementActions: 6,
		WaterReports: 12, DeforestationReports: 11, EvidenceCount: 80,
		VoiceReports: 10, ActivityStreak: 31, IsRegionalTop: true,
	}
	earned := EarnedSet(Verified5)

	first, err := Evaluate(stats, earned)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	for _, b := range first {
		earned[b.ID] = time.Now()
	}

	second, err := Evaluate(stats, earned)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second Evaluate = %v, want empty", ids(second))
	}
	if len(first)+1 != len(Catalog()) {
		t.Errorf("first Evaluate awarded %d badges, want %d", len(first), len(Catalog())-1)
	}
}

func TestEvaluate_Negative(t *testing.T) {
	_, err := Evaluate(StatsSnapshot{EvidenceCount: -1}, nil)
	if !errors.Is(err, ErrNegativeStat) {
		t.Errorf("error = %v, want ErrNegativeStat", err)
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, err := Lookup("verified_1000"); !errors.Is(err, ErrUnknownBadge) {
		t.Errorf("error = %v, want ErrUnknownBadge", err)
	}
}

func TestTotalPoints(t *testing.T) {
	got, err := TotalPoints([]ID{FirstReport, Verified5, RegionalExpert})
	if err != nil {
		t.Fatalf("TotalPoints returned error: %v", err)
	}
	if got != 535 {
		t.Errorf("TotalPoints = %d, want 535", got)
	}
	if _, err := TotalPoints([]ID{"nope"}); err == nil {
		t.Error("TotalPoints should fail on unknown badge")
	}
}

func TestNextBadges(t *testing.T) {
	stats := StatsSnapshot{ReportsSubmitted: 3, ReportsVerified: 4, ActivityStreak: 2}
	progress, err := NextBadges(stats, EarnedSet(FirstReport))
	if err != nil {
		t.Fatalf("NextBadges returned error: %v", err)
	}
	if len(progress) != len(Catalog())-1 {
		t.Fatalf("got %d entries, want %d", len(progress), len(Catalog())-1)
	}
	if progress[0].Badge.ID != Verified5 || progress[0].Percent != 80 {
		t.Errorf("closest badge = %s at %d%%, want verified_5 at 80%%", progress[0].Badge.ID, progress[0].Percent)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i].Percent > progress[i-1].Percent {
			t.Fatalf("progress not sorted at %d", i)
		}
	}
}

func TestBadgeDescription(t *testing.T) {
	desc := BadgeDescription()
	for _, b := range Catalog() {
		if _, ok := desc[b.ID]; !ok {
			t.Errorf("missing description for badge: %s", b.ID)
		}
	}
}

func BenchmarkEvaluate(b *testing.B) {
	stats := StatsSnapshot{ReportsSubmitted: 40, ReportsVerified: 25, EnforcementActions: 2, ActivityStreak: 9}
	earned := EarnedSet(FirstReport, Verified5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Evaluate(stats, earned)
	}
}
