package impact

import (
	"errors"
	"testing"
	"time"
)

func TestWeight(t *testing.T) {
	tests := []struct {
		outcome OutcomeType
		want    float64
	}{
		{InvestigationOpened, 1.0},
		{SiteVisitConducted, 2.0},
		{WarningIssued, 2.5},
		{EquipmentSeized, 4.0},
		{SiteClosed, 5.0},
		{ArrestsMade, 5.0},
		{RemediationStarted, 6.0},
		{RemediationCompleted, 8.0},
		{CaseDismissed, 0},
	}

	for _, tt := range tests {
		got, err := Weight(tt.outcome)
		if err != nil {
			t.Fatalf("Weight(%s) returned error: %v", tt.outcome, err)
		}
		if got != tt.want {
			t.Errorf("Weight(%s) = %v, want %v", tt.outcome, got, tt.want)
		}
	}

	if len(Weights) != 9 {
		t.Errorf("weight table has %d entries, want 9", len(Weights))
	}
}

func TestWeight_Unknown(t *testing.T) {
	if _, err := Weight("fine_paid"); !errors.Is(err, ErrUnknownOutcome) {
		t.Errorf("error = %v, want ErrUnknownOutcome", err)
	}
	if _, err := ParseOutcomeType(""); !errors.Is(err, ErrUnknownOutcome) {
		t.Errorf("error = %v, want ErrUnknownOutcome", err)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name        string
		verified    int
		enforcement int
		sites       int
		wantHa      float64
		wantWater   int
	}{
		{"zero", 0, 0, 0, 0, 0},
		{"worked example", 10, 2, 1, 19.0, 2},
		{"odd verified", 3, 0, 0, 1.5, 0},
		{"floor water", 19, 0, 0, 9.5, 1},
		{"sites only", 0, 0, 3, 30.0, 3},
		{"large", 1234, 56, 7, 799.0, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(tt.verified, tt.enforcement, tt.sites)
			if err != nil {
				t.Fatalf("Aggregate returned error: %v", err)
			}
			if got.HectaresProtected != tt.wantHa {
				t.Errorf("hectares = %v, want %v", got.HectaresProtected, tt.wantHa)
			}
			if got.WaterBodiesSaved != tt.wantWater {
				t.Errorf("water bodies = %d, want %d", got.WaterBodiesSaved, tt.wantWater)
			}
		})
	}
}

func TestAggregate_Negative(t *testing.T) {
	if _, err := Aggregate(1, -2, 0); !errors.Is(err, ErrNegativeInput) {
		t.Errorf("error = %v, want ErrNegativeInput", err)
	}
}

func TestNewOutcome(t *testing.T) {
	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	o, err := NewOutcome("inc-1", "user-1", RemediationCompleted, date)
	if err != nil {
		t.Fatalf("NewOutcome returned error: %v", err)
	}
	if o.ImpactScore != 8.0 {
		t.Errorf("ImpactScore = %v, want 8", o.ImpactScore)
	}
	if o.Verified {
		t.Error("new outcome should start unverified")
	}

	if _, err := NewOutcome("", "user-1", SiteClosed, date); !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("empty incident error = %v, want ErrInvalidOutcome", err)
	}
	if _, err := NewOutcome("inc-1", "user-1", "bogus", date); !errors.Is(err, ErrUnknownOutcome) {
		t.Errorf("unknown type error = %v, want ErrUnknownOutcome", err)
	}
}

func TestVerify_OneWay(t *testing.T) {
	o, _ := NewOutcome("inc-1", "user-1", SiteClosed, time.Now())

	if err := o.Verify("", time.Now()); !errors.Is(err, ErrVerifierRequired) {
		t.Errorf("error = %v, want ErrVerifierRequired", err)
	}
	if err := o.Verify("officer-7", time.Now()); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !o.Verified || o.VerifiedBy != "officer-7" || o.VerifiedAt == nil {
		t.Errorf("outcome not marked verified: %+v", o)
	}
	if err := o.Verify("officer-8", time.Now()); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("second Verify error = %v, want ErrAlreadyVerified", err)
	}
	if o.VerifiedBy != "officer-7" {
		t.Error("second Verify must not overwrite the verifier")
	}
}

func TestTallyOutcomes_DismissedDoesNotCount(t *testing.T) {
	dismissed, _ := NewOutcome("inc-1", "user-1", CaseDismissed, time.Now())
	_ = dismissed.Verify("officer", time.Now())

	tally := TallyOutcomes([]IncidentOutcome{*dismissed})
	if tally.VerifiedOutcomes != 1 {
		t.Errorf("VerifiedOutcomes = %d, want 1", tally.VerifiedOutcomes)
	}
	if tally.EnforcementActions != 0 || tally.SitesClosed != 0 || tally.TotalImpactScore != 0 {
		t.Errorf("dismissed case contributed: %+v", tally)
	}
	if dismissed.CountsAsEnforcement() {
		t.Error("dismissed case must not count as enforcement")
	}
}

func TestTallyOutcomes(t *testing.T) {
	mk := func(kind OutcomeType, verified bool) IncidentOutcome {
		o, _ := NewOutcome("inc", "user-1", kind, time.Now())
		if verified {
			_ = o.Verify("officer", time.Now())
		}
		return *o
	}

	tally := TallyOutcomes([]IncidentOutcome{
		mk(SiteClosed, true),
		mk(SiteClosed, false), // unverified, ignored
		mk(WarningIssued, true),
		mk(CaseDismissed, true),
		mk(RemediationCompleted, true),
	})

	if tally.SitesClosed != 1 {
		t.Errorf("SitesClosed = %d, want 1", tally.SitesClosed)
	}
	if tally.EnforcementActions != 3 {
		t.Errorf("EnforcementActions = %d, want 3", tally.EnforcementActions)
	}
	if tally.TotalImpactScore != 15.5 {
		t.Errorf("TotalImpactScore = %v, want 15.5", tally.TotalImpactScore)
	}
	if tally.ByType[CaseDismissed] != 1 {
		t.Errorf("ByType[case_dismissed] = %d, want 1", tally.ByType[CaseDismissed])
	}
}

func TestOutcomeDescription(t *testing.T) {
	desc := OutcomeDescription()
	for o := range Weights {
		if _, ok := desc[o]; !ok {
			t.Errorf("missing description for outcome: %s", o)
		}
	}
}

func BenchmarkAggregate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Aggregate(120, 14, 3)
	}
}
