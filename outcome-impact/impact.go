// Package impact implements the enforcement-outcome weighting model and the
// environmental impact estimates derived from verified activity.
// The formulas are heuristics; what matters is that they are reproducible.
package impact

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ecoguardian-in/core/types"
)

// Error definitions
var (
	ErrUnknownOutcome   = errors.New("unknown outcome type")
	ErrAlreadyVerified  = errors.New("outcome already verified")
	ErrNegativeInput    = errors.New("negative impact input")
	ErrInvalidOutcome   = errors.New("invalid outcome")
	ErrVerifierRequired = errors.New("verifier is required")
)

// OutcomeType is a real-world enforcement or remediation action
type OutcomeType string

const (
	InvestigationOpened  OutcomeType = "investigation_opened"
	SiteVisitConducted   OutcomeType = "site_visit_conducted"
	WarningIssued        OutcomeType = "warning_issued"
	EquipmentSeized      OutcomeType = "equipment_seized"
	SiteClosed           OutcomeType = "site_closed"
	ArrestsMade          OutcomeType = "arrests_made"
	RemediationStarted   OutcomeType = "remediation_started"
	RemediationCompleted OutcomeType = "remediation_completed"
	CaseDismissed        OutcomeType = "case_dismissed"
)

// Weights maps each outcome to its impact score
var Weights = map[OutcomeType]float64{
	InvestigationOpened:  1.0,
	SiteVisitConducted:   2.0,
	WarningIssued:        2.5,
	EquipmentSeized:      4.0,
	SiteClosed:           5.0,
	ArrestsMade:          5.0,
	RemediationStarted:   6.0,
	RemediationCompleted: 8.0,
	CaseDismissed:        0, // never contributes
}

// Per-unit estimate weights
const (
	HectaresPerVerifiedReport    = 0.5
	HectaresPerEnforcementAction = 2.0
	HectaresPerSiteClosed        = 10.0
	WaterBodiesPerVerifiedReport = 0.1
	WaterBodiesPerSiteClosed     = 1
)

// Weight returns the impact weight of an outcome type
func Weight(t OutcomeType) (float64, error) {
	w, ok := Weights[t]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOutcome, t)
	}
	return w, nil
}

// ParseOutcomeType converts a wire string into an OutcomeType
func ParseOutcomeType(s string) (OutcomeType, error) {
	t := OutcomeType(s)
	if _, err := Weight(t); err != nil {
		return "", err
	}
	return t, nil
}

// CountsAsEnforcement reports whether a verified outcome of this type credits
// the reporter with an enforcement action
func CountsAsEnforcement(t OutcomeType) bool {
	return Weights[t] > 0
}

// IncidentOutcome is an enforcement outcome tied to an incident
type IncidentOutcome struct {
	ID          types.OutcomeID  `json:"id"`
	IncidentID  types.IncidentID `json:"incident_id"`
	ReporterID  types.UserID     `json:"reporter_id"`
	Type        OutcomeType      `json:"outcome_type"`
	OutcomeDate time.Time        `json:"outcome_date"`
	Verified    bool             `json:"verified"`
	VerifiedBy  types.UserID     `json:"verified_by,omitempty"`
	VerifiedAt  *time.Time       `json:"verified_at,omitempty"`
	ImpactScore float64          `json:"impact_score"`
}

// NewOutcome creates an unverified outcome with its impact score fixed from the table
func NewOutcome(incidentID types.IncidentID, reporterID types.UserID, t OutcomeType, date time.Time) (*IncidentOutcome, error) {
	w, err := Weight(t)
	if err != nil {
		return nil, err
	}
	if incidentID == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutcome, types.ErrInvalidIncidentID)
	}
	if err := reporterID.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutcome, err)
	}
	return &IncidentOutcome{
		ID:          types.OutcomeID(uuid.NewString()),
		IncidentID:  incidentID,
		ReporterID:  reporterID,
		Type:        t,
		OutcomeDate: date,
		ImpactScore: w,
	}, nil
}

// Verify marks the outcome verified. The transition is one-way.
func (o *IncidentOutcome) Verify(verifier types.UserID, now time.Time) error {
	if verifier == "" {
		return ErrVerifierRequired
	}
	if o.Verified {
		return fmt.Errorf("%w: %s", ErrAlreadyVerified, o.ID)
	}
	o.Verified = true
	o.VerifiedBy = verifier
	o.VerifiedAt = &now
	return nil
}

// CountsAsEnforcement reports whether this outcome credits its reporter
func (o *IncidentOutcome) CountsAsEnforcement() bool {
	return o.Verified && CountsAsEnforcement(o.Type)
}

// Tally summarises a set of outcomes; only verified outcomes count
type Tally struct {
	VerifiedOutcomes   int                 `json:"verified_outcomes"`
	EnforcementActions int                 `json:"enforcement_actions"`
	SitesClosed        int                 `json:"sites_closed"`
	TotalImpactScore   float64             `json:"total_impact_score"`
	ByType             map[OutcomeType]int `json:"by_type,omitempty"`
}

// TallyOutcomes counts verified outcomes. Dismissed cases are counted as
// verified outcomes but add nothing to enforcement, sites closed or impact.
func TallyOutcomes(outcomes []IncidentOutcome) Tally {
	t := Tally{ByType: make(map[OutcomeType]int)}
	for _, o := range outcomes {
		if !o.Verified {
			continue
		}
		t.VerifiedOutcomes++
		t.ByType[o.Type]++
		t.TotalImpactScore += o.ImpactScore
		if CountsAsEnforcement(o.Type) {
			t.EnforcementActions++
		}
		if o.Type == SiteClosed {
			t.SitesClosed++
		}
	}
	return t
}

// Impact is the derived environmental estimate
type Impact struct {
	HectaresProtected float64 `json:"hectares_protected"`
	WaterBodiesSaved  int     `json:"water_bodies_saved"`
}

// Aggregate computes the impact estimate:
//
//	hectares    = verified*0.5 + enforcement*2 + sitesClosed*10 (one decimal)
//	waterBodies = floor(verified*0.1) + sitesClosed
func Aggregate(verifiedReports, enforcementActions, sitesClosed int) (Impact, error) {
	v := types.NewValidationResult()
	v.RequireNonNegative(map[string]int{
		"verified_reports":    verifiedReports,
		"enforcement_actions": enforcementActions,
		"sites_closed":        sitesClosed,
	})
	if v.HasErrors() {
		return Impact{}, fmt.Errorf("%w: %v", ErrNegativeInput, v.Err())
	}

	hectares := float64(verifiedReports)*HectaresPerVerifiedReport +
		float64(enforcementActions)*HectaresPerEnforcementAction +
		float64(sitesClosed)*HectaresPerSiteClosed

	// verifiedReports/10 is floor(verified*0.1) without float error
	water := verifiedReports/10 + sitesClosed*WaterBodiesPerSiteClosed

	return Impact{
		HectaresProtected: math.Round(hectares*10) / 10,
		WaterBodiesSaved:  water,
	}, nil
}

// OutcomeDescription returns descriptions for each outcome type
func OutcomeDescription() map[OutcomeType]string {
	return map[OutcomeType]string{
		InvestigationOpened:  "1.0: Authorities opened an investigation",
		SiteVisitConducted:   "2.0: Officials visited the site",
		WarningIssued:        "2.5: A formal warning was issued",
		EquipmentSeized:      "4.0: Equipment was seized",
		SiteClosed:           "5.0: The site was closed",
		ArrestsMade:          "5.0: Arrests were made",
		RemediationStarted:   "6.0: Remediation work started",
		RemediationCompleted: "8.0: Remediation completed",
		CaseDismissed:        "0: Case dismissed (no impact)",
	}
}
