package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	impact "github.com/ecoguardian-in/core/outcome-impact"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/types"
)

// CreateOutcome stores a new, unverified outcome
func (s *Store) CreateOutcome(ctx context.Context, o *impact.IncidentOutcome) error {
	row := outcomeRowFrom(o, s.clock())
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: outcome %s", types.ErrAlreadyExists, o.ID)
		}
		return fmt.Errorf("creating outcome: %w", err)
	}
	return nil
}

func loadOutcome(tx *gorm.DB, id types.OutcomeID) (*OutcomeRow, error) {
	var row OutcomeRow
	if err := tx.Where("id = ?", string(id)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", types.ErrOutcomeNotFound, id)
		}
		return nil, err
	}
	return &row, nil
}

// Outcome returns one outcome by id
func (s *Store) Outcome(ctx context.Context, id types.OutcomeID) (*impact.IncidentOutcome, error) {
	row, err := loadOutcome(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return row.toOutcome(), nil
}

// VerifyOutcome marks an outcome verified. When the outcome counts as an
// enforcement action its reporter is credited with enforcement_triggered in
// the same transaction; applied is nil otherwise.
func (s *Store) VerifyOutcome(ctx context.Context, id types.OutcomeID, verifier types.UserID) (outcome *impact.IncidentOutcome, applied *Applied, err error) {
	now := s.clock()
	err = s.retry(ctx, func(tx *gorm.DB) error {
		applied = nil

		row, err := loadOutcome(tx, id)
		if err != nil {
			return err
		}
		o := row.toOutcome()
		if err := o.Verify(verifier, now); err != nil {
			return err
		}

		res := tx.Model(&OutcomeRow{}).
			Where("id = ? AND verified = ?", row.ID, false).
			Updates(map[string]any{
				"verified":    true,
				"verified_by": string(verifier),
				"verified_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("verifying outcome: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", impact.ErrAlreadyVerified, id)
		}
		outcome = o

		if !o.CountsAsEnforcement() {
			return nil
		}
		act, err := scoring.NewActivity(o.ReporterID, scoring.EnforcementTriggered, o.IncidentID,
			map[string]string{types.MetaOutcome: string(o.ID)}, now)
		if err != nil {
			return err
		}
		applied, err = s.applyTx(tx, act, ActivityInput{UserID: o.ReporterID}, now)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return outcome, applied, nil
}

// OutcomesForReporter lists every outcome credited to a reporter, newest first
func (s *Store) OutcomesForReporter(ctx context.Context, reporter types.UserID) ([]impact.IncidentOutcome, error) {
	var rows []OutcomeRow
	err := s.db.WithContext(ctx).
		Where("reporter_id = ?", string(reporter)).
		Order("outcome_date DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]impact.IncidentOutcome, len(rows))
	for i := range rows {
		out[i] = *rows[i].toOutcome()
	}
	return out, nil
}

// UserImpact is a guardian's estimated environmental impact
type UserImpact struct {
	impact.Impact
	Tally impact.Tally `json:"tally"`
}

// ImpactForUser aggregates a guardian's verified reports, enforcement actions
// and closed sites into the impact estimate
func (s *Store) ImpactForUser(ctx context.Context, userID types.UserID) (*UserImpact, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	outcomes, err := s.OutcomesForReporter(ctx, userID)
	if err != nil {
		return nil, err
	}

	tally := impact.TallyOutcomes(outcomes)
	est, err := impact.Aggregate(p.ReportsVerified, p.EnforcementActions, tally.SitesClosed)
	if err != nil {
		return nil, err
	}
	return &UserImpact{Impact: est, Tally: tally}, nil
}
