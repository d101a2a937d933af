// Package store persists guardian profiles, the activity log, badge awards
// and enforcement outcomes with gorm. Profiles are a cache over the activity
// log; every write goes through one transaction per user guarded by an
// optimistic version check.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ecoguardian-in/core/guardian"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/types"
)

// Error definitions
var (
	ErrConcurrentUpdate = errors.New("profile was modified concurrently")
)

// DefaultMaxAttempts bounds retries of a write that lost a version race
const DefaultMaxAttempts = 5

// Store is the gorm-backed guardian repository
type Store struct {
	db          *gorm.DB
	now         func() time.Time
	maxAttempts int
}

// New migrates the guardian tables and returns a Store over db
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("migrating guardian tables: %w", err)
	}
	return &Store{db: db, now: time.Now, maxAttempts: DefaultMaxAttempts}, nil
}

// SetClock replaces the time source, mostly for tests
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqldb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqldb.PingContext(ctx)
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqldb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// ActivityInput is one activity to record for a user
type ActivityInput struct {
	UserID      types.UserID
	DisplayName string
	Type        scoring.ActivityType
	IncidentID  types.IncidentID
	// Region is where the activity happened; it also becomes the profile's
	// home region
	Region   types.RegionID
	Metadata map[string]string
}

// Applied is the outcome of recording one activity
type Applied struct {
	*guardian.Result
	Profile *guardian.Profile `json:"profile"`
}

// ApplyActivity records an activity, awards any newly earned badges,
// settles the rank and updates the cached profile in one transaction.
// A profile is created on the user's first activity. enforcement_triggered
// only comes from VerifyOutcome.
func (s *Store) ApplyActivity(ctx context.Context, in ActivityInput) (*Applied, error) {
	if in.Type == scoring.EnforcementTriggered {
		return nil, fmt.Errorf("%w: %s is credited by verifying an outcome", guardian.ErrDerivedActivity, in.Type)
	}
	now := s.clock()
	act, err := scoring.NewActivity(in.UserID, in.Type, in.IncidentID, in.Metadata, now)
	if err != nil {
		return nil, err
	}

	var out *Applied
	err = s.retry(ctx, func(tx *gorm.DB) error {
		applied, err := s.applyTx(tx, act, in, now)
		if err != nil {
			return err
		}
		out = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// retry runs fn in a transaction, starting over while it loses version races
func (s *Store) retry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, ErrConcurrentUpdate) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w (gave up after %d attempts)", err, s.maxAttempts)
}

func (s *Store) applyTx(tx *gorm.DB, act *scoring.UserActivity, in ActivityInput, now time.Time) (*Applied, error) {
	row, err := loadOrCreateProfile(tx, act.UserID, in.DisplayName, now)
	if err != nil {
		return nil, err
	}
	awards, err := loadAwards(tx, act.UserID)
	if err != nil {
		return nil, err
	}
	log, err := loadLog(tx, act.UserID, time.Time{})
	if err != nil {
		return nil, err
	}

	prof := row.toProfile(awards)
	if in.DisplayName != "" {
		prof.DisplayName = in.DisplayName
	}
	if in.Region != "" {
		prof.Region = in.Region
	}
	actRegion := in.Region
	if actRegion == "" {
		actRegion = prof.Region
	}

	extra := guardian.StatsFromLog(append(log, *act), now)
	extra.IsRegionalTop, err = regionalTopAfter(tx, actRegion, act, now)
	if err != nil {
		return nil, err
	}

	res, err := prof.Apply(act, extra, now)
	if err != nil {
		return nil, err
	}

	rows := make([]ActivityRow, 0, len(res.Activities))
	for _, a := range res.Activities {
		rows = append(rows, activityRowFrom(a, actRegion))
	}
	if err := tx.Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("appending activities: %w", err)
	}

	for _, b := range res.BadgesAwarded {
		award := BadgeAwardRow{UserID: string(prof.UserID), BadgeID: string(b.ID), AwardedAt: now}
		if err := tx.Create(&award).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("%w: badge %s already awarded", ErrConcurrentUpdate, b.ID)
			}
			return nil, fmt.Errorf("awarding badge %s: %w", b.ID, err)
		}
	}

	if err := updateProfile(tx, prof, row.Version); err != nil {
		return nil, err
	}
	return &Applied{Result: res, Profile: prof}, nil
}

func loadOrCreateProfile(tx *gorm.DB, userID types.UserID, displayName string, now time.Time) (*ProfileRow, error) {
	var row ProfileRow
	err := tx.Where("user_id = ?", string(userID)).Take(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row = profileRowFrom(guardian.NewProfile(userID, displayName, now))
	if err := tx.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: profile %s created concurrently", ErrConcurrentUpdate, userID)
		}
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	return &row, nil
}

func loadProfile(tx *gorm.DB, userID types.UserID) (*ProfileRow, error) {
	var row ProfileRow
	if err := tx.Where("user_id = ?", string(userID)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", types.ErrUserNotFound, userID)
		}
		return nil, err
	}
	return &row, nil
}

func loadAwards(tx *gorm.DB, userID types.UserID) ([]BadgeAwardRow, error) {
	var awards []BadgeAwardRow
	if err := tx.Where("user_id = ?", string(userID)).Order("id ASC").Find(&awards).Error; err != nil {
		return nil, err
	}
	return awards, nil
}

func loadLog(tx *gorm.DB, userID types.UserID, since time.Time) ([]scoring.UserActivity, error) {
	q := tx.Where("user_id = ?", string(userID))
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var rows []ActivityRow
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]scoring.UserActivity, len(rows))
	for i := range rows {
		out[i] = rows[i].toActivity()
	}
	return out, nil
}

// updateProfile writes the profile only if nobody else has since the given
// version was read
func updateProfile(tx *gorm.DB, p *guardian.Profile, version int64) error {
	res := tx.Model(&ProfileRow{}).
		Where("user_id = ? AND version = ?", string(p.UserID), version).
		Updates(map[string]any{
			"display_name":        p.DisplayName,
			"guardian_rank":       string(p.Rank),
			"points":              p.Points,
			"reports_submitted":   p.ReportsSubmitted,
			"reports_verified":    p.ReportsVerified,
			"enforcement_actions": p.EnforcementActions,
			"region":              string(p.Region),
			"show_on_leaderboard": p.ShowOnLeaderboard,
			"version":             version + 1,
			"updated_at":          p.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("updating profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s at version %d", ErrConcurrentUpdate, p.UserID, version)
	}
	return nil
}

// Profile returns a guardian's cached profile
func (s *Store) Profile(ctx context.Context, userID types.UserID) (*guardian.Profile, error) {
	db := s.db.WithContext(ctx)
	row, err := loadProfile(db, userID)
	if err != nil {
		return nil, err
	}
	awards, err := loadAwards(db, userID)
	if err != nil {
		return nil, err
	}
	return row.toProfile(awards), nil
}

// Activities returns a user's activity log from since onward, oldest first.
// A zero since returns the whole log.
func (s *Store) Activities(ctx context.Context, userID types.UserID, since time.Time) ([]scoring.UserActivity, error) {
	return loadLog(s.db.WithContext(ctx), userID, since)
}

// SetLeaderboardVisibility opts a guardian in or out of public leaderboards
func (s *Store) SetLeaderboardVisibility(ctx context.Context, userID types.UserID, show bool) error {
	now := s.clock()
	return s.retry(ctx, func(tx *gorm.DB) error {
		row, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		awards, err := loadAwards(tx, userID)
		if err != nil {
			return err
		}
		p := row.toProfile(awards)
		p.ShowOnLeaderboard = show
		p.UpdatedAt = now
		return updateProfile(tx, p, row.Version)
	})
}

// RebuildResult reports what a replay changed
type RebuildResult struct {
	Profile *guardian.Profile `json:"profile"`
	Drift   []string          `json:"drift,omitempty"`
}

// Rebuild replays a user's activity log and overwrites the cached profile
// and badge awards when they have drifted from it
func (s *Store) Rebuild(ctx context.Context, userID types.UserID) (*RebuildResult, error) {
	now := s.clock()
	var out *RebuildResult
	err := s.retry(ctx, func(tx *gorm.DB) error {
		row, err := loadProfile(tx, userID)
		if err != nil {
			return err
		}
		awards, err := loadAwards(tx, userID)
		if err != nil {
			return err
		}
		log, err := loadLog(tx, userID, time.Time{})
		if err != nil {
			return err
		}

		cached := row.toProfile(awards)
		replayed, err := guardian.Replay(userID, cached.DisplayName, log)
		if err != nil {
			return err
		}
		replayed.Region = cached.Region
		replayed.ShowOnLeaderboard = cached.ShowOnLeaderboard
		replayed.CreatedAt = cached.CreatedAt

		drift := guardian.Drift(cached, replayed)
		if len(drift) == 0 {
			out = &RebuildResult{Profile: cached}
			return nil
		}

		if err := tx.Where("user_id = ?", string(userID)).Delete(&BadgeAwardRow{}).Error; err != nil {
			return fmt.Errorf("clearing badge awards: %w", err)
		}
		for _, id := range replayed.BadgeIDs() {
			award := BadgeAwardRow{UserID: string(userID), BadgeID: string(id), AwardedAt: replayed.Badges[id]}
			if err := tx.Create(&award).Error; err != nil {
				return fmt.Errorf("restoring badge %s: %w", id, err)
			}
		}

		replayed.UpdatedAt = now
		if err := updateProfile(tx, replayed, row.Version); err != nil {
			return err
		}
		out = &RebuildResult{Profile: replayed, Drift: drift}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
