// Package service wires the guardian store, the leaderboard cache and the
// scoring packages into the operations exposed to clients.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ecoguardian-in/core/badges"
	region "github.com/ecoguardian-in/core/geo-region"
	"github.com/ecoguardian-in/core/guardian"
	"github.com/ecoguardian-in/core/leaderboard"
	lbcache "github.com/ecoguardian-in/core/leaderboard-cache"
	impact "github.com/ecoguardian-in/core/outcome-impact"
	ranks "github.com/ecoguardian-in/core/rank-ladder"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/store"
	"github.com/ecoguardian-in/core/types"
)

// Engine is the guardian reputation service
type Engine struct {
	store  *store.Store
	cache  lbcache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine builds an Engine. cache may be nil, in which case every
// leaderboard is aggregated from the store.
func NewEngine(st *store.Store, cache lbcache.Cache, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  st,
		cache:  cache,
		logger: logger.With("system", "guardian"),
		now:    time.Now,
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", types.ErrInvalidInput, err)
}

// ActivityRequest is a client's report of something a guardian did
type ActivityRequest struct {
	UserID      types.UserID           `json:"user_id"`
	DisplayName string                 `json:"display_name,omitempty"`
	Type        string                 `json:"activity_type"`
	IncidentID  types.IncidentID       `json:"incident_id,omitempty"`
	Category    types.IncidentCategory `json:"category,omitempty"`
	Channel     types.ReportChannel    `json:"channel,omitempty"`
	Location    *types.LatLng          `json:"location,omitempty"`
	Metadata    map[string]string      `json:"metadata,omitempty"`
}

func (r ActivityRequest) input() (store.ActivityInput, error) {
	if err := r.UserID.Validate(); err != nil {
		return store.ActivityInput{}, invalid(err)
	}
	kind, err := scoring.ParseActivityType(r.Type)
	if err != nil {
		return store.ActivityInput{}, invalid(err)
	}
	switch kind {
	case scoring.BadgeEarned, scoring.RankPromoted, scoring.EnforcementTriggered:
		return store.ActivityInput{}, invalid(fmt.Errorf("%w: %s is recorded by the engine", guardian.ErrDerivedActivity, kind))
	}

	v := types.NewValidationResult()
	if r.Category != "" && !r.Category.IsValid() {
		v.AddError("category", fmt.Sprintf("unknown incident category %q", r.Category))
	}
	if r.Channel != "" && !r.Channel.IsValid() {
		v.AddError("channel", fmt.Sprintf("unknown report channel %q", r.Channel))
	}
	if r.Location != nil && !r.Location.IsValid() {
		v.AddError("location", types.ErrInvalidLocation.Error())
	}
	if err := v.Err(); err != nil {
		return store.ActivityInput{}, err
	}

	meta := make(map[string]string, len(r.Metadata)+3)
	for k, val := range r.Metadata {
		meta[k] = val
	}
	if r.Category != "" {
		meta[types.MetaCategory] = string(r.Category)
	}
	if r.Channel != "" {
		meta[types.MetaChannel] = string(r.Channel)
	}

	var reg types.RegionID
	if r.Location != nil {
		cell, err := region.IncidentCell(*r.Location)
		if err != nil {
			return store.ActivityInput{}, invalid(err)
		}
		if reg, err = region.ForCell(cell); err != nil {
			return store.ActivityInput{}, invalid(err)
		}
		meta[types.MetaCell] = cell
		meta[types.MetaRegion] = string(reg)
	}

	return store.ActivityInput{
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		Type:        kind,
		IncidentID:  r.IncidentID,
		Region:      reg,
		Metadata:    meta,
	}, nil
}

// RecordActivity scores an activity and folds it into the guardian's profile
func (e *Engine) RecordActivity(ctx context.Context, req ActivityRequest) (*store.Applied, error) {
	ctx, span := tracer.Start(ctx, "RecordActivity")
	defer span.End()
	span.SetAttributes(attribute.String("user", string(req.UserID)), attribute.String("type", req.Type))

	in, err := req.input()
	if err != nil {
		activitiesRejected.WithLabelValues("invalid").Inc()
		return nil, fail(span, err)
	}

	applied, err := e.store.ApplyActivity(ctx, in)
	if err != nil {
		reason := "error"
		if errors.Is(err, store.ErrConcurrentUpdate) {
			reason = "conflict"
		}
		activitiesRejected.WithLabelValues(reason).Inc()
		e.logger.Error("failed to record activity", "user", in.UserID, "type", in.Type, "err", err)
		return nil, fail(span, err)
	}

	e.observe(applied)
	e.invalidate(ctx)
	e.logger.Info("recorded activity",
		"user", in.UserID,
		"type", in.Type,
		"points", applied.PointsDelta,
		"rank", applied.Profile.Rank,
	)
	return applied, nil
}

func (e *Engine) observe(applied *store.Applied) {
	if applied == nil || len(applied.Activities) == 0 {
		return
	}
	activitiesRecorded.WithLabelValues(string(applied.Activities[0].Type)).Inc()
	pointsAwarded.Add(float64(applied.PointsDelta))

	for _, b := range applied.BadgesAwarded {
		badgesAwarded.WithLabelValues(string(b.ID)).Inc()
		e.logger.Info("badge awarded", "user", applied.Profile.UserID, "badge", b.ID, "points", b.Points)
	}
	if applied.Rank.Promoted {
		rankPromotions.WithLabelValues(string(applied.Rank.To)).Inc()
		e.logger.Info("rank promoted", "user", applied.Profile.UserID, "from", applied.Rank.From, "to", applied.Rank.To)
	}
}

func (e *Engine) invalidate(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, lbcache.KeyPrefix); err != nil {
		e.logger.Warn("failed to invalidate leaderboard cache", "err", err)
	}
}

// OutcomeRequest reports an enforcement outcome for an incident
type OutcomeRequest struct {
	IncidentID  types.IncidentID `json:"incident_id"`
	ReporterID  types.UserID     `json:"reporter_id"`
	Type        string           `json:"outcome_type"`
	OutcomeDate time.Time        `json:"outcome_date,omitempty"`
}

// RecordOutcome stores a new unverified outcome. A zero date means today.
func (e *Engine) RecordOutcome(ctx context.Context, req OutcomeRequest) (*impact.IncidentOutcome, error) {
	ctx, span := tracer.Start(ctx, "RecordOutcome")
	defer span.End()
	span.SetAttributes(attribute.String("incident", string(req.IncidentID)), attribute.String("outcome", req.Type))

	kind, err := impact.ParseOutcomeType(req.Type)
	if err != nil {
		return nil, fail(span, invalid(err))
	}
	date := req.OutcomeDate
	if date.IsZero() {
		date = e.now().UTC()
	}
	o, err := impact.NewOutcome(req.IncidentID, req.ReporterID, kind, date)
	if err != nil {
		return nil, fail(span, invalid(err))
	}
	if err := e.store.CreateOutcome(ctx, o); err != nil {
		return nil, fail(span, err)
	}

	e.logger.Info("recorded outcome", "outcome", o.ID, "incident", o.IncidentID, "type", o.Type)
	return o, nil
}

// VerifyOutcome verifies an outcome; enforcement outcomes credit the reporter
func (e *Engine) VerifyOutcome(ctx context.Context, id types.OutcomeID, verifier types.UserID) (*impact.IncidentOutcome, *store.Applied, error) {
	ctx, span := tracer.Start(ctx, "VerifyOutcome")
	defer span.End()
	span.SetAttributes(attribute.String("outcome", string(id)))

	if id == "" {
		return nil, nil, fail(span, fmt.Errorf("%w: outcome id is required", types.ErrInvalidInput))
	}
	if verifier == "" {
		return nil, nil, fail(span, invalid(impact.ErrVerifierRequired))
	}

	o, applied, err := e.store.VerifyOutcome(ctx, id, verifier)
	if err != nil {
		return nil, nil, fail(span, err)
	}

	outcomesVerified.WithLabelValues(string(o.Type)).Inc()
	if applied != nil {
		e.observe(applied)
		e.invalidate(ctx)
	}
	e.logger.Info("verified outcome", "outcome", o.ID, "type", o.Type, "reporter", o.ReporterID, "verifier", verifier)
	return o, applied, nil
}

// LeaderboardPage is one page of a ranked leaderboard
type LeaderboardPage struct {
	Query      leaderboard.Query   `json:"query"`
	Entries    []leaderboard.Entry `json:"entries"`
	Pagination types.Pagination    `json:"pagination"`
	HasMore    bool                `json:"has_more"`
	TotalPages int                 `json:"total_pages"`
	Cached     bool                `json:"cached"`
}

// Leaderboard ranks guardians for the query's period, category and region,
// then applies the name search and pagination
func (e *Engine) Leaderboard(ctx context.Context, q leaderboard.Query) (*LeaderboardPage, error) {
	ctx, span := tracer.Start(ctx, "Leaderboard")
	defer span.End()

	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, fail(span, invalid(err))
	}
	span.SetAttributes(attribute.String("key", q.CacheKey()))

	ranked, cached, err := e.ranked(ctx, q)
	if err != nil {
		return nil, fail(span, err)
	}

	entries, pg := leaderboard.Page(leaderboard.Search(ranked, q.Search), q.Pagination)
	q.Pagination = pg
	return &LeaderboardPage{
		Query:      q,
		Entries:    entries,
		Pagination: pg,
		HasMore:    pg.HasMore(),
		TotalPages: pg.TotalPages(),
		Cached:     cached,
	}, nil
}

func (e *Engine) ranked(ctx context.Context, q leaderboard.Query) ([]leaderboard.Entry, bool, error) {
	key := q.CacheKey()
	if e.cache != nil {
		entries, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.logger.Warn("leaderboard cache read failed", "key", key, "err", err)
		} else if ok {
			leaderboardRequests.WithLabelValues("hit").Inc()
			return entries, true, nil
		}
	}
	leaderboardRequests.WithLabelValues("miss").Inc()

	start := time.Now()
	cands, err := e.store.LeaderboardCandidates(ctx, q.Category, q.Period.Since(e.now()), q.Region)
	if err != nil {
		return nil, false, err
	}
	entries := leaderboard.Rank(cands)
	leaderboardDuration.Observe(time.Since(start).Seconds())

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, entries); err != nil {
			e.logger.Warn("leaderboard cache write failed", "key", key, "err", err)
		}
	}
	return entries, false, nil
}

// StandingView is a guardian's place on one leaderboard
type StandingView struct {
	leaderboard.Standing
	Nearby []leaderboard.Entry `json:"nearby"`
}

// Standing locates a guardian on the query's leaderboard along with the
// entries within radius positions of them
func (e *Engine) Standing(ctx context.Context, q leaderboard.Query, userID types.UserID, radius int) (*StandingView, error) {
	ctx, span := tracer.Start(ctx, "Standing")
	defer span.End()

	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, fail(span, invalid(err))
	}
	ranked, _, err := e.ranked(ctx, q)
	if err != nil {
		return nil, fail(span, err)
	}

	st, err := leaderboard.Position(ranked, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	nearby, err := leaderboard.Around(ranked, userID, radius)
	if err != nil {
		return nil, fail(span, err)
	}
	return &StandingView{Standing: st, Nearby: nearby}, nil
}

// ProfileView is everything a guardian's profile page shows
type ProfileView struct {
	Profile    *guardian.Profile      `json:"profile"`
	Progress   ranks.Progress         `json:"progress"`
	NextBadges []badges.BadgeProgress `json:"next_badges,omitempty"`
	Impact     *store.UserImpact      `json:"impact"`
}

// ProfileView assembles a guardian's profile, rank progress, closest badges
// and impact estimate
func (e *Engine) ProfileView(ctx context.Context, userID types.UserID) (*ProfileView, error) {
	ctx, span := tracer.Start(ctx, "ProfileView")
	defer span.End()
	span.SetAttributes(attribute.String("user", string(userID)))

	p, err := e.store.Profile(ctx, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	log, err := e.store.Activities(ctx, userID, time.Time{})
	if err != nil {
		return nil, fail(span, err)
	}

	stats := p.Stats(guardian.StatsFromLog(log, e.now()))
	stats.IsRegionalTop, err = e.store.IsRegionalTop(ctx, userID, p.Region)
	if err != nil {
		return nil, fail(span, err)
	}

	progress, err := p.Progress()
	if err != nil {
		return nil, fail(span, err)
	}
	next, err := badges.NextBadges(stats, p.Badges)
	if err != nil {
		return nil, fail(span, err)
	}
	est, err := e.store.ImpactForUser(ctx, userID)
	if err != nil {
		return nil, fail(span, err)
	}

	return &ProfileView{Profile: p, Progress: progress, NextBadges: next, Impact: est}, nil
}

// SetLeaderboardVisibility opts a guardian in or out of public leaderboards
func (e *Engine) SetLeaderboardVisibility(ctx context.Context, userID types.UserID, show bool) error {
	ctx, span := tracer.Start(ctx, "SetLeaderboardVisibility")
	defer span.End()

	if err := e.store.SetLeaderboardVisibility(ctx, userID, show); err != nil {
		return fail(span, err)
	}
	e.invalidate(ctx)
	e.logger.Info("leaderboard visibility changed", "user", userID, "show", show)
	return nil
}

// Rebuild replays a guardian's activity log and repairs a drifted profile
func (e *Engine) Rebuild(ctx context.Context, userID types.UserID) (*store.RebuildResult, error) {
	ctx, span := tracer.Start(ctx, "Rebuild")
	defer span.End()

	res, err := e.store.Rebuild(ctx, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	if len(res.Drift) > 0 {
		profileRepairs.Inc()
		e.invalidate(ctx)
		e.logger.Warn("repaired drifted profile", "user", userID, "fields", res.Drift)
	}
	return res, nil
}
