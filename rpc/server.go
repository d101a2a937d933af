package rpc

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ecoguardian-in/core/leaderboard"
	impact "github.com/ecoguardian-in/core/outcome-impact"
	ranks "github.com/ecoguardian-in/core/rank-ladder"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/service"
	"github.com/ecoguardian-in/core/store"
	"github.com/ecoguardian-in/core/types"
)

var rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_rpc_requests_total",
	Help: "Number of gRPC requests handled, by method and status code",
}, []string{"method", "code"})

var rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "guardian_rpc_duration_seconds",
	Help:    "gRPC request latency, by method",
	Buckets: prometheus.DefBuckets,
}, []string{"method"})

// Server implements GuardianServer on top of a service.Engine
type Server struct {
	engine *service.Engine
}

var _ GuardianServer = (*Server)(nil)

// NewServer serves engine over gRPC
func NewServer(engine *service.Engine) *Server {
	return &Server{engine: engine}
}

// UnaryInterceptor logs and counts every request. A panicking handler is
// answered with codes.Internal instead of taking the process down.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("rpc handler panicked", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
				resp, err = nil, status.Errorf(codes.Internal, "internal error")
			}
		}()
		resp, err = handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		rpcRequests.WithLabelValues(info.FullMethod, code.String()).Inc()
		rpcDuration.WithLabelValues(info.FullMethod).Observe(elapsed.Seconds())

		switch {
		case err == nil:
			logger.Debug("rpc", "method", info.FullMethod, "duration", elapsed)
		case code == codes.Internal || code == codes.Unknown:
			logger.Error("rpc failed", "method", info.FullMethod, "code", code.String(), "err", err, "duration", elapsed)
		default:
			logger.Info("rpc rejected", "method", info.FullMethod, "code", code.String(), "err", err, "duration", elapsed)
		}
		return resp, err
	}
}

// RecordActivity decodes a service.ActivityRequest and returns the store.Applied result
func (s *Server) RecordActivity(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req service.ActivityRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	applied, err := s.engine.RecordActivity(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(applied)
}

// RecordOutcome decodes a service.OutcomeRequest and returns the stored outcome
func (s *Server) RecordOutcome(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req service.OutcomeRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	o, err := s.engine.RecordOutcome(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(o)
}

// VerifyOutcomeRequest names the outcome to verify and who verified it
type VerifyOutcomeRequest struct {
	OutcomeID types.OutcomeID `json:"outcome_id"`
	Verifier  types.UserID    `json:"verifier"`
}

// VerifyOutcomeResponse is the verified outcome and any reporter credit
type VerifyOutcomeResponse struct {
	Outcome *impact.IncidentOutcome `json:"outcome"`
	// Applied is set when the outcome credited its reporter
	Applied *store.Applied `json:"applied,omitempty"`
}

// VerifyOutcome marks an outcome verified
func (s *Server) VerifyOutcome(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req VerifyOutcomeRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	o, applied, err := s.engine.VerifyOutcome(ctx, req.OutcomeID, req.Verifier)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(VerifyOutcomeResponse{Outcome: o, Applied: applied})
}

// LeaderboardRequest is the flat wire form of a leaderboard.Query
type LeaderboardRequest struct {
	Period   leaderboard.Period   `json:"period,omitempty"`
	Category leaderboard.Category `json:"category,omitempty"`
	Region   types.RegionID       `json:"region,omitempty"`
	Search   string               `json:"search,omitempty"`
	Page     int                  `json:"page,omitempty"`
	PageSize int                  `json:"page_size,omitempty"`
}

func (r LeaderboardRequest) query() leaderboard.Query {
	return leaderboard.Query{
		Period:     r.Period,
		Category:   r.Category,
		Region:     r.Region,
		Search:     r.Search,
		Pagination: types.Pagination{Page: r.Page, PageSize: r.PageSize},
	}
}

// Leaderboard returns one page of a ranked leaderboard
func (s *Server) Leaderboard(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req LeaderboardRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	page, err := s.engine.Leaderboard(ctx, req.query())
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(page)
}

// StandingRequest locates UserID on a leaderboard, with Radius neighbours each side
type StandingRequest struct {
	LeaderboardRequest
	UserID types.UserID `json:"user_id"`
	Radius int          `json:"radius,omitempty"`
}

// Standing returns a guardian's position, percentile and nearby entries
func (s *Server) Standing(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req StandingRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	st, err := s.engine.Standing(ctx, req.query(), req.UserID, req.Radius)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(st)
}

// ProfileRequest selects a guardian profile
type ProfileRequest struct {
	UserID types.UserID `json:"user_id"`
}

// Profile returns a guardian's profile, rank progress, next badges and impact
func (s *Server) Profile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProfileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	view, err := s.engine.ProfileView(ctx, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(view)
}

// VisibilityRequest opts a guardian in or out of public leaderboards
type VisibilityRequest struct {
	UserID            types.UserID `json:"user_id"`
	ShowOnLeaderboard bool         `json:"show_on_leaderboard"`
}

// SetLeaderboardVisibility applies a VisibilityRequest and echoes it back
func (s *Server) SetLeaderboardVisibility(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req VisibilityRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if err := s.engine.SetLeaderboardVisibility(ctx, req.UserID, req.ShowOnLeaderboard); err != nil {
		return nil, toStatus(err)
	}
	return encode(req)
}

// ScoreRequest asks for the point value of one activity type
type ScoreRequest struct {
	ActivityType string `json:"activity_type"`
}

// ScoreResponse is an activity type's point value
type ScoreResponse struct {
	ActivityType scoring.ActivityType `json:"activity_type"`
	Points       int                  `json:"points"`
	Description  string               `json:"description"`
}

// Score looks up the point value of an activity type
func (s *Server) Score(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ScoreRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	kind, err := scoring.ParseActivityType(req.ActivityType)
	if err != nil {
		return nil, toStatus(err)
	}
	pts, err := scoring.Score(kind)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(ScoreResponse{ActivityType: kind, Points: pts, Description: scoring.PointsDescription()[kind]})
}

// RankRequest carries the two inputs of the rank ladder
type RankRequest struct {
	VerifiedReports int `json:"verified_reports"`
	Points          int `json:"points"`
}

// RankResponse is the resolved rank and progress toward the next one
type RankResponse struct {
	Rank     ranks.Rank     `json:"rank"`
	Progress ranks.Progress `json:"progress"`
}

// ResolveRank resolves a rank without touching any profile
func (s *Server) ResolveRank(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RankRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	rank, err := ranks.Resolve(req.VerifiedReports, req.Points)
	if err != nil {
		return nil, toStatus(err)
	}
	progress, err := ranks.ComputeProgress(rank, req.VerifiedReports, req.Points)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(RankResponse{Rank: rank, Progress: progress})
}
