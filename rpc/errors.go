package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ecoguardian-in/core/badges"
	"github.com/ecoguardian-in/core/guardian"
	"github.com/ecoguardian-in/core/leaderboard"
	impact "github.com/ecoguardian-in/core/outcome-impact"
	ranks "github.com/ecoguardian-in/core/rank-ladder"
	"github.com/ecoguardian-in/core/scoring"
	"github.com/ecoguardian-in/core/store"
	"github.com/ecoguardian-in/core/types"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{types.ErrInvalidInput, codes.InvalidArgument},
	{types.ErrInvalidUserID, codes.InvalidArgument},
	{types.ErrInvalidLocation, codes.InvalidArgument},
	{scoring.ErrUnknownActivity, codes.InvalidArgument},
	{scoring.ErrInvalidActivity, codes.InvalidArgument},
	{guardian.ErrDerivedActivity, codes.InvalidArgument},
	{impact.ErrUnknownOutcome, codes.InvalidArgument},
	{impact.ErrInvalidOutcome, codes.InvalidArgument},
	{impact.ErrVerifierRequired, codes.InvalidArgument},
	{ranks.ErrUnknownRank, codes.InvalidArgument},
	{ranks.ErrNegativeInput, codes.InvalidArgument},
	{badges.ErrNegativeStat, codes.InvalidArgument},
	{leaderboard.ErrUnknownCategory, codes.InvalidArgument},
	{leaderboard.ErrUnknownPeriod, codes.InvalidArgument},

	{types.ErrNotFound, codes.NotFound},
	{types.ErrUserNotFound, codes.NotFound},
	{types.ErrOutcomeNotFound, codes.NotFound},
	{leaderboard.ErrUserNotRanked, codes.NotFound},

	{types.ErrAlreadyExists, codes.AlreadyExists},
	{impact.ErrAlreadyVerified, codes.FailedPrecondition},
	{store.ErrConcurrentUpdate, codes.Aborted},

	{context.Canceled, codes.Canceled},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
}

// toStatus maps an engine error onto a gRPC status. Errors already carrying
// a status pass through; anything unrecognised is Internal.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return status.Error(ec.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}
