package lbcache

import (
	"context"
	"time"

	"github.com/ecoguardian-in/core/leaderboard"
)

// KeyPrefix is shared by every leaderboard cache key
const KeyPrefix = "leaderboard:"

// DefaultTTL keeps cached rankings close to real time
const DefaultTTL = 15 * time.Second

// Cache holds fully ranked leaderboards. Get reports a miss with ok=false
// and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (entries []leaderboard.Entry, ok bool, err error)
	Set(ctx context.Context, key string, entries []leaderboard.Entry) error
	Invalidate(ctx context.Context, prefix string) error
}
