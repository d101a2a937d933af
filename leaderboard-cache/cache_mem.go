package lbcache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ecoguardian-in/core/leaderboard"
)

type MemCache struct {
	Data *expirable.LRU[string, []leaderboard.Entry]
}

var _ Cache = (*MemCache)(nil)

func NewMemCache(capacity int, ttl time.Duration) *MemCache {
	return &MemCache{
		Data: expirable.NewLRU[string, []leaderboard.Entry](capacity, nil, ttl),
	}
}

func (c *MemCache) Get(ctx context.Context, key string) ([]leaderboard.Entry, bool, error) {
	v, ok := c.Data.Get(key)
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (c *MemCache) Set(ctx context.Context, key string, entries []leaderboard.Entry) error {
	c.Data.Add(key, clone(entries))
	return nil
}

func (c *MemCache) Invalidate(ctx context.Context, prefix string) error {
	for _, k := range c.Data.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.Data.Remove(k)
		}
	}
	return nil
}

func clone(entries []leaderboard.Entry) []leaderboard.Entry {
	if entries == nil {
		return nil
	}
	out := make([]leaderboard.Entry, len(entries))
	copy(out, entries)
	return out
}
