package lbcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecoguardian-in/core/leaderboard"
)

type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache connects to redisURL and checks the connection
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisCache{Client: rdb, TTL: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]leaderboard.Entry, bool, error) {
	val, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entries []leaderboard.Entry
	if err := json.Unmarshal(val, &entries); err != nil {
		// unreadable values count as misses
		return nil, false, nil
	}
	return entries, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, entries []leaderboard.Entry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, b, c.TTL).Err()
}

// Invalidate deletes every key under prefix, walking the keyspace with SCAN
func (c *RedisCache) Invalidate(ctx context.Context, prefix string) error {
	iter := c.Client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning %s keys: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}
