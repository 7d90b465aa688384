package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"nextvault/internal/domain"
)

// LeaderboardCache implements domain.LeaderboardCache using Redis string
// keys. Each page is stored as JSON under "leaderboard:{page}:{limit}".
// Invalidation bumps a generation counter baked into every key, so stale
// pages simply expire instead of being scanned for.
type LeaderboardCache struct {
	rdb *redis.Client
}

// NewLeaderboardCache creates a LeaderboardCache backed by the given Client.
func NewLeaderboardCache(c *Client) *LeaderboardCache {
	return &LeaderboardCache{rdb: c.Underlying()}
}

const leaderboardGenKey = "leaderboard:gen"

func (lc *LeaderboardCache) pageKey(ctx context.Context, page, limit int) (string, error) {
	gen, err := lc.rdb.Get(ctx, leaderboardGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("redis: get leaderboard generation: %w", err)
	}
	return "leaderboard:" + strconv.FormatInt(gen, 10) + ":" +
		strconv.Itoa(page) + ":" + strconv.Itoa(limit), nil
}

// Get retrieves a cached leaderboard page. It returns domain.ErrNotFound
// on a cache miss.
func (lc *LeaderboardCache) Get(ctx context.Context, page, limit int) (*domain.LeaderboardPage, error) {
	key, err := lc.pageKey(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	raw, err := lc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get leaderboard page: %w", err)
	}

	var pageData domain.LeaderboardPage
	if err := json.Unmarshal(raw, &pageData); err != nil {
		return nil, fmt.Errorf("redis: decode leaderboard page: %w", err)
	}

	return &pageData, nil
}

// Set stores a leaderboard page with the given TTL.
func (lc *LeaderboardCache) Set(ctx context.Context, pageData *domain.LeaderboardPage, ttl time.Duration) error {
	key, err := lc.pageKey(ctx, pageData.Page, pageData.Limit)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(pageData)
	if err != nil {
		return fmt.Errorf("redis: encode leaderboard page: %w", err)
	}

	if err := lc.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set leaderboard page: %w", err)
	}

	return nil
}

// Invalidate drops all cached pages by moving to a new generation.
func (lc *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := lc.rdb.Incr(ctx, leaderboardGenKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate leaderboard: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.LeaderboardCache = (*LeaderboardCache)(nil)
