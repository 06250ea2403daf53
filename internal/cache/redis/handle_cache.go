// Package redis caches handle resolutions in Redis so repeated analyses of the
// same @handle skip the platform lookups.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

// DefaultTTL bounds how long a handle → id mapping is trusted.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "tubescout:handle:"

// Config selects the Redis endpoint.
type Config struct {
	URL string
	TTL time.Duration
}

// commander is the subset of the go-redis client used here.
type commander interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// HandleCache implements crawler.HandleCache on Redis.
type HandleCache struct {
	rdb    commander
	ttl    time.Duration
	logger *zap.Logger
}

var _ crawler.HandleCache = (*HandleCache)(nil)

// New parses cfg.URL, connects, and pings the server.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*HandleCache, *goredis.Client, error) {
	if cfg.URL == "" {
		return nil, nil, errors.New("cache.redis_url is required")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg.TTL, logger), client, nil
}

// NewWithClient wraps an existing client. A non-positive ttl uses DefaultTTL.
func NewWithClient(rdb commander, ttl time.Duration, logger *zap.Logger) *HandleCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandleCache{rdb: rdb, ttl: ttl, logger: logger.Named("handle_cache")}
}

// Get returns the cached id for handle, if any.
func (c *HandleCache) Get(ctx context.Context, handle string) (string, bool, error) {
	id, err := c.rdb.Get(ctx, keyPrefix+handle).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", handle, err)
	}
	return id, true, nil
}

// Set stores handle → channelID for the configured TTL.
func (c *HandleCache) Set(ctx context.Context, handle, channelID string) error {
	if err := c.rdb.Set(ctx, keyPrefix+handle, channelID, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", handle, err)
	}
	c.logger.Debug("cached handle", zap.String("handle", handle), zap.String("channel_id", channelID))
	return nil
}
