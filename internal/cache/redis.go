package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/campusmatch/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

// KeyForUnreadCount generates the Redis key for a user's unread-message count
// within one conversation.
func (c *RedisCache) KeyForUnreadCount(userID, matchID string) string {
	return fmt.Sprintf("unread:count:%s:%s", userID, matchID)
}

// GetUnreadCount reads the cached unread count. A cache miss is reported via
// the ok flag, not an error.
func (c *RedisCache) GetUnreadCount(ctx context.Context, userID, matchID string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForUnreadCount(userID, matchID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SetUnreadCount stores the unread count with a 1h TTL.
func (c *RedisCache) SetUnreadCount(ctx context.Context, userID, matchID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForUnreadCount(userID, matchID), count, time.Hour).Err()
}

// BumpUnreadCount increments the unread count and refreshes its TTL.
// A miss is left as a miss so the next read repopulates from the DB.
func (c *RedisCache) BumpUnreadCount(ctx context.Context, userID, matchID string) {
	key := c.KeyForUnreadCount(userID, matchID)
	exists, err := c.Client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return
	}
	_, _ = c.Client.Incr(ctx, key).Result()
	_ = c.Client.Expire(ctx, key, time.Hour).Err()
}

// ResetUnreadCount marks the conversation as fully read in the cache.
func (c *RedisCache) ResetUnreadCount(ctx context.Context, userID, matchID string) error {
	return c.Client.Set(ctx, c.KeyForUnreadCount(userID, matchID), 0, time.Hour).Err()
}
