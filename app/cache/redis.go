package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "jobs-comb:feed:"

var _ FeedCache = (*Cache)(nil)

// Cache keeps rendered feeds in Redis.
type Cache struct {
	client *redis.Client
}

type feedData struct {
	Content   string `json:"content"`
	CachedAt  int64  `json:"cached_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// NewCache connects to the Redis server at url, e.g.
// redis://localhost:6379/0.
func NewCache(ctx context.Context, url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return &Cache{client: client}, nil
}

func FeedKey(name string) string {
	return keyPrefix + name
}

func (c *Cache) GetFeed(ctx context.Context, name string) (string, bool, error) {
	key := FeedKey(name)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	var feed feedData
	if err := json.Unmarshal(data, &feed); err != nil || feed.Content == "" {
		// treat broken entries as a miss
		c.client.Del(ctx, key)
		return "", false, nil
	}

	return feed.Content, true, nil
}

func (c *Cache) SetFeed(ctx context.Context, name, content string, ttl time.Duration) error {
	key := FeedKey(name)
	now := time.Now()

	data, err := json.Marshal(feedData{
		Content:   content,
		CachedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Invalidate removes every cached feed.
func (c *Cache) Invalidate(ctx context.Context) error {
	var keys []string

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached feeds: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cached feeds: %w", err)
	}

	slog.Debug("Feed cache invalidated", "keys", len(keys))
	return nil
}

func (c *Cache) Health(ctx context.Context) map[string]any {
	health := map[string]any{
		"status": "healthy",
		"type":   "redis",
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		return health
	}

	if dbSize, err := c.client.DBSize(ctx).Result(); err == nil {
		health["key_count"] = dbSize
	}

	return health
}

func (c *Cache) Close() error {
	return c.client.Close()
}
