package cache

import (
	"context"
	"time"
)

var _ FeedCache = NoopCache{}

// NoopCache is used when no Redis URL is configured. Every lookup misses.
type NoopCache struct{}

func (NoopCache) GetFeed(ctx context.Context, name string) (string, bool, error) {
	return "", false, nil
}

func (NoopCache) SetFeed(ctx context.Context, name, content string, ttl time.Duration) error {
	return nil
}

func (NoopCache) Invalidate(ctx context.Context) error {
	return nil
}

func (NoopCache) Health(ctx context.Context) map[string]any {
	return map[string]any{"status": "disabled", "type": "none"}
}

func (NoopCache) Close() error {
	return nil
}
