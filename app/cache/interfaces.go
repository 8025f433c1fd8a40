package cache

import (
	"context"
	"time"
)

// FeedCache stores rendered feeds. Misses are reported with ok=false, not
// with an error.
type FeedCache interface {
	GetFeed(ctx context.Context, name string) (content string, ok bool, err error)
	SetFeed(ctx context.Context, name, content string, ttl time.Duration) error
	Invalidate(ctx context.Context) error
	Health(ctx context.Context) map[string]any
	Close() error
}
