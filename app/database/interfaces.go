package database

import (
	"context"
	"iter"
	"time"

	"github.com/lysyi3m/jobs-comb/app/scraped"
)

// JobRepository is the job record store. Writes are expected to come from
// a single goroutine per run; reads may happen concurrently.
type JobRepository interface {
	Create(ctx context.Context, item scraped.Item) (*Job, error)
	GetByKey(ctx context.Context, item scraped.Item) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	Save(ctx context.Context, job *Job) error
	Delete(ctx context.Context, id int64) error
	IterateIDs(ctx context.Context) iter.Seq2[int64, error]

	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*JobStats, error)
	ListRecent(ctx context.Context, limit int) ([]Job, error)
	LatestLastSeenOn(ctx context.Context) (time.Time, error)
}
