package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/jobs-comb/app/database"
	"github.com/lysyi3m/jobs-comb/app/pipeline"
	"github.com/lysyi3m/jobs-comb/app/scraped"
)

type SyncOptions struct {
	ArchivesDir string
	// Since limits ingest to archives captured on or after this date, the
	// zero value means all archives. Resume replaces it with the newest
	// last_seen_on in the store.
	Since       time.Time
	Resume      bool
	Workers     int
	QueueSize   int
	Ingest      []pipeline.Stage
	Postprocess []pipeline.Stage
}

// SyncTask discovers archives, ingests them and then postprocesses the
// whole store.
type SyncTask struct {
	Task
	opts    SyncOptions
	jobRepo database.JobRepository
	onDone  func()
}

func NewSyncTask(trigger string, opts SyncOptions, jobRepo database.JobRepository) *SyncTask {
	return &SyncTask{
		Task:    NewTask(TaskTypeSync, trigger),
		opts:    opts,
		jobRepo: jobRepo,
	}
}

// OnDone registers a callback invoked after every successful run.
func (t *SyncTask) OnDone(fn func()) *SyncTask {
	t.onDone = fn
	return t
}

func (t *SyncTask) Execute(ctx context.Context) error {
	if t.StartedAt == nil {
		t.Start()
	}

	paths, err := t.relevantPaths(ctx)
	if err != nil {
		return err
	}

	if len(paths) > 0 {
		ingest := NewIngestTask(t.Trigger, paths, t.opts.Ingest, t.jobRepo, t.opts.Workers, t.opts.QueueSize)
		if err := ingest.Execute(ctx); err != nil {
			return err
		}
	} else {
		slog.Info("No new archives to ingest", "dir", t.opts.ArchivesDir)
	}

	postprocess := NewPostprocessTask(t.Trigger, t.opts.Postprocess, t.jobRepo, t.opts.Workers, t.opts.QueueSize)
	if err := postprocess.Execute(ctx); err != nil {
		return err
	}

	if t.onDone != nil {
		t.onDone()
	}

	slog.Info("Task completed",
		"type", "Sync",
		"id", t.ID,
		"trigger", t.Trigger,
		"duration", t.GetDuration(),
		"archives", len(paths))

	return nil
}

func (t *SyncTask) relevantPaths(ctx context.Context) ([]string, error) {
	return DiscoverArchives(ctx, t.jobRepo, t.opts.ArchivesDir, t.opts.Since, t.opts.Resume)
}

// DiscoverArchives lists the archives under dir captured on or after since.
// With resume, since is the newest last_seen_on in the store instead, and an
// empty store means all archives.
func DiscoverArchives(ctx context.Context, jobRepo database.JobRepository, dir string, since time.Time, resume bool) ([]string, error) {
	paths, err := scraped.Glob(dir)
	if err != nil {
		return nil, err
	}

	if resume {
		since, err = jobRepo.LatestLastSeenOn(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve since date: %w", err)
		}
	}
	if since.IsZero() {
		return paths, nil
	}

	slog.Debug("Filtering archives", "since", since.Format(time.DateOnly), "total", len(paths))
	return scraped.FilterRelevantPaths(paths, since)
}
