package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/lysyi3m/jobs-comb/app/database"
	"github.com/lysyi3m/jobs-comb/app/pipeline"
	"github.com/lysyi3m/jobs-comb/app/scraped"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultQueueSize = 1000

	readerLogEvery = 100
	writerLogEvery = 1000
)

// IngestTask loads archives into the job store. W readers parse archives
// and run the ingest stages; a single writer creates or merges jobs.
type IngestTask struct {
	Task
	paths     []string
	stages    []pipeline.Stage
	jobRepo   database.JobRepository
	workers   int
	queueSize int
	stats     *IngestStats
}

// NewIngestTask creates an ingest run. workers <= 0 means one reader per
// CPU, queueSize <= 0 means DefaultQueueSize.
func NewIngestTask(trigger string, paths []string, stages []pipeline.Stage, jobRepo database.JobRepository, workers, queueSize int) *IngestTask {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &IngestTask{
		Task:      NewTask(TaskTypeIngest, trigger),
		paths:     paths,
		stages:    stages,
		jobRepo:   jobRepo,
		workers:   workers,
		queueSize: queueSize,
		stats:     &IngestStats{},
	}
}

func (t *IngestTask) Stats() *IngestStats {
	return t.stats
}

func (t *IngestTask) Execute(ctx context.Context) error {
	if t.StartedAt == nil {
		t.Start()
	}

	err := t.run(ctx)

	slog.Info("Task completed",
		"type", "Ingest",
		"id", t.ID,
		"duration", t.GetDuration(),
		"workers", t.workers,
		"stats", t.stats,
		"error", err)

	return err
}

func (t *IngestTask) run(ctx context.Context) error {
	t.stats = &IngestStats{}

	paths, err := scraped.SortBySize(t.paths)
	if err != nil {
		return err
	}

	// every path is queued up front, readers exit once the queue is drained
	pathQueue := make(chan string, len(paths))
	for _, path := range paths {
		pathQueue <- path
	}
	close(pathQueue)

	itemQueue := make(chan scraped.Item, t.queueSize)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(itemQueue)

		var readers errgroup.Group
		for id := range t.workers {
			readers.Go(func() error {
				return t.reader(groupCtx, id, pathQueue, itemQueue)
			})
		}
		return readers.Wait()
	})

	group.Go(func() error {
		return t.writer(groupCtx, itemQueue)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

// reader returns an error only on cancellation. A broken archive is logged
// and counted, and the reader moves on to the next one.
func (t *IngestTask) reader(ctx context.Context, id int, paths <-chan string, out chan<- scraped.Item) error {
	for path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		t.stats.archives.Add(1)
		slog.Debug("Reading archive", "reader", id, "path", path)

		if err := t.readArchive(ctx, id, path, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.stats.failedArchives.Add(1)
			slog.Error("Failed to read archive", "reader", id, "path", path, "error", err)
		}
	}

	slog.Debug("Reader finished", "reader", id)
	return nil
}

func (t *IngestTask) readArchive(ctx context.Context, id int, path string, out chan<- scraped.Item) error {
	count := 0

	for item, err := range scraped.Parse(path) {
		if err != nil {
			return err
		}
		t.stats.parsed.Add(1)

		result, err := pipeline.Execute(item, t.stages)
		if err != nil {
			return fmt.Errorf("failed to process %s: %w", item.String(scraped.KeyURL), err)
		}
		if result.Dropped {
			t.stats.dropped.Add(1)
			slog.Warn("Item dropped",
				"stage", result.Stage,
				"reason", result.Reason,
				"url", item.String(scraped.KeyURL),
				"path", path)
			continue
		}

		select {
		case out <- result.Item:
		case <-ctx.Done():
			return ctx.Err()
		}

		count++
		if count%readerLogEvery == 0 {
			slog.Debug("Reading progress", "reader", id, "path", path, "items", count)
		}
	}

	return nil
}

// writer is the only goroutine writing to the store during an ingest run.
func (t *IngestTask) writer(ctx context.Context, in <-chan scraped.Item) error {
	count := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-in:
			if !ok {
				slog.Debug("Writer finished", "items", count)
				return nil
			}

			if err := t.write(ctx, item); err != nil {
				return err
			}

			count++
			if count%writerLogEvery == 0 {
				slog.Info("Writing progress", "items", count, "stats", t.stats)
			}
		}
	}
}

func (t *IngestTask) write(ctx context.Context, item scraped.Item) error {
	_, err := t.jobRepo.Create(ctx, item)
	if err == nil {
		t.stats.created.Add(1)
		return nil
	}
	if errors.Is(err, database.ErrInvalidItem) {
		t.stats.dropped.Add(1)
		slog.Warn("Item rejected by store", "url", item.String(scraped.KeyURL), "error", err)
		return nil
	}
	if !errors.Is(err, database.ErrDuplicate) {
		return fmt.Errorf("failed to create job %s: %w", item.String(scraped.KeyURL), err)
	}

	job, err := t.jobRepo.GetByKey(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to get existing job %s: %w", item.String(scraped.KeyURL), err)
	}
	if err := job.MergeItem(item); err != nil {
		return err
	}
	if err := t.jobRepo.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to save merged job %d: %w", job.ID, err)
	}

	t.stats.merged.Add(1)
	return nil
}
