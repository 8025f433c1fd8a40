package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/lysyi3m/jobs-comb/app/database"
	"github.com/lysyi3m/jobs-comb/app/pipeline"
	"golang.org/x/sync/errgroup"
)

const (
	postprocessorLogEvery = 100
	persistorLogEvery     = 100
)

type OpType string

const (
	OpSave   OpType = "save"
	OpDelete OpType = "delete"
)

type operation struct {
	op  OpType
	id  int64
	job *database.Job
}

// PostprocessTask re-runs stored jobs through the postprocess stages. A
// single query goroutine streams ids, N postprocessors turn each job into
// a save or delete operation, and a single persistor applies them.
type PostprocessTask struct {
	Task
	stages    []pipeline.Stage
	jobRepo   database.JobRepository
	workers   int
	queueSize int
	stats     *PostprocessStats
}

func NewPostprocessTask(trigger string, stages []pipeline.Stage, jobRepo database.JobRepository, workers, queueSize int) *PostprocessTask {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &PostprocessTask{
		Task:      NewTask(TaskTypePostprocess, trigger),
		stages:    stages,
		jobRepo:   jobRepo,
		workers:   workers,
		queueSize: queueSize,
		stats:     &PostprocessStats{},
	}
}

func (t *PostprocessTask) Stats() *PostprocessStats {
	return t.stats
}

func (t *PostprocessTask) Execute(ctx context.Context) error {
	if t.StartedAt == nil {
		t.Start()
	}

	err := t.run(ctx)

	slog.Info("Task completed",
		"type", "Postprocess",
		"id", t.ID,
		"duration", t.GetDuration(),
		"workers", t.workers,
		"stats", t.stats,
		"error", err)

	return err
}

func (t *PostprocessTask) run(ctx context.Context) error {
	t.stats = &PostprocessStats{}

	idQueue := make(chan int64, t.queueSize)
	opQueue := make(chan operation, t.queueSize)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return t.query(groupCtx, idQueue)
	})

	group.Go(func() error {
		defer close(opQueue)

		var postprocessors errgroup.Group
		for id := range t.workers {
			postprocessors.Go(func() error {
				return t.postprocessor(groupCtx, id, idQueue, opQueue)
			})
		}
		return postprocessors.Wait()
	})

	group.Go(func() error {
		return t.persistor(groupCtx, opQueue)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("postprocess failed: %w", err)
	}
	return nil
}

func (t *PostprocessTask) query(ctx context.Context, out chan<- int64) error {
	defer close(out)

	count := 0
	for id, err := range t.jobRepo.IterateIDs(ctx) {
		if err != nil {
			return fmt.Errorf("failed to query jobs: %w", err)
		}

		select {
		case out <- id:
		case <-ctx.Done():
			return ctx.Err()
		}
		count++
	}

	slog.Debug("Query finished", "jobs", count)
	return nil
}

// postprocessor never fails on a single job, it only stops on cancellation.
func (t *PostprocessTask) postprocessor(ctx context.Context, workerID int, in <-chan int64, out chan<- operation) error {
	count := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-in:
			if !ok {
				slog.Debug("Postprocessor finished", "worker", workerID, "jobs", count)
				return nil
			}

			t.stats.visited.Add(1)

			op, ok := t.process(ctx, id)
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				continue
			}

			select {
			case out <- op:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%postprocessorLogEvery == 0 {
				slog.Debug("Postprocessing progress", "worker", workerID, "jobs", count)
			}
		}
	}
}

// process turns one job into an operation. Drops, stage failures and store
// read failures all become deletes. ok is false when there is nothing to do.
func (t *PostprocessTask) process(ctx context.Context, id int64) (operation, bool) {
	job, err := t.jobRepo.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		t.stats.missing.Add(1)
		slog.Warn("Job disappeared before postprocessing", "job_id", id)
		return operation{}, false
	}
	if err != nil {
		if ctx.Err() != nil {
			return operation{}, false
		}
		t.stats.errors.Add(1)
		slog.Error("Failed to load job, deleting", "job_id", id, "error", err)
		return operation{op: OpDelete, id: id}, true
	}

	result, err := pipeline.Execute(job.ToItem(), t.stages)
	if err != nil {
		t.stats.errors.Add(1)
		slog.Error("Failed to postprocess job, deleting", "job_id", id, "url", job.URL, "stage", result.Stage, "error", err)
		return operation{op: OpDelete, id: id}, true
	}
	if result.Dropped {
		t.stats.dropped.Add(1)
		slog.Warn("Job dropped", "job_id", id, "url", job.URL, "stage", result.Stage, "reason", result.Reason)
		return operation{op: OpDelete, id: id}, true
	}

	job.ApplyItem(result.Item)
	return operation{op: OpSave, id: id, job: job}, true
}

// persistor is the only goroutine writing to the store during a
// postprocess run. Any store error is fatal.
func (t *PostprocessTask) persistor(ctx context.Context, in <-chan operation) error {
	count := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op, ok := <-in:
			if !ok {
				slog.Debug("Persistor finished", "operations", count)
				return nil
			}

			if err := t.apply(ctx, op); err != nil {
				return err
			}

			count++
			if count%persistorLogEvery == 0 {
				slog.Info("Persisting progress", "operations", count, "stats", t.stats)
			}
		}
	}
}

func (t *PostprocessTask) apply(ctx context.Context, op operation) error {
	switch op.op {
	case OpDelete:
		if err := t.jobRepo.Delete(ctx, op.id); err != nil {
			return fmt.Errorf("failed to delete job %d: %w", op.id, err)
		}
		t.stats.deleted.Add(1)
	case OpSave:
		err := t.jobRepo.Save(ctx, op.job)
		if errors.Is(err, database.ErrNotFound) {
			t.stats.missing.Add(1)
			slog.Warn("Job disappeared before saving", "job_id", op.id)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to save job %d: %w", op.id, err)
		}
		t.stats.saved.Add(1)
	default:
		return fmt.Errorf("unknown operation %q for job %d", op.op, op.id)
	}
	return nil
}
