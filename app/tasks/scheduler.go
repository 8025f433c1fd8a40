package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskQueueSize = 10
	maxRetryDelay = 30 * time.Second
)

// TaskFactory builds a fresh task for a trigger such as "cron" or "api".
type TaskFactory func(trigger string) TaskInterface

// Scheduler runs tasks one at a time. A single worker keeps the store
// with one writer even when cron and API triggers overlap.
type Scheduler struct {
	cron        *cron.Cron
	schedule    string
	newTask     TaskFactory
	runOnStart  bool
	taskTimeout time.Duration
	retryDelay  time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

type SchedulerOptions struct {
	// Schedule is a cron spec, e.g. "@every 6h" or "0 3 * * *". Empty
	// disables periodic runs.
	Schedule    string
	Location    *time.Location
	RunOnStart  bool
	TaskTimeout time.Duration
}

func NewScheduler(newTask TaskFactory, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	location := opts.Location
	if location == nil {
		location = time.UTC
	}

	return &Scheduler{
		cron:        cron.New(cron.WithLocation(location)),
		schedule:    opts.Schedule,
		newTask:     newTask,
		runOnStart:  opts.RunOnStart,
		taskTimeout: opts.TaskTimeout,
		retryDelay:  time.Second,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
	}
}

func (s *Scheduler) Start() error {
	if s.schedule != "" {
		if _, err := s.cron.AddFunc(s.schedule, func() { s.enqueue("cron") }); err != nil {
			return fmt.Errorf("failed to parse schedule %q: %w", s.schedule, err)
		}
		s.cron.Start()
		slog.Info("Scheduler started", "schedule", s.schedule)
	}

	s.wg.Add(1)
	go s.worker()

	if s.runOnStart {
		s.enqueue("startup")
	}

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueue(trigger string) {
	task := s.newTask(trigger)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "trigger", trigger, "error", err)
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	taskCtx, cancel := s.taskContext()
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "trigger", task.GetTrigger(), "retry_count", task.GetRetryCount(), "error", err)

	if s.ctx.Err() != nil {
		return
	}

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(s.retryDelay<<(task.GetRetryCount()-1), maxRetryDelay)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(retryDelay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

func (s *Scheduler) taskContext() (context.Context, context.CancelFunc) {
	if s.taskTimeout > 0 {
		return context.WithTimeout(s.ctx, s.taskTimeout)
	}
	return context.WithCancel(s.ctx)
}
