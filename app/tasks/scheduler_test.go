package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingTask struct {
	Task
	runs    *atomic.Int32
	failFor int32
	running *atomic.Int32
	overlap *atomic.Bool
}

func newCountingTask(trigger string, runs *atomic.Int32) *countingTask {
	return &countingTask{
		Task:    NewTask(TaskTypeSync, trigger),
		runs:    runs,
		running: &atomic.Int32{},
		overlap: &atomic.Bool{},
	}
}

func (t *countingTask) Execute(ctx context.Context) error {
	if t.running.Add(1) > 1 {
		t.overlap.Store(true)
	}
	defer t.running.Add(-1)

	time.Sleep(5 * time.Millisecond)

	if n := t.runs.Add(1); n <= t.failFor {
		return errors.New("temporary failure")
	}
	return nil
}

func TestScheduler_RunsEnqueuedTasks(t *testing.T) {
	var runs atomic.Int32
	running := &atomic.Int32{}
	overlap := &atomic.Bool{}

	factory := func(trigger string) TaskInterface {
		task := newCountingTask(trigger, &runs)
		task.running, task.overlap = running, overlap
		return task
	}

	scheduler := NewScheduler(factory, SchedulerOptions{})
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	for range 3 {
		require.NoError(t, scheduler.EnqueueTask(factory("api")))
	}

	require.Eventually(t, func() bool { return runs.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.False(t, overlap.Load(), "Expected tasks to run one at a time")
}

func TestScheduler_RunOnStart(t *testing.T) {
	var runs atomic.Int32
	var trigger atomic.Value

	factory := func(tr string) TaskInterface {
		trigger.Store(tr)
		return newCountingTask(tr, &runs)
	}

	scheduler := NewScheduler(factory, SchedulerOptions{RunOnStart: true})
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, "startup", trigger.Load())
}

func TestScheduler_RetriesFailedTask(t *testing.T) {
	var runs atomic.Int32
	task := newCountingTask("api", &runs)
	task.failFor = 2

	scheduler := NewScheduler(func(string) TaskInterface { return task }, SchedulerOptions{})
	scheduler.retryDelay = time.Millisecond
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	require.NoError(t, scheduler.EnqueueTask(task))

	require.Eventually(t, func() bool { return runs.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 2, task.GetRetryCount())
}

func TestScheduler_GivesUpAfterMaxRetries(t *testing.T) {
	var runs atomic.Int32
	task := newCountingTask("api", &runs)
	task.failFor = 100

	scheduler := NewScheduler(func(string) TaskInterface { return task }, SchedulerOptions{})
	scheduler.retryDelay = time.Millisecond
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	require.NoError(t, scheduler.EnqueueTask(task))

	require.Eventually(t, func() bool { return runs.Load() == DefaultMaxRetries+1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, DefaultMaxRetries+1, runs.Load())
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	scheduler := NewScheduler(func(tr string) TaskInterface { return nil }, SchedulerOptions{Schedule: "every now and then"})
	require.Error(t, scheduler.Start())
}

func TestScheduler_EnqueueAfterStop(t *testing.T) {
	var runs atomic.Int32
	scheduler := NewScheduler(func(tr string) TaskInterface { return newCountingTask(tr, &runs) }, SchedulerOptions{})
	require.NoError(t, scheduler.Start())
	scheduler.Stop()

	require.ErrorIs(t, scheduler.EnqueueTask(newCountingTask("api", &runs)), context.Canceled)
}
