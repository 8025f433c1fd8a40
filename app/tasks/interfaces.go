package tasks

// TaskSchedulerInterface is what the API server needs from the scheduler.
//
//	scheduler := NewScheduler(newSyncTask, SchedulerOptions{Schedule: "@every 6h"})
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(newSyncTask("api"))
type TaskSchedulerInterface interface {
	Start() error
	Stop()
	EnqueueTask(task TaskInterface) error
}
