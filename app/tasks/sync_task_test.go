package tasks

import (
	"context"
	"testing"

	"github.com/lysyi3m/jobs-comb/app/pipeline"
	"github.com/lysyi3m/jobs-comb/app/stages"
	"github.com/stretchr/testify/require"
)

func TestSyncTask_IngestsAndPostprocesses(t *testing.T) {
	repo := setupRepository(t)
	root := t.TempDir()
	writeArchive(t, root, "2024/01/01", "a.jsonl.gz", jobLine(t, "https://example.com/jobs/old", "Old", "2024-01-01"))
	writeArchive(t, root, "2024/03/20", "a.jsonl.gz", jobLine(t, postingURL, "Junior Developer", "2024-03-20"))

	done := false
	task := NewSyncTask("test", SyncOptions{
		ArchivesDir: root,
		Workers:     2,
		Ingest:      ingestStages(),
		Postprocess: []pipeline.Stage{stages.NewMaxAge(30, fixedNow)},
	}, repo).OnDone(func() { done = true })

	require.NoError(t, task.Execute(context.Background()))
	require.True(t, done)

	jobs := allJobs(t, repo)
	require.Len(t, jobs, 1)
	require.Equal(t, postingURL, jobs[0].URL)
}

func TestSyncTask_ResumesFromLatestObservation(t *testing.T) {
	repo := setupRepository(t)
	root := t.TempDir()
	writeArchive(t, root, "2024/03/01", "a.jsonl.gz", jobLine(t, postingURL, "Junior Developer", "2024-03-01"))

	opts := SyncOptions{ArchivesDir: root, Resume: true, Workers: 1, Ingest: ingestStages()}
	require.NoError(t, NewSyncTask("test", opts, repo).Execute(context.Background()))

	// older archives than the newest observation are skipped on the next run
	writeArchive(t, root, "2024/02/01", "a.jsonl.gz", jobLine(t, "https://example.com/jobs/skipped", "Skipped", "2024-02-01"))
	writeArchive(t, root, "2024/03/15", "a.jsonl.gz", jobLine(t, postingURL, "Junior Developer", "2024-03-01"))

	require.NoError(t, NewSyncTask("test", opts, repo).Execute(context.Background()))

	jobs := allJobs(t, repo)
	require.Len(t, jobs, 1)
	require.True(t, jobs[0].FirstSeenOn.Equal(day(2024, 3, 1)))
	require.True(t, jobs[0].LastSeenOn.Equal(day(2024, 3, 15)))
}
