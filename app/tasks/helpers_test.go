package tasks

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/jobs-comb/app/database"
	"github.com/lysyi3m/jobs-comb/app/scraped"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T) *database.SQLiteJobRepository {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	return database.NewJobRepository(db)
}

func writeArchive(t *testing.T, root, date, name string, lines ...string) string {
	t.Helper()

	dir := filepath.Join(append([]string{root}, strings.Split(date, "/")...)...)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var buf bytes.Buffer
	if len(lines) > 0 {
		gz := gzip.NewWriter(&buf)
		for _, line := range lines {
			_, err := gz.Write([]byte(line + "\n"))
			require.NoError(t, err)
		}
		require.NoError(t, gz.Close())
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func jobLine(t *testing.T, url, title, firstSeenOn string) string {
	t.Helper()

	line, err := json.Marshal(map[string]any{
		scraped.KeyURL:         url,
		scraped.KeyTitle:       title,
		scraped.KeyCompanyName: "Acme",
		scraped.KeySource:      "startupjobs",
		scraped.KeyFirstSeenOn: firstSeenOn,
	})
	require.NoError(t, err)
	return string(line)
}

func seedJob(t *testing.T, repo database.JobRepository, url string, lastSeenOn time.Time) *database.Job {
	t.Helper()

	job, err := repo.Create(context.Background(), scraped.Item{
		scraped.KeyURL:         url,
		scraped.KeyTitle:       "Junior Developer",
		scraped.KeyFirstSeenOn: lastSeenOn.AddDate(0, 0, -7),
		scraped.KeyLastSeenOn:  lastSeenOn,
	})
	require.NoError(t, err)
	return job
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func allJobs(t *testing.T, repo database.JobRepository) []database.Job {
	t.Helper()

	jobs, err := repo.ListRecent(context.Background(), 1000)
	require.NoError(t, err)
	return jobs
}
