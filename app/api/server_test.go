package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/jobs-comb/app/cache"
	"github.com/lysyi3m/jobs-comb/app/database"
	"github.com/lysyi3m/jobs-comb/app/feed"
	"github.com/lysyi3m/jobs-comb/app/scraped"
	"github.com/lysyi3m/jobs-comb/app/tasks"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

type memoryCache struct {
	mu    sync.Mutex
	feeds map[string]string
}

var _ cache.FeedCache = (*memoryCache)(nil)

func (m *memoryCache) GetFeed(ctx context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.feeds[name]
	return content, ok, nil
}

func (m *memoryCache) SetFeed(ctx context.Context, name, content string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[name] = content
	return nil
}

func (m *memoryCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.feeds)
	return nil
}

func (m *memoryCache) Health(ctx context.Context) map[string]any {
	return map[string]any{"status": "healthy", "type": "memory"}
}

func (m *memoryCache) Close() error {
	return nil
}

type recordingScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (s *recordingScheduler) Start() error { return nil }
func (s *recordingScheduler) Stop()        {}

func (s *recordingScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, task)
	return nil
}

type testServer struct {
	handler   http.Handler
	repo      *database.SQLiteJobRepository
	cache     *memoryCache
	scheduler *recordingScheduler
}

func setupTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	repo := database.NewJobRepository(db)
	for _, item := range []scraped.Item{
		{
			scraped.KeyURL:         "https://www.startupjobs.cz/nabidka/42/junior-developer",
			scraped.KeyTitle:       "Junior Developer",
			scraped.KeyCompanyName: "Acme",
			scraped.KeySource:      "startupjobs",
			scraped.KeyRemote:      true,
			scraped.KeyFirstSeenOn: "2024-03-01",
			scraped.KeyLastSeenOn:  "2024-03-15",
		},
		{
			scraped.KeyURL:         "https://example.com/jobs/7",
			scraped.KeyTitle:       "Junior Tester",
			scraped.KeySource:      "linkedin",
			scraped.KeyFirstSeenOn: "2024-02-01",
			scraped.KeyLastSeenOn:  "2024-02-10",
		},
	} {
		_, err := repo.Create(context.Background(), item)
		require.NoError(t, err)
	}

	memCache := &memoryCache{feeds: make(map[string]string)}
	scheduler := &recordingScheduler{}
	newSyncTask := func(trigger string) tasks.TaskInterface {
		return tasks.NewSyncTask(trigger, tasks.SyncOptions{}, repo)
	}

	handler := NewHandler(repo, feed.NewGenerator("http://localhost:8080", "test"), memCache, scheduler, newSyncTask, 10, time.Minute)

	return &testServer{
		handler:   NewServer(handler, apiKey, "test"),
		repo:      repo,
		cache:     memCache,
		scheduler: scheduler,
	}
}

func (s *testServer) do(method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGetFeed(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(http.MethodGet, "/jobs.xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))
	require.Equal(t, "2", w.Header().Get("X-Feed-Items"))
	require.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	require.Contains(t, w.Body.String(), "<title>Junior Developer at Acme</title>")
	require.Contains(t, s.cache.feeds, feedCacheName)

	// second request is served from the cache even if the store changes
	_, err := s.repo.Create(context.Background(), scraped.Item{
		scraped.KeyURL:         "https://example.com/jobs/8",
		scraped.KeyTitle:       "Data Analyst",
		scraped.KeyFirstSeenOn: "2024-03-20",
		scraped.KeyLastSeenOn:  "2024-03-20",
	})
	require.NoError(t, err)

	w = s.do(http.MethodGet, "/jobs.xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "HIT", w.Header().Get("X-Cache"))
	require.NotContains(t, w.Body.String(), "Data Analyst")

	require.NoError(t, s.cache.Invalidate(context.Background()))

	w = s.do(http.MethodGet, "/jobs.xml", nil)
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))
	require.Contains(t, w.Body.String(), "Data Analyst")
}

func TestGetHealth(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	require.Equal(t, "healthy", body["status"])
	require.EqualValues(t, 2, body["jobs"])
}

func TestGetStats(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	require.EqualValues(t, 2, body["jobs"])
	require.EqualValues(t, 1, body["remote"])
	require.Equal(t, map[string]any{"startupjobs": float64(1), "linkedin": float64(1)}, body["by_source"])
	require.Equal(t, "2024-03-15", body["latest_seen_on"])
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIAuthentication(t *testing.T) {
	s := setupTestServer(t, testAPIKey)

	tests := []struct {
		name    string
		headers map[string]string
		code    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": testAPIKey}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer " + testAPIKey}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/jobs", tt.headers)
			require.Equal(t, tt.code, w.Code)
		})
	}
}

func TestAPIListJobs(t *testing.T) {
	s := setupTestServer(t, testAPIKey)
	auth := map[string]string{"X-API-Key": testAPIKey}

	w := s.do(http.MethodGet, "/api/jobs?limit=1", auth)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Jobs  []jobResponse `json:"jobs"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	require.Equal(t, "Junior Developer", body.Jobs[0].Title)
	require.Equal(t, "2024-03-01", body.Jobs[0].FirstSeenOn)
	require.Equal(t, "2024-03-15", body.Jobs[0].LastSeenOn)

	for _, limit := range []string{"0", "abc", "5000"} {
		w := s.do(http.MethodGet, "/api/jobs?limit="+limit, auth)
		require.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestAPISync(t *testing.T) {
	s := setupTestServer(t, testAPIKey)
	auth := map[string]string{"X-API-Key": testAPIKey}

	w := s.do(http.MethodPost, "/api/sync", auth)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, s.scheduler.enqueued, 1)

	task := s.scheduler.enqueued[0]
	require.Equal(t, tasks.TaskTypeSync, task.GetType())
	require.Equal(t, "api", task.GetTrigger())

	body := decode(t, w)
	require.Equal(t, task.GetID(), body["task"].(map[string]any)["id"])

	s.scheduler.err = errors.New("task queue is full")
	w = s.do(http.MethodPost, "/api/sync", auth)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "task queue is full"))
}

func TestRootEndpoint(t *testing.T) {
	s := setupTestServer(t, testAPIKey)

	w := s.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	require.Equal(t, "Jobs Comb", body["service"])
	endpoints := body["endpoints"].(map[string]any)
	require.Equal(t, "/jobs.xml", endpoints["feed"])
	require.Contains(t, endpoints, "sync")
}
