package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/jobs-comb/app/cache"
	"github.com/lysyi3m/jobs-comb/app/database"
	"github.com/lysyi3m/jobs-comb/app/tasks"
)

const maxListLimit = 1000

func NewHandler(jobRepo database.JobRepository, generator GeneratorInterface, feedCache cache.FeedCache,
	scheduler tasks.TaskSchedulerInterface, newSyncTask tasks.TaskFactory,
	feedSize int, cacheTTL time.Duration) *Handler {
	if feedCache == nil {
		feedCache = cache.NoopCache{}
	}

	return &Handler{
		jobRepo:     jobRepo,
		generator:   generator,
		feedCache:   feedCache,
		scheduler:   scheduler,
		newSyncTask: newSyncTask,
		feedSize:    feedSize,
		cacheTTL:    cacheTTL,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	ctx := c.Request.Context()

	rss, ok, err := h.feedCache.GetFeed(ctx, feedCacheName)
	if err != nil {
		slog.Warn("Feed cache error", "operation", "get", "error", err)
	}

	if ok {
		c.Header("X-Cache", "HIT")
	} else {
		jobs, err := h.jobRepo.ListRecent(ctx, h.feedSize)
		if err != nil {
			slog.Error("Database error", "operation", "list_recent", "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		rss, err = h.generator.Run(jobs)
		if err != nil {
			slog.Error("RSS generation error", "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}

		if err := h.feedCache.SetFeed(ctx, feedCacheName, rss, h.cacheTTL); err != nil {
			slog.Warn("Feed cache error", "operation", "set", "error", err)
		}

		c.Header("X-Cache", "MISS")
		c.Header("X-Feed-Items", strconv.Itoa(len(jobs)))
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"cache":     h.feedCache.Health(ctx),
	}

	if count, err := h.jobRepo.Count(ctx); err == nil {
		health["jobs"] = count
	} else {
		slog.Error("Database error", "operation", "count", "error", err)
		health["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.jobRepo.Stats(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	bySource := make(map[string]int, len(stats.BySource))
	for _, source := range stats.BySource {
		bySource[source.Source] = source.Count
	}

	response := map[string]interface{}{
		"jobs":      stats.Total,
		"remote":    stats.Remote,
		"by_source": bySource,
	}

	if latest, err := h.jobRepo.LatestLastSeenOn(ctx); err == nil && !latest.IsZero() {
		response["latest_seen_on"] = latest.Format(time.DateOnly)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIListJobs(c *gin.Context) {
	limit := h.feedSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid limit parameter",
				"details": "limit must be between 1 and " + strconv.Itoa(maxListLimit),
			})
			return
		}
		limit = parsed
	}

	jobs, err := h.jobRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_recent", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		response = append(response, newJobResponse(job))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"jobs":  response,
		"total": len(response),
	})
}

func (h *Handler) APISync(c *gin.Context) {
	task := h.newSyncTask("api")

	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing sync task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Sync task enqueued",
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}
