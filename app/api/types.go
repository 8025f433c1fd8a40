package api

import (
	"time"

	"github.com/lysyi3m/jobs-comb/app/cache"
	"github.com/lysyi3m/jobs-comb/app/database"
	"github.com/lysyi3m/jobs-comb/app/feed"
	"github.com/lysyi3m/jobs-comb/app/tasks"
)

const feedCacheName = "jobs"

type GeneratorInterface interface {
	Run(jobs []database.Job) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	jobRepo     database.JobRepository
	generator   GeneratorInterface
	feedCache   cache.FeedCache
	scheduler   tasks.TaskSchedulerInterface
	newSyncTask tasks.TaskFactory
	feedSize    int
	cacheTTL    time.Duration
}

type jobResponse struct {
	ID              int64          `json:"id"`
	URL             string         `json:"url"`
	ApplyURL        string         `json:"apply_url,omitempty"`
	Title           string         `json:"title"`
	CompanyName     string         `json:"company_name"`
	CompanyURL      string         `json:"company_url,omitempty"`
	Source          string         `json:"source"`
	Remote          *bool          `json:"remote"`
	LocationsRaw    []string       `json:"locations_raw"`
	EmploymentTypes []string       `json:"employment_types"`
	BoardsIDs       []string       `json:"boards_ids"`
	SourceURLs      []string       `json:"source_urls"`
	Extra           map[string]any `json:"extra,omitempty"`
	FirstSeenOn     string         `json:"first_seen_on"`
	LastSeenOn      string         `json:"last_seen_on"`
}

func newJobResponse(job database.Job) jobResponse {
	return jobResponse{
		ID:              job.ID,
		URL:             job.URL,
		ApplyURL:        job.ApplyURL,
		Title:           job.Title,
		CompanyName:     job.CompanyName,
		CompanyURL:      job.CompanyURL,
		Source:          job.Source,
		Remote:          job.Remote,
		LocationsRaw:    job.LocationsRaw,
		EmploymentTypes: job.EmploymentTypes,
		BoardsIDs:       job.BoardsIDs,
		SourceURLs:      job.SourceURLs,
		Extra:           job.Extra,
		FirstSeenOn:     job.FirstSeenOn.Format(time.DateOnly),
		LastSeenOn:      job.LastSeenOn.Format(time.DateOnly),
	}
}
