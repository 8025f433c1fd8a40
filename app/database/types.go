package database

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("job not found")
	ErrDuplicate = errors.New("job already exists")

	// ErrInvalidItem marks items that cannot become a job, e.g. without url.
	ErrInvalidItem = errors.New("invalid item")
)

// Job is a persisted job posting. URL is the deduplication key.
type Job struct {
	ID              int64
	URL             string
	ApplyURL        string
	Title           string
	CompanyName     string
	CompanyURL      string
	DescriptionHTML string
	Source          string
	Remote          *bool // nil when no observation said either way
	LocationsRaw    []string
	EmploymentTypes []string
	SourceURLs      []string
	BoardsIDs       []string
	Extra           map[string]any // item keys without a dedicated column
	FirstSeenOn     time.Time
	LastSeenOn      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsRemote reports whether the job is known to be remote.
func (j *Job) IsRemote() bool {
	return j.Remote != nil && *j.Remote
}

type SourceCount struct {
	Source string
	Count  int
}

type JobStats struct {
	Total    int
	Remote   int
	BySource []SourceCount
}
