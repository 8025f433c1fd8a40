package stages

import (
	"time"

	"github.com/lysyi3m/jobs-comb/app/pipeline"
	"github.com/lysyi3m/jobs-comb/app/scraped"
)

// MaxAge drops postings not seen by the scraper for more than maxDays.
type MaxAge struct {
	maxDays int
	now     func() time.Time
}

func NewMaxAge(maxDays int, now func() time.Time) *MaxAge {
	if now == nil {
		now = time.Now
	}
	return &MaxAge{maxDays: maxDays, now: now}
}

func (s *MaxAge) Name() string {
	return MaxAgeStage
}

func (s *MaxAge) Process(item scraped.Item) (scraped.Item, error) {
	lastSeenOn := item.Date(scraped.KeyLastSeenOn)
	if lastSeenOn.IsZero() {
		return item, nil
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	age := int(today.Sub(lastSeenOn).Hours() / 24)
	if age > s.maxDays {
		return nil, pipeline.Dropf("last seen %d days ago", age)
	}
	return item, nil
}
