package stages

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/jobs-comb/app/pipeline"
	"github.com/lysyi3m/jobs-comb/app/scraped"
)

var validFilterFields = map[string]bool{
	scraped.KeyTitle:           true,
	scraped.KeyCompanyName:     true,
	scraped.KeyDescriptionHTML: true,
	scraped.KeyLocationsRaw:    true,
	scraped.KeyEmploymentTypes: true,
	scraped.KeyURL:             true,
	scraped.KeySource:          true,
}

// Filterer drops items by case-insensitive include/exclude substring rules.
type Filterer struct {
	filters []ConfigFilter
}

func NewFilterer(filters []ConfigFilter) *Filterer {
	return &Filterer{filters: filters}
}

func (f *Filterer) Name() string {
	return FiltersStage
}

func (f *Filterer) Process(item scraped.Item) (scraped.Item, error) {
	if isFiltered, filterReason := f.applyFilters(item); isFiltered {
		return nil, pipeline.Drop(filterReason)
	}
	return item, nil
}

func (f *Filterer) applyFilters(item scraped.Item) (bool, string) {
	for _, filter := range f.filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item scraped.Item, field string) string {
	switch field {
	case scraped.KeyLocationsRaw, scraped.KeyEmploymentTypes:
		return strings.Join(item.Strings(field), " ")
	default:
		return item.String(field)
	}
}
