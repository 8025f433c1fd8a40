package database

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/lysyi3m/jobs-comb/app/scraped"
)

var columnKeys = map[string]bool{
	scraped.KeyURL:             true,
	scraped.KeyApplyURL:        true,
	scraped.KeyTitle:           true,
	scraped.KeyCompanyName:     true,
	scraped.KeyCompanyURL:      true,
	scraped.KeyDescriptionHTML: true,
	scraped.KeySource:          true,
	scraped.KeyRemote:          true,
	scraped.KeyLocationsRaw:    true,
	scraped.KeyEmploymentTypes: true,
	scraped.KeySourceURLs:      true,
	scraped.KeyBoardsIDs:       true,
	scraped.KeyFirstSeenOn:     true,
	scraped.KeyLastSeenOn:      true,
}

// NewJobFromItem maps an item onto a job. Unknown keys go to Extra.
func NewJobFromItem(item scraped.Item) (*Job, error) {
	job := &Job{Extra: make(map[string]any)}
	job.assign(item)

	if job.URL == "" {
		return nil, fmt.Errorf("%w: no %s", ErrInvalidItem, scraped.KeyURL)
	}
	if job.FirstSeenOn.IsZero() {
		return nil, fmt.Errorf("%w: no %s", ErrInvalidItem, scraped.KeyFirstSeenOn)
	}
	if job.LastSeenOn.IsZero() {
		return nil, fmt.Errorf("%w: no %s", ErrInvalidItem, scraped.KeyLastSeenOn)
	}

	return job, nil
}

func (j *Job) assign(item scraped.Item) {
	j.URL = item.String(scraped.KeyURL)
	j.ApplyURL = item.String(scraped.KeyApplyURL)
	j.Title = item.String(scraped.KeyTitle)
	j.CompanyName = item.String(scraped.KeyCompanyName)
	j.CompanyURL = item.String(scraped.KeyCompanyURL)
	j.DescriptionHTML = item.String(scraped.KeyDescriptionHTML)
	j.Source = item.String(scraped.KeySource)
	j.Remote = nil
	if item.Has(scraped.KeyRemote) {
		remote := item.Bool(scraped.KeyRemote)
		j.Remote = &remote
	}
	j.LocationsRaw = item.Strings(scraped.KeyLocationsRaw)
	j.EmploymentTypes = item.Strings(scraped.KeyEmploymentTypes)
	j.SourceURLs = item.Strings(scraped.KeySourceURLs)
	j.BoardsIDs = item.Strings(scraped.KeyBoardsIDs)
	j.FirstSeenOn = item.Date(scraped.KeyFirstSeenOn)
	j.LastSeenOn = item.Date(scraped.KeyLastSeenOn)

	for key, value := range item {
		if !columnKeys[key] {
			j.Extra[key] = value
		}
	}
}

// ToItem is the inverse of NewJobFromItem.
func (j *Job) ToItem() scraped.Item {
	item := make(scraped.Item, len(columnKeys)+len(j.Extra))
	maps.Copy(item, j.Extra)

	item[scraped.KeyURL] = j.URL
	item[scraped.KeyApplyURL] = j.ApplyURL
	item[scraped.KeyTitle] = j.Title
	item[scraped.KeyCompanyName] = j.CompanyName
	item[scraped.KeyCompanyURL] = j.CompanyURL
	item[scraped.KeyDescriptionHTML] = j.DescriptionHTML
	item[scraped.KeySource] = j.Source
	item[scraped.KeyLocationsRaw] = slices.Clone(j.LocationsRaw)
	item[scraped.KeyEmploymentTypes] = slices.Clone(j.EmploymentTypes)
	item[scraped.KeySourceURLs] = slices.Clone(j.SourceURLs)
	item[scraped.KeyBoardsIDs] = slices.Clone(j.BoardsIDs)
	item[scraped.KeyFirstSeenOn] = j.FirstSeenOn
	item[scraped.KeyLastSeenOn] = j.LastSeenOn
	if j.Remote != nil {
		item[scraped.KeyRemote] = *j.Remote
	}

	return item
}

// ApplyItem replaces the job's fields with a postprocessed item. The URL
// is the job's identity and stays unchanged, as do the dates when the
// item lacks them.
func (j *Job) ApplyItem(item scraped.Item) {
	url, firstSeenOn, lastSeenOn := j.URL, j.FirstSeenOn, j.LastSeenOn

	j.Extra = make(map[string]any)
	j.assign(item)

	j.URL = url
	if j.FirstSeenOn.IsZero() {
		j.FirstSeenOn = firstSeenOn
	}
	if j.LastSeenOn.IsZero() {
		j.LastSeenOn = lastSeenOn
	}
}

// MergeItem folds a later or earlier observation of the same posting into
// the job:
//   - first_seen_on keeps the minimum, last_seen_on the maximum
//   - boards_ids and source_urls become the sorted union
//   - other fields take the observation's non-empty values when it is
//     newer than the job, otherwise only fill empty fields
//
// Observations from the same day break ties by value, so the outcome does
// not depend on the order they are merged in.
func (j *Job) MergeItem(item scraped.Item) error {
	incoming, err := NewJobFromItem(item)
	if err != nil {
		return fmt.Errorf("failed to merge item: %w", err)
	}

	order := incoming.LastSeenOn.Compare(j.LastSeenOn)

	mergeString := func(dst *string, src string) {
		if src != "" && (*dst == "" || order > 0 || order == 0 && src > *dst) {
			*dst = src
		}
	}
	mergeList := func(dst *[]string, src []string) {
		if len(src) > 0 && (len(*dst) == 0 || order > 0 || order == 0 && slices.Compare(src, *dst) > 0) {
			*dst = slices.Clone(src)
		}
	}

	mergeString(&j.ApplyURL, incoming.ApplyURL)
	mergeString(&j.Title, incoming.Title)
	mergeString(&j.CompanyName, incoming.CompanyName)
	mergeString(&j.CompanyURL, incoming.CompanyURL)
	mergeString(&j.DescriptionHTML, incoming.DescriptionHTML)
	mergeString(&j.Source, incoming.Source)
	mergeList(&j.LocationsRaw, incoming.LocationsRaw)
	mergeList(&j.EmploymentTypes, incoming.EmploymentTypes)

	if src := incoming.Remote; src != nil {
		if j.Remote == nil || order > 0 || order == 0 && *src && !*j.Remote {
			j.Remote = src
		}
	}

	j.BoardsIDs = union(j.BoardsIDs, incoming.BoardsIDs)
	j.SourceURLs = union(j.SourceURLs, incoming.SourceURLs)

	if incoming.FirstSeenOn.Before(j.FirstSeenOn) {
		j.FirstSeenOn = incoming.FirstSeenOn
	}
	if incoming.LastSeenOn.After(j.LastSeenOn) {
		j.LastSeenOn = incoming.LastSeenOn
	}

	if j.Extra == nil {
		j.Extra = make(map[string]any)
	}
	for key, value := range incoming.Extra {
		if isBlank(value) {
			continue
		}
		current, exists := j.Extra[key]
		if !exists || isBlank(current) || order > 0 || order == 0 && fmt.Sprint(value) > fmt.Sprint(current) {
			j.Extra[key] = value
		}
	}

	return nil
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case time.Time:
		return v.IsZero()
	default:
		return false
	}
}
