package scraped

import (
	"slices"
	"time"
)

// Well-known item keys
const (
	KeyURL             = "url"
	KeyApplyURL        = "apply_url"
	KeyTitle           = "title"
	KeyCompanyName     = "company_name"
	KeyCompanyURL      = "company_url"
	KeyDescriptionHTML = "description_html"
	KeySource          = "source"
	KeySourceURLs      = "source_urls"
	KeyLocationsRaw    = "locations_raw"
	KeyEmploymentTypes = "employment_types"
	KeyRemote          = "remote"
	KeyBoardsIDs       = "boards_ids"
	KeyFirstSeenOn     = "first_seen_on"
	KeyLastSeenOn      = "last_seen_on"
)

// Item is a single scraped job posting. Values come straight from JSON
// decoding, except for the two date keys which hold time.Time.
type Item map[string]any

func (i Item) Has(key string) bool {
	v, ok := i[key]
	return ok && v != nil
}

func (i Item) String(key string) string {
	if s, ok := i[key].(string); ok {
		return s
	}
	return ""
}

// Strings accepts both []string and the []any produced by encoding/json.
func (i Item) Strings(key string) []string {
	switch v := i[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (i Item) Bool(key string) bool {
	b, _ := i[key].(bool)
	return b
}

func (i Item) Date(key string) time.Time {
	switch v := i[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := ParseDate(v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clone returns a shallow copy with list values copied, so stages can
// mutate the result without touching the caller's item.
func (i Item) Clone() Item {
	out := make(Item, len(i))
	for k, v := range i {
		switch vv := v.(type) {
		case []string:
			out[k] = slices.Clone(vv)
		case []any:
			out[k] = slices.Clone(vv)
		default:
			out[k] = v
		}
	}
	return out
}

// ParseDate parses an ISO calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
