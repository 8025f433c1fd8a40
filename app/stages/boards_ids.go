package stages

import (
	"regexp"
	"slices"

	"github.com/lysyi3m/jobs-comb/app/pipeline"
	"github.com/lysyi3m/jobs-comb/app/scraped"
)

type boardPattern struct {
	namespace string
	re        *regexp.Regexp
}

// Order matters, the first matching pattern wins.
var boardPatterns = []boardPattern{
	{"juniorguru", regexp.MustCompile(`(?i)\bjunior\.guru/jobs/(?P<id>[0-9a-f]+)`)},
	{"startupjobs", regexp.MustCompile(`(?i)\bstartupjobs\.cz/nabidka/(?P<id>\d+)`)},
	{"remoteok", regexp.MustCompile(`(?i)\bremoteok\.(com|io)/remote-jobs/([\w\-]+\-)?(?P<id>\d+)/?$`)},
	{"weworkremotely", regexp.MustCompile(`(?i)\bweworkremotely\.com/remote-jobs/(?P<id>[\w+\-]+)`)},
	{"linkedin", regexp.MustCompile(`(?i)\blinkedin\.com/jobs/view/[\w+\-%]+\-(?P<id>\d+)`)},
	{"jobscz", regexp.MustCompile(`(?i)\bwww\.jobs\.cz/rpd/(?P<id>\d+)`)},
	{"jobscz", regexp.MustCompile(`(?i)\bwww\.jobs\.cz/fp/[^/]+/(?P<id>\d+)`)},
	{"jobscz", regexp.MustCompile(`(?i)\.jobs\.cz/detail-pozice.*[&?]id=(?P<id>\d+)`)},
}

// BoardsIDs derives board identifiers ("namespace#id") from url and
// apply_url. Items without a url are dropped.
type BoardsIDs struct{}

func NewBoardsIDs() *BoardsIDs {
	return &BoardsIDs{}
}

func (s *BoardsIDs) Name() string {
	return BoardsIDsStage
}

func (s *BoardsIDs) Process(item scraped.Item) (scraped.Item, error) {
	url := item.String(scraped.KeyURL)
	if url == "" {
		return nil, pipeline.Drop(scraped.KeyURL)
	}

	ids := make([]string, 0, 2)
	for _, u := range []string{url, item.String(scraped.KeyApplyURL)} {
		if id, ok := ParseBoardID(u); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	item[scraped.KeyBoardsIDs] = slices.Compact(ids)
	return item, nil
}

// ParseBoardID returns the board identifier of the first pattern matching url.
func ParseBoardID(url string) (string, bool) {
	if url == "" {
		return "", false
	}

	for _, p := range boardPatterns {
		match := p.re.FindStringSubmatch(url)
		if match == nil {
			continue
		}
		return p.namespace + "#" + match[p.re.SubexpIndex("id")], true
	}
	return "", false
}
