package stages

import (
	"github.com/lysyi3m/jobs-comb/app/pipeline"
	"github.com/lysyi3m/jobs-comb/app/scraped"
)

type RequiredFields struct {
	fields []string
}

func NewRequiredFields(fields []string) *RequiredFields {
	return &RequiredFields{fields: fields}
}

func (s *RequiredFields) Name() string {
	return RequiredFieldsStage
}

func (s *RequiredFields) Process(item scraped.Item) (scraped.Item, error) {
	for _, field := range s.fields {
		if isEmpty(item[field]) {
			return nil, pipeline.Dropf("missing %s", field)
		}
	}
	return item, nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
