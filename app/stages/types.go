package stages

const (
	BoardsIDsStage      = "boards_ids"
	EmojiCleanerStage   = "emoji_cleaner"
	RequiredFieldsStage = "required_fields"
	FiltersStage        = "filters"
	MaxAgeStage         = "max_age"
)

// Config is the pipelines file: which stages run in which phase, in order,
// plus per-stage settings.
type Config struct {
	Ingest      []string `yaml:"ingest"`
	Postprocess []string `yaml:"postprocess"`
	Settings    Settings `yaml:"settings"`
}

type Settings struct {
	RequiredFields []string       `yaml:"required_fields"`
	MaxAgeDays     int            `yaml:"max_age_days"`
	CleanFields    []string       `yaml:"clean_fields"`
	Filters        []ConfigFilter `yaml:"filters"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
