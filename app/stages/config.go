package stages

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lysyi3m/jobs-comb/app/scraped"
	"gopkg.in/yaml.v3"
)

func DefaultConfig() *Config {
	cfg := &Config{
		Ingest:      []string{BoardsIDsStage, EmojiCleanerStage},
		Postprocess: []string{RequiredFieldsStage, MaxAgeStage},
	}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads the pipelines file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Debug("Pipelines file not found, using defaults", "path", path)
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	slog.Debug("Pipelines loaded", "path", path, "ingest", cfg.Ingest, "postprocess", cfg.Postprocess)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Settings.MaxAgeDays == 0 {
		cfg.Settings.MaxAgeDays = 30
	}
	if len(cfg.Settings.RequiredFields) == 0 {
		cfg.Settings.RequiredFields = []string{scraped.KeyURL}
	}
	if len(cfg.Settings.CleanFields) == 0 {
		cfg.Settings.CleanFields = []string{scraped.KeyTitle, scraped.KeyCompanyName}
	}
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	knownStages := map[string]bool{
		BoardsIDsStage:      true,
		EmojiCleanerStage:   true,
		RequiredFieldsStage: true,
		FiltersStage:        true,
		MaxAgeStage:         true,
	}

	phases := map[string][]string{
		"ingest":      cfg.Ingest,
		"postprocess": cfg.Postprocess,
	}

	for phase, names := range phases {
		for i, name := range names {
			if !knownStages[name] {
				return fmt.Errorf("unknown %s stage at index %d: %s", phase, i, name)
			}
		}
	}

	if cfg.Settings.MaxAgeDays < 0 {
		return fmt.Errorf("max age days must be non-negative")
	}

	for i, filter := range cfg.Settings.Filters {
		if !validFilterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
