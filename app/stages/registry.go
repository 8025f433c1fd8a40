package stages

import (
	"fmt"
	"time"

	"github.com/lysyi3m/jobs-comb/app/pipeline"
)

// NewRegistry registers every available stage configured with settings.
func NewRegistry(settings Settings, now func() time.Time) (*pipeline.Registry, error) {
	registry := pipeline.NewRegistry()

	for _, stage := range []pipeline.Stage{
		NewBoardsIDs(),
		NewEmojiCleaner(settings.CleanFields),
		NewRequiredFields(settings.RequiredFields),
		NewFilterer(settings.Filters),
		NewMaxAge(settings.MaxAgeDays, now),
	} {
		if err := registry.Register(stage); err != nil {
			return nil, fmt.Errorf("failed to register stage: %w", err)
		}
	}

	return registry, nil
}

// Resolve returns the ingest and postprocess stage lists of cfg.
func Resolve(cfg *Config, now func() time.Time) (ingest, postprocess []pipeline.Stage, err error) {
	registry, err := NewRegistry(cfg.Settings, now)
	if err != nil {
		return nil, nil, err
	}

	ingest, err = registry.Resolve(cfg.Ingest)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve ingest stages: %w", err)
	}

	postprocess, err = registry.Resolve(cfg.Postprocess)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve postprocess stages: %w", err)
	}

	return ingest, postprocess, nil
}
