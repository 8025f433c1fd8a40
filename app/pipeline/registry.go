package pipeline

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps stage names, as used in configuration, to stages.
type Registry struct {
	stages map[string]Stage
	mu     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]Stage),
	}
}

func (r *Registry) Register(stage Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stages[stage.Name()]; exists {
		return fmt.Errorf("stage '%s' already registered", stage.Name())
	}
	r.stages[stage.Name()] = stage
	return nil
}

// Resolve returns stages in the given order, failing on unknown names.
func (r *Registry) Resolve(names []string) ([]Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stages := make([]Stage, 0, len(names))
	for _, name := range names {
		stage, ok := r.stages[name]
		if !ok {
			return nil, fmt.Errorf("unknown stage '%s'", name)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.stages))
	for name := range r.stages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
