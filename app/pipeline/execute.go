package pipeline

import (
	"fmt"

	"github.com/lysyi3m/jobs-comb/app/scraped"
)

// Result is the outcome of running an item through a stage list. When
// Dropped is set, Item is nil and Stage names the stage that rejected it.
type Result struct {
	Item    scraped.Item
	Dropped bool
	Reason  string
	Stage   string
}

// Execute runs stages in order, feeding each stage the previous output.
// Drops short-circuit into a Result. Other stage errors and panics are
// returned as errors naming the stage.
func Execute(item scraped.Item, stages []Stage) (Result, error) {
	for _, stage := range stages {
		out, err := run(stage, item)
		if err != nil {
			if reason, ok := IsDrop(err); ok {
				return Result{Dropped: true, Reason: reason, Stage: stage.Name()}, nil
			}
			return Result{Stage: stage.Name()}, fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}
		if out == nil {
			return Result{Stage: stage.Name()}, fmt.Errorf("stage %s returned no item", stage.Name())
		}
		item = out
	}

	return Result{Item: item}, nil
}

func run(stage Stage, item scraped.Item) (out scraped.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrStagePanic, r)
		}
	}()

	return stage.Process(item)
}
