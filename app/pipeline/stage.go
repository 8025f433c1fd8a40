package pipeline

import (
	"errors"
	"fmt"

	"github.com/lysyi3m/jobs-comb/app/scraped"
)

var ErrStagePanic = errors.New("stage panicked")

// Stage transforms or validates a single item. Returning an error created
// by Drop rejects the item; any other error is a processing failure.
type Stage interface {
	Name() string
	Process(item scraped.Item) (scraped.Item, error)
}

type StageFunc struct {
	StageName string
	Fn        func(item scraped.Item) (scraped.Item, error)
}

func (s StageFunc) Name() string {
	return s.StageName
}

func (s StageFunc) Process(item scraped.Item) (scraped.Item, error) {
	return s.Fn(item)
}

// DropError marks an item as rejected. It is an expected outcome, not a
// failure.
type DropError struct {
	Reason string
}

func (e *DropError) Error() string {
	return "item dropped: " + e.Reason
}

func Drop(reason string) error {
	return &DropError{Reason: reason}
}

func Dropf(format string, args ...any) error {
	return &DropError{Reason: fmt.Sprintf(format, args...)}
}

// IsDrop reports whether err is a drop and returns its reason.
func IsDrop(err error) (string, bool) {
	var dropErr *DropError
	if errors.As(err, &dropErr) {
		return dropErr.Reason, true
	}
	return "", false
}
