package tasks

import (
	"log/slog"
	"sync/atomic"
)

// IngestStats counts ingest outcomes. Counters are updated concurrently by
// readers and the writer.
type IngestStats struct {
	archives       atomic.Int64
	failedArchives atomic.Int64
	parsed         atomic.Int64
	dropped        atomic.Int64
	created        atomic.Int64
	merged         atomic.Int64
}

func (s *IngestStats) Archives() int64       { return s.archives.Load() }
func (s *IngestStats) FailedArchives() int64 { return s.failedArchives.Load() }
func (s *IngestStats) Parsed() int64         { return s.parsed.Load() }
func (s *IngestStats) Dropped() int64        { return s.dropped.Load() }
func (s *IngestStats) Created() int64        { return s.created.Load() }
func (s *IngestStats) Merged() int64         { return s.merged.Load() }

// Written returns the number of items that reached the store.
func (s *IngestStats) Written() int64 { return s.Created() + s.Merged() }

func (s *IngestStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("archives", s.Archives()),
		slog.Int64("failed_archives", s.FailedArchives()),
		slog.Int64("parsed", s.Parsed()),
		slog.Int64("dropped", s.Dropped()),
		slog.Int64("created", s.Created()),
		slog.Int64("merged", s.Merged()),
	)
}

// PostprocessStats counts postprocess outcomes.
type PostprocessStats struct {
	visited atomic.Int64
	saved   atomic.Int64
	deleted atomic.Int64
	dropped atomic.Int64
	errors  atomic.Int64
	missing atomic.Int64
}

func (s *PostprocessStats) Visited() int64 { return s.visited.Load() }
func (s *PostprocessStats) Saved() int64   { return s.saved.Load() }
func (s *PostprocessStats) Deleted() int64 { return s.deleted.Load() }

// Dropped and Errors break Deleted down by cause.
func (s *PostprocessStats) Dropped() int64 { return s.dropped.Load() }
func (s *PostprocessStats) Errors() int64  { return s.errors.Load() }

// Missing counts ids whose job vanished between the query and the fetch.
func (s *PostprocessStats) Missing() int64 { return s.missing.Load() }

func (s *PostprocessStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("visited", s.Visited()),
		slog.Int64("saved", s.Saved()),
		slog.Int64("deleted", s.Deleted()),
		slog.Int64("dropped", s.Dropped()),
		slog.Int64("errors", s.Errors()),
		slog.Int64("missing", s.Missing()),
	)
}
