package cfg

import "time"

type Command string

const (
	CommandIngest      Command = "ingest"
	CommandPostprocess Command = "postprocess"
	CommandSync        Command = "sync"
	CommandServe       Command = "serve"
)

type Cfg struct {
	Command Command
	Paths   []string

	// Storage and pipelines
	DBPath        string
	ArchivesDir   string
	PipelinesFile string
	WorkerCount   int
	QueueSize     int
	Since         time.Time // zero means all archives
	Resume        bool      // since=auto

	// HTTP server
	Port         string
	BaseUrl      string
	APIAccessKey string
	RedisURL     string
	FeedCacheTTL time.Duration
	FeedSize     int
	SyncSchedule string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
