package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const (
	sinceAuto = "auto"
	sinceAll  = "all"
)

type rawCfg struct {
	// Storage and pipelines
	DBPath        string `long:"db-path" env:"DB_PATH" default:"./data/jobs.db" description:"SQLite database file"`
	ArchivesDir   string `long:"archives-dir" env:"ARCHIVES_DIR" default:"./archives" description:"Directory with scraped archives laid out as YYYY/MM/DD/*.jsonl.gz"`
	PipelinesFile string `long:"pipelines" env:"PIPELINES_FILE" default:"./pipelines.yml" description:"Pipeline stages configuration file"`
	WorkerCount   int    `long:"worker-count" env:"WORKER_COUNT" default:"0" description:"Number of readers and postprocessors (0 means one per CPU)"`
	QueueSize     int    `long:"queue-size" env:"QUEUE_SIZE" default:"1000" description:"Capacity of the queues between readers and the writer"`
	Since         string `long:"since" env:"SINCE" default:"auto" description:"Ingest archives from this date on: YYYY-MM-DD, auto (newest stored job) or all"`

	// HTTP server
	Port         string        `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string        `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://jobs.example.com)"`
	APIAccessKey string        `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	RedisURL     string        `long:"redis-url" env:"REDIS_URL" description:"Redis URL for the feed cache (optional)"`
	FeedCacheTTL time.Duration `long:"feed-cache-ttl" env:"FEED_CACHE_TTL" default:"10m" description:"How long a rendered feed is cached"`
	FeedSize     int           `long:"feed-size" env:"FEED_SIZE" default:"100" description:"Number of jobs in the RSS feed"`
	SyncSchedule string        `long:"sync-schedule" env:"SYNC_SCHEDULE" default:"@every 6h" description:"Cron spec for periodic sync in serve mode (empty disables)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Prague)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Args struct {
		Command string   `positional-arg-name:"command" description:"ingest, postprocess, sync or serve (default)"`
		Paths   []string `positional-arg-name:"archive" description:"Archives to ingest instead of scanning --archives-dir"`
	} `positional-args:"yes"`
}

var commands = []Command{CommandIngest, CommandPostprocess, CommandSync, CommandServe}

func Load() (*Cfg, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Command:       Command(cmp.Or(raw.Args.Command, string(CommandServe))),
		Paths:         raw.Args.Paths,
		DBPath:        raw.DBPath,
		ArchivesDir:   raw.ArchivesDir,
		PipelinesFile: raw.PipelinesFile,
		WorkerCount:   raw.WorkerCount,
		QueueSize:     raw.QueueSize,
		Port:          raw.Port,
		BaseUrl:       raw.BaseUrl,
		APIAccessKey:  raw.APIAccessKey,
		RedisURL:      raw.RedisURL,
		FeedCacheTTL:  raw.FeedCacheTTL,
		FeedSize:      raw.FeedSize,
		SyncSchedule:  raw.SyncSchedule,
		Timezone:      raw.Timezone,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	if err := validate(cfg, raw.Since); err != nil {
		return nil, err
	}

	if cfg.BaseUrl == "" {
		cfg.BaseUrl = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg, since string) error {
	if !slices.Contains(commands, cfg.Command) {
		return fmt.Errorf("unknown command %q, expected one of %v", cfg.Command, commands)
	}

	if len(cfg.Paths) > 0 && cfg.Command != CommandIngest {
		return fmt.Errorf("archive paths are only accepted by the %s command", CommandIngest)
	}

	if cfg.WorkerCount < 0 {
		return fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}

	if cfg.QueueSize < 1 {
		return fmt.Errorf("queue size must be positive, got %d", cfg.QueueSize)
	}

	if cfg.FeedSize < 1 {
		return fmt.Errorf("feed size must be positive, got %d", cfg.FeedSize)
	}

	switch since {
	case sinceAuto:
		cfg.Resume = true
	case sinceAll, "":
	default:
		date, err := time.Parse(time.DateOnly, since)
		if err != nil {
			return fmt.Errorf("invalid since date %q: expected YYYY-MM-DD, %s or %s", since, sinceAuto, sinceAll)
		}
		cfg.Since = date
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
