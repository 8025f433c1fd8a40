package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/jobs-comb/app/api"
	"github.com/lysyi3m/jobs-comb/app/cache"
	"github.com/lysyi3m/jobs-comb/app/cfg"
	"github.com/lysyi3m/jobs-comb/app/database"
	"github.com/lysyi3m/jobs-comb/app/feed"
	"github.com/lysyi3m/jobs-comb/app/pipeline"
	"github.com/lysyi3m/jobs-comb/app/scraped"
	"github.com/lysyi3m/jobs-comb/app/stages"
	"github.com/lysyi3m/jobs-comb/app/tasks"
)

type app struct {
	cfg         *cfg.Cfg
	jobRepo     database.JobRepository
	ingest      []pipeline.Stage
	postprocess []pipeline.Stage
}

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if appCfg == nil {
		// help was shown
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Command failed", "command", appCfg.Command, "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Jobs Comb", "version", appCfg.Version, "command", appCfg.Command)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Debug("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	pipelines, err := stages.LoadConfig(appCfg.PipelinesFile)
	if err != nil {
		return err
	}

	ingest, postprocess, err := stages.Resolve(pipelines, time.Now)
	if err != nil {
		return err
	}

	a := &app{
		cfg:         appCfg,
		jobRepo:     database.NewJobRepository(db),
		ingest:      ingest,
		postprocess: postprocess,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch appCfg.Command {
	case cfg.CommandIngest:
		return a.runIngest(ctx)
	case cfg.CommandPostprocess:
		return tasks.NewPostprocessTask("cli", a.postprocess, a.jobRepo, appCfg.WorkerCount, appCfg.QueueSize).Execute(ctx)
	case cfg.CommandSync:
		return a.newSyncTask("cli").Execute(ctx)
	case cfg.CommandServe:
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown command %q", appCfg.Command)
	}
}

func (a *app) runIngest(ctx context.Context) error {
	paths, err := a.archivePaths(ctx)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		slog.Info("No archives to ingest", "dir", a.cfg.ArchivesDir)
		return nil
	}

	return tasks.NewIngestTask("cli", paths, a.ingest, a.jobRepo, a.cfg.WorkerCount, a.cfg.QueueSize).Execute(ctx)
}

// archivePaths expands the paths given on the command line, directories
// included, or scans the archives directory when there are none.
func (a *app) archivePaths(ctx context.Context) ([]string, error) {
	if len(a.cfg.Paths) == 0 {
		return tasks.DiscoverArchives(ctx, a.jobRepo, a.cfg.ArchivesDir, a.cfg.Since, a.cfg.Resume)
	}

	var paths []string
	for _, path := range a.cfg.Paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access archive: %w", err)
		}
		if !info.IsDir() {
			paths = append(paths, path)
			continue
		}

		found, err := scraped.Glob(path)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func (a *app) newSyncTask(trigger string) *tasks.SyncTask {
	return tasks.NewSyncTask(trigger, tasks.SyncOptions{
		ArchivesDir: a.cfg.ArchivesDir,
		Since:       a.cfg.Since,
		Resume:      a.cfg.Resume,
		Workers:     a.cfg.WorkerCount,
		QueueSize:   a.cfg.QueueSize,
		Ingest:      a.ingest,
		Postprocess: a.postprocess,
	}, a.jobRepo)
}

func (a *app) serve(ctx context.Context) error {
	var feedCache cache.FeedCache = cache.NoopCache{}
	if a.cfg.RedisURL != "" {
		redisCache, err := cache.NewCache(ctx, a.cfg.RedisURL)
		if err != nil {
			return err
		}
		feedCache = redisCache
	}
	defer feedCache.Close()

	newSyncTask := func(trigger string) tasks.TaskInterface {
		return a.newSyncTask(trigger).OnDone(func() {
			if err := feedCache.Invalidate(context.Background()); err != nil {
				slog.Warn("Failed to invalidate feed cache", "error", err)
			}
		})
	}

	scheduler := tasks.NewScheduler(newSyncTask, tasks.SchedulerOptions{
		Schedule: a.cfg.SyncSchedule,
		Location: time.Local,
	})
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	handler := api.NewHandler(a.jobRepo, feed.NewGenerator(a.cfg.BaseUrl, a.cfg.Version), feedCache,
		scheduler, newSyncTask, a.cfg.FeedSize, a.cfg.FeedCacheTTL)
	server := api.NewServer(handler, a.cfg.APIAccessKey, a.cfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", a.cfg.Port, "feed", a.cfg.BaseUrl+feed.FeedPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
