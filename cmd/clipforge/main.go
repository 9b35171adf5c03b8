package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clipforge/clipforge/internal/ai"
	"github.com/clipforge/clipforge/internal/api"
	"github.com/clipforge/clipforge/internal/auth"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/db"
	"github.com/clipforge/clipforge/internal/ffmpeg"
	"github.com/clipforge/clipforge/internal/jobs"
	"github.com/clipforge/clipforge/internal/media"
	"github.com/clipforge/clipforge/internal/progress"
	"github.com/clipforge/clipforge/internal/repository"
	"github.com/clipforge/clipforge/internal/scheduler"
	"github.com/clipforge/clipforge/internal/version"
	"github.com/clipforge/clipforge/internal/watcher"
)

func main() {
	ver := version.Load()
	log.Printf("ClipForge %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)

	if err := os.MkdirAll(cfg.TmpDir, 0o755); err != nil {
		log.Fatalf("tmp dir: %v", err)
	}

	runs := repository.NewPipelineRepository(database.DB)
	costs := repository.NewCostRepository(database.DB)
	settings := repository.NewSettingsRepository(database.DB)

	broker := progress.NewRedisBroker(cfg.RedisAddr)
	defer broker.Close()

	queue := jobs.NewQueue(cfg.RedisAddr, cfg.Concurrency)

	codec := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	source := media.NewLocalSource(cfg.TmpDir, cfg.SampleVideoPath, cfg.WatchDir)

	if !cfg.MockAI {
		log.Println("warning: no AI provider configured, running with stub scoring")
	}
	scorer := ai.NewRateLimitedScorer(ai.NewStubScorer(), cfg.ScorerRPM, 1)
	var (
		transcriber jobs.Transcriber       = ai.StubTranscriber{}
		regions     jobs.RegionFinder      = ai.StubRegionFinder{}
		tracker     jobs.SubjectTracker    = ai.StubTracker{}
		publisher   jobs.PlatformPublisher = ai.StubPublisher{}
	)

	ingest := jobs.NewIngestHandler(source, codec, transcriber, regions,
		queue, broker, runs, costs, cfg.TmpDir, cfg.RegionPadding)
	analyze := jobs.NewAnalyzeHandler(scorer, queue, broker, runs, costs, cfg.TmpDir)
	clip := jobs.NewClipHandler(codec, tracker, queue, broker, runs, costs)
	publish := jobs.NewPublishHandler(publisher, broker, runs)
	jobs.RegisterHandlers(queue, ingest, analyze, clip, publish)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go func() {
		if err := queue.Start(workerCtx); err != nil {
			log.Fatalf("worker error: %v", err)
		}
	}()

	if cfg.WatchDir != "" {
		if err := os.MkdirAll(cfg.WatchDir, 0o755); err != nil {
			log.Fatalf("watch dir: %v", err)
		}
		dropWatcher, err := watcher.New(cfg.WatchDir, func(videoID, path string) {
			payload := jobs.IngestPayload{Stage: jobs.StageIngest, VideoID: videoID}
			_, err := queue.EnqueueUnique(jobs.TaskIngest, payload, jobs.IngestDedupKey(videoID),
				asynq.Queue(jobs.QueueIngest), asynq.MaxRetry(3), asynq.Timeout(2*time.Hour))
			if err != nil {
				log.Printf("watcher: failed to enqueue ingest for %s: %v", videoID, err)
			}
		})
		if err != nil {
			log.Fatalf("drop folder watcher: %v", err)
		}
		if err := dropWatcher.Start(); err != nil {
			log.Fatalf("drop folder watcher: %v", err)
		}
		defer dropWatcher.Stop()
	}

	maintenance := scheduler.NewMaintenance(runs, cfg.TmpDir,
		time.Duration(cfg.TmpRetentionMin)*time.Minute)
	if err := maintenance.Start(); err != nil {
		log.Fatalf("maintenance scheduler: %v", err)
	}

	authService := auth.New(cfg.JWTSecret, cfg.APIKeyHash)
	srv := api.NewServer(cfg, authService, queue, broker, runs, costs, settings)

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	maintenance.Stop()
	queue.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}
