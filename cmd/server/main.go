package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"codearena/internal/api"
	"codearena/internal/app/service"
	"codearena/internal/app/worker"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"
	"codearena/internal/judge/language"
	"codearena/internal/judge/sandbox"
	"codearena/internal/platform/config"
	"codearena/internal/platform/database"
	"codearena/internal/platform/queue"
	"codearena/internal/seed"
)

func main() {
	config.Load()
	cfg := config.AppConfig

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	var contestRepo repository.ContestRepository
	var submissionRepo repository.SubmissionRepository
	switch cfg.Store {
	case "postgres":
		db, err := database.Connect(cfg.DBConnStr)
		if err != nil {
			logger.Fatal("database connect failed", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("database migrate failed", zap.Error(err))
		}
		contestRepo = repository.NewPgContestRepository(db)
		submissionRepo = repository.NewPgSubmissionRepository(db)
	case "memory":
		contestRepo = repository.NewMemContestRepository()
		submissionRepo = repository.NewMemSubmissionRepository()
		// The in-memory store starts empty; give it the sample contest.
		if err := seed.Apply(ctx, contestRepo, cfg.DefaultTimeLimitSeconds, cfg.DefaultMemoryLimitMB); err != nil {
			logger.Fatal("seed failed", zap.Error(err))
		}
	default:
		logger.Fatal("unknown store backend", zap.String("store", cfg.Store))
	}

	// Submission queue
	var q queue.Queue
	switch cfg.Queue {
	case "redis":
		rdb, err := queue.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("redis connect failed", zap.Error(err))
		}
		defer rdb.Close()
		q = queue.NewRedisQueue(rdb, cfg.QueueName)
	case "memory":
		q = queue.NewMemoryQueue()
	default:
		logger.Fatal("unknown queue backend", zap.String("queue", cfg.Queue))
	}

	// Judge pipeline
	specs, err := language.Registry(cfg.LanguageCommands)
	if err != nil {
		logger.Fatal("language config invalid", zap.Error(err))
	}
	var executor sandbox.Executor
	switch cfg.SandboxBackend {
	case "docker":
		executor = sandbox.NewDockerExecutor(cfg.SandboxRootDir, cfg.SandboxDockerImage,
			cfg.SandboxDockerCPUs, cfg.MaxOutputBytes, logger)
	case "local":
		executor = sandbox.NewLocalExecutor(cfg.SandboxRootDir, cfg.MaxOutputBytes,
			cfg.SandboxNetIsolation, logger)
	default:
		logger.Fatal("unknown sandbox backend", zap.String("sandbox", cfg.SandboxBackend))
	}
	engine := judge.NewEngine(specs, executor, cfg.DefaultTimeLimitSeconds, cfg.DefaultMemoryLimitMB, logger)

	pool := worker.NewPool(q, submissionRepo, contestRepo, engine,
		cfg.WorkerCount,
		time.Duration(cfg.RunningStaleSeconds)*time.Second,
		time.Duration(cfg.ReclaimIntervalSeconds)*time.Second,
		logger)
	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		if err := pool.Start(ctx); err != nil {
			logger.Error("worker pool stopped", zap.Error(err))
		}
	}()

	// HTTP API
	supported := make([]string, 0, len(specs))
	for tag := range specs {
		supported = append(supported, tag)
	}
	contestService := service.NewContestService(contestRepo, submissionRepo, logger)
	submissionService := service.NewSubmissionService(contestRepo, submissionRepo, q, supported, logger)
	router := api.NewRouter(contestService, submissionService)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.APIPort),
			zap.String("store", cfg.Store),
			zap.String("queue", cfg.Queue),
			zap.Int("workers", cfg.WorkerCount),
			zap.Strings("languages", supported))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	select {
	case <-poolDone:
	case <-time.After(maxDrainWait()):
		logger.Warn("worker pool did not drain in time")
	}
	logger.Info("stopped")
}

// maxDrainWait bounds how long shutdown waits for in-flight judging;
// a run can legitimately take up to a problem's full time limit.
func maxDrainWait() time.Duration {
	if cfg := config.AppConfig; cfg != nil && cfg.DefaultTimeLimitSeconds > 0 {
		return time.Duration(cfg.DefaultTimeLimitSeconds)*time.Second + 10*time.Second
	}
	return 30 * time.Second
}
