package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/routewise/routewise/internal/app"
	"github.com/routewise/routewise/internal/audit"
	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/overrides"
	"github.com/routewise/routewise/internal/platform/cache"
	"github.com/routewise/routewise/internal/platform/db"
	"github.com/routewise/routewise/internal/resolver"
	"github.com/routewise/routewise/internal/templates"
	"github.com/routewise/routewise/internal/users"
	"github.com/routewise/routewise/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	cat := catalog.Default()
	permCache := resolver.NewCache(redisClient, cfg.PermissionCacheTTL)

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo)
	templateService := templates.NewService(templates.NewRepository(pool), cat)
	overrideService := overrides.NewService(logger, overrides.NewRepository(pool), userService, cat, permCache)
	resolverService := resolver.NewService(logger, userService, templateService, overrideService, cat, permCache)
	auditService := audit.NewService(audit.NewRepository(pool))

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	retentionTask, err := jobs.NewAuditRetentionTask(jobs.AuditRetentionPayload{})
	if err != nil {
		logger.Error("build retention task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditRetention, Handler: jobs.NewAuditRetentionHandler(auditService, cfg.AuditRetention, logger)},
			{Type: jobs.TaskPermissionWarmup, Handler: jobs.NewPermissionWarmupHandler(userService, resolverService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: retentionTask},
			{Spec: "*/30 * * * *", Task: jobs.NewPermissionWarmupTask()},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
