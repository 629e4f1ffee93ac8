package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/routewise/routewise/internal/app"
	"github.com/routewise/routewise/internal/assignments"
	"github.com/routewise/routewise/internal/audit"
	"github.com/routewise/routewise/internal/batch"
	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/changes"
	"github.com/routewise/routewise/internal/overrides"
	"github.com/routewise/routewise/internal/platform/cache"
	"github.com/routewise/routewise/internal/platform/db"
	"github.com/routewise/routewise/internal/resolver"
	"github.com/routewise/routewise/internal/shared"
	"github.com/routewise/routewise/internal/templates"
	"github.com/routewise/routewise/internal/users"
	"github.com/routewise/routewise/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Warn("redis unavailable, permission cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	cat := catalog.Default()
	roleMeta := shared.NewRoleMetaRegistry()
	auditLogger := shared.NewAuditLogger(pool)
	permCache := resolver.NewCache(redisClient, cfg.PermissionCacheTTL)

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo)

	templateRepo := templates.NewRepository(pool)
	templateService := templates.NewService(templateRepo, cat)

	overrideRepo := overrides.NewRepository(pool)
	overrideService := overrides.NewService(logger, overrideRepo, userService, cat, permCache)

	assignmentRepo := assignments.NewRepository(pool)
	assignmentService := assignments.NewService(assignmentRepo, permCache)

	resolverService := resolver.NewService(logger, userService, templateService, overrideService, cat, permCache)

	batchRepo := batch.NewRepository(pool)
	batchService := batch.NewService(logger, batchRepo, templateService, permCache)

	changeService := changes.NewService(logger, overrideService, overrideRepo, userRepo, assignmentService, templateService, cat, auditLogger, permCache)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)

	var jobsHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobsHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		CatalogHandler:     catalog.NewHandler(cat),
		TemplatesHandler:   templates.NewHandler(logger, templateService),
		UsersHandler:       users.NewHandler(logger, userService, roleMeta),
		OverridesHandler:   overrides.NewHandler(logger, overrideService),
		ResolverHandler:    resolver.NewHandler(logger, resolverService),
		AssignmentsHandler: assignments.NewHandler(logger, assignmentService),
		BatchHandler:       batch.NewHandler(logger, batchService),
		ChangesHandler:     changes.NewHandler(logger, changeService),
		AuditHandler:       audit.NewHandler(logger, auditService),
		JobsHandler:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	// Staged change sets live in process memory; sweep them here rather
	// than in the worker.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := changeService.Sweep(now.UTC()); n > 0 {
					logger.Info("stale change sets dropped", slog.Int("count", n))
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
