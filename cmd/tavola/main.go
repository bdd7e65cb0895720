package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tavola-erp/tavola-erp/internal/app"
	"github.com/tavola-erp/tavola-erp/internal/ledger/accounts"
	"github.com/tavola-erp/tavola-erp/internal/ledger/journals"
	"github.com/tavola-erp/tavola-erp/internal/ledger/statements"
	"github.com/tavola-erp/tavola-erp/internal/observability"
	"github.com/tavola-erp/tavola-erp/internal/platform/cache"
	"github.com/tavola-erp/tavola-erp/internal/platform/db"
	"github.com/tavola-erp/tavola-erp/internal/posbridge"
	"github.com/tavola-erp/tavola-erp/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, statement caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	journalsRepo := journals.NewRepository(dbpool)
	journalsService := journals.NewService(journalsRepo, accountsRepo)
	journalsHandler := journals.NewHandler(logger, journalsService)

	statementsRepo := statements.NewRepository(dbpool)
	statementsCache := statements.NewCache(redisClient, cfg.StatementCacheTTL)
	statementsService := statements.NewService(statementsRepo, statementsCache)
	statementsHandler := statements.NewHandler(logger, statementsService)

	bridgeService := posbridge.NewService(
		journalsService,
		posbridge.NewMappingRepository(dbpool),
		posbridge.NewProfitabilityRepository(dbpool),
		statementsService,
		logger,
	)
	bridgeService.WithMetrics(metrics)
	bridgeHandler := posbridge.NewHandler(logger, bridgeService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountsHandler:   accountsHandler,
		JournalsHandler:   journalsHandler,
		StatementsHandler: statementsHandler,
		POSBridgeHandler:  bridgeHandler,
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
