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
	"golang.org/x/sync/errgroup"

	"github.com/sipaten-app/sipaten/internal/app"
	"github.com/sipaten-app/sipaten/internal/audit"
	"github.com/sipaten-app/sipaten/internal/auth"
	"github.com/sipaten-app/sipaten/internal/notify"
	"github.com/sipaten-app/sipaten/internal/observability"
	"github.com/sipaten-app/sipaten/internal/platform/cache"
	"github.com/sipaten-app/sipaten/internal/platform/db"
	"github.com/sipaten-app/sipaten/internal/refdata"
	"github.com/sipaten-app/sipaten/internal/shared"
	"github.com/sipaten-app/sipaten/internal/tagihan"
	"github.com/sipaten-app/sipaten/jobs"
)

func main() {
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

	sessionManager := shared.NewSessionManager(redisClient, "sipaten_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, cfg.SessionTTL)
	authMiddleware := auth.NewMiddleware(logger, authService)

	refdataRepo := refdata.NewRepository(pool)
	refdataService := refdata.NewService(refdataRepo)
	refdataHandler := refdata.NewHandler(logger, refdataService)

	metrics := observability.NewMetrics()
	auditLogger := audit.NewLogger(pool)
	notifier := notify.NewAsynqNotifier(asynqClient, logger)
	publisher := tagihan.NewPublisher(64)

	tagihanRepo := tagihan.NewRepository(pool)
	tagihanService := tagihan.NewService(tagihanRepo, refdataService, notifier, auditLogger, publisher, metrics, logger)
	tagihanHandler := tagihan.NewHandler(logger, tagihanService, auditLogger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		TagihanHandler: tagihanHandler,
		RefdataHandler: refdataHandler,
		JobsHandler:    jobsHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		events, cancel := publisher.Subscribe()
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-events:
				logger.Info("tagihan event",
					slog.String("document_id", ev.DocumentID.String()),
					slog.String("status", string(ev.NewStatus)),
					slog.String("actor", ev.ActorName))
			}
		}
	})

	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
