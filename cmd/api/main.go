package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/identity-service/internal/api/http"
	"github.com/spec-kit/identity-service/internal/api/http/handlers"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/limiter"
	"github.com/spec-kit/identity-service/internal/notify"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/persistence"
	"github.com/spec-kit/identity-service/internal/repository"
	"github.com/spec-kit/identity-service/internal/service"
	"github.com/spec-kit/identity-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dependencies := map[string]handlers.Pinger{}

	var accounts repository.AccountRepository
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		db, err := persistence.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite", zap.Error(err))
		}
		defer db.Close()

		if err := persistence.RunMigrations(ctx, db.DB, config.StoreDriverSQLite, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		accounts = repository.NewSQLiteAccountRepository(db.DB)
		dependencies["sqlite"] = db
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			sqlDB := pg.SQLDB()
			if err := persistence.RunMigrations(ctx, sqlDB, config.StoreDriverPostgres, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		accounts = repository.NewPostgresAccountRepository(pg.PoolHandle())
		dependencies["postgres"] = pg
	}

	var attempts *limiter.AttemptLimiter
	if cfg.Throttle.Enabled {
		redis := persistence.NewThrottleRedis(ctx, cfg.Redis, logger)
		defer redis.Close()

		attempts = redis.Limiter(cfg.Throttle)
		dependencies["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, newMailer(cfg, logger), logger, cfg.Notification.Timeout())
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Accounts:   accounts,
		Limiter:    attempts,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	adminService := service.NewAdminService(*cfg, accounts, dispatcher, logger)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accounts, cfg.Store.Timeout())

	cookie := auth.CookieConfig{
		Secure:   cfg.Auth.CookieSecure,
		SameSite: cfg.Auth.CookieSameSite,
		TTL:      cfg.Auth.SessionTTL(),
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:               handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Auth:                 handlers.NewAuthHandler(authService, cookie),
		Admin:                handlers.NewAdminHandler(authService, adminService, cookie),
		AuthMiddleware:       authMiddleware,
		AdminRegistrationKey: cfg.Auth.AdminRegistrationKey,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func newMailer(cfg *config.Config, logger *zap.Logger) notify.Mailer {
	if cfg.Notification.SMTPAddr == "" {
		logger.Info("no smtp relay configured; mail is logged only")
		return notify.NewLogMailer(cfg.Notification.EmailFrom, logger)
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Addr:      cfg.Notification.SMTPAddr,
		User:      cfg.Notification.SMTPUser,
		Password:  cfg.Notification.SMTPPassword,
		From:      cfg.Notification.EmailFrom,
		TLSPolicy: cfg.Notification.SMTPTLS,
	})
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
