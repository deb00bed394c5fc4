package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/club-kit/credit-service/internal/api/http"
	"github.com/club-kit/credit-service/internal/api/http/handlers"
	"github.com/club-kit/credit-service/internal/auth"
	"github.com/club-kit/credit-service/internal/config"
	"github.com/club-kit/credit-service/internal/events"
	"github.com/club-kit/credit-service/internal/observability"
	"github.com/club-kit/credit-service/internal/persistence"
	"github.com/club-kit/credit-service/internal/repository"
	"github.com/club-kit/credit-service/internal/service"
	"github.com/club-kit/credit-service/internal/worker"
)

type stores struct {
	users    repository.UserRepository
	settings repository.SettingsRepository
	recovery repository.RecoveryRequestRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pg *persistence.Postgres
	var repos stores
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = stores{
			users:    repository.NewUserRepository(pg.Pool),
			settings: repository.NewSettingsRepository(pg.Pool),
			recovery: repository.NewRecoveryRequestRepository(pg.Pool),
		}
	default:
		logger.Warn("using in-memory store; data is lost on restart")
		repos = stores{
			users:    repository.NewMemoryUserRepository(),
			settings: repository.NewMemorySettingsRepository(),
			recovery: repository.NewMemoryRecoveryRequestRepository(),
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics(cfg.App.Name)
	dispatcher := events.NewInMemoryDispatcher()

	var sink service.EventSink
	var forwarder *worker.EventForwarder
	if redis != nil {
		forwarder = worker.NewEventForwarder(events.NewRedisPublisher(redis.Client, cfg.Redis.EventsChannel), logger, 0)
		go forwarder.Run(ctx)
		sink = forwarder
	}
	service.NewNotificationService(dispatcher, logger, sink).RegisterHandlers()

	credits, err := service.NewCreditService(ctx, service.CreditDependencies{
		UserRepo:     repos.users,
		SettingsRepo: repos.settings,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	}, cfg.Credits.Settings())
	if err != nil {
		logger.Fatal("failed to init credit service", zap.Error(err))
	}
	if changed, err := credits.Reconcile(ctx); err != nil {
		logger.Fatal("startup reconciliation failed", zap.Error(err))
	} else if changed > 0 {
		logger.Info("startup reconciliation rewrote statuses", zap.Int("users", changed))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	members := service.NewMemberService(credits, repos.users, tokens, logger, service.MemberOptions{
		SeedCredits:      cfg.Credits.SeedCredits,
		ApprovalRequired: cfg.Members.ApprovalRequired,
		BcryptCost:       cfg.Auth.BcryptCost,
	})
	if _, created, err := members.EnsureLeader(ctx, cfg.Members.LeaderName, cfg.Members.LeaderEmail, cfg.Members.LeaderPassword); err != nil {
		logger.Fatal("failed to bootstrap leader", zap.Error(err))
	} else if created {
		logger.Info("bootstrap leader account created", zap.String("email", cfg.Members.LeaderEmail))
	}
	recovery := service.NewRecoveryService(credits, repos.recovery, logger)
	analytics := service.NewAnalyticsService(credits)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	probes := []handlers.Probe{{Name: "redis", Check: redis.Ping, Optional: true}}
	if pg != nil {
		probes = append(probes, handlers.Probe{Name: "postgres", Check: pg.Ping})
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes...),
		Auth:           handlers.NewAuthHandler(members, credits),
		Me:             handlers.NewMeHandler(credits, recovery),
		Members:        handlers.NewMembersHandler(credits, members),
		Settings:       handlers.NewSettingsHandler(credits),
		Analytics:      handlers.NewAnalyticsHandler(analytics),
		Recovery:       handlers.NewRecoveryHandler(recovery),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.users),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	if forwarder != nil {
		<-forwarder.Done()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
