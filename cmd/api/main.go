package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/api/dto"
	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/keylock"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/repository/memory"
	mongostore "github.com/spec-kit/auth-service/internal/repository/mongo"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

// stores groups the repositories selected by STORE_DRIVER.
type stores struct {
	accounts repository.AccountRepository
	roles    repository.RoleRepository
	audit    repository.AuditRepository
	probe    handlers.Pinger
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer st.close()

	deps := map[string]handlers.Pinger{cfg.Store.Driver: st.probe}

	var locker keylock.Locker = keylock.Noop{}
	switch cfg.Auth.RegistrationLock {
	case config.RegistrationLockLocal:
		locker = keylock.NewLocal()
	case config.RegistrationLockRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		locker = keylock.NewRedis(redis.Client, cfg.Auth.RegistrationLockTTL(), logger.Named("keylock"))
		deps["redis"] = redis
	}

	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to init password hasher", zap.Error(err))
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL())

	auditDispatcher := worker.NewAuditDispatcher(st.audit, logger.Named("audit"), metrics, worker.AuditOptions{
		Workers:        cfg.Audit.Workers,
		QueueSize:      cfg.Audit.QueueSize,
		OverflowPolicy: cfg.Audit.OverflowPolicy,
		EnqueueTimeout: cfg.Audit.EnqueueTimeout(),
		WriteTimeout:   cfg.Audit.WriteTimeout(),
	})
	auditDispatcher.Start(ctx)

	authService := service.NewAuthService(service.Dependencies{
		Accounts: st.accounts,
		Roles: service.NewRoleResolver(st.roles, service.RolePolicy{
			UnknownRoles: cfg.Auth.UnknownRolePolicy,
			MissingRoles: cfg.Auth.MissingRolesPolicy,
			Defaults:     cfg.Auth.DefaultRoles,
		}, logger.Named("roles"), metrics),
		Hasher:   hasher,
		Tokens:   tokens,
		Audit:    auditDispatcher,
		Locker:   locker,
		Logger:   logger.Named("auth"),
		Metrics:  metrics,
		TokenTTL: cfg.Auth.AccessTokenTTL(),
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Auth:           handlers.NewAuthHandler(authService, dto.NewValidator()),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Gatherer:       registry,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Audit.ShutdownTimeout())
	defer drainCancel()
	if err := auditDispatcher.Shutdown(drainCtx); err != nil {
		logger.Warn("audit queue not drained", zap.Int("pending", auditDispatcher.Pending()), zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, m.Database); err != nil {
			m.Close(context.Background())
			return nil, err
		}
		return &stores{
			accounts: mongostore.NewAccountRepository(m.Database),
			roles:    mongostore.NewRoleRepository(m.Database),
			audit:    mongostore.NewAuditRepository(m.Database),
			probe:    m,
			close:    func() { m.Close(context.Background()) },
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		mem := memory.NewStore()
		return &stores{
			accounts: mem.Accounts(),
			roles:    mem.Roles(),
			audit:    mem.Audit(),
			probe:    mem,
			close:    func() {},
		}, nil
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, err
		}
	}
	return &stores{
		accounts: repository.NewAccountRepository(pg.Pool),
		roles:    repository.NewRoleRepository(pg.Pool),
		audit:    repository.NewAuditRepository(pg.Pool),
		probe:    pg,
		close:    pg.Close,
	}, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
