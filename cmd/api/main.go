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

	httptransport "github.com/spec-kit/escalation-engine/internal/api/http"
	"github.com/spec-kit/escalation-engine/internal/api/http/handlers"
	"github.com/spec-kit/escalation-engine/internal/auth"
	"github.com/spec-kit/escalation-engine/internal/config"
	"github.com/spec-kit/escalation-engine/internal/notify"
	"github.com/spec-kit/escalation-engine/internal/observability"
	"github.com/spec-kit/escalation-engine/internal/persistence"
	"github.com/spec-kit/escalation-engine/internal/repository"
	"github.com/spec-kit/escalation-engine/internal/service"
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

	var pg *persistence.Postgres
	var rdb *persistence.Redis

	switch cfg.Snapshot.Backend {
	case "postgres":
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
	case "redis":
		rdb = persistence.NewRedis(cfg.Redis, logger)
		defer rdb.Close()
	}

	var snapshots repository.SnapshotRepository
	switch {
	case pg != nil && pg.PoolHandle() != nil:
		snapshots = repository.NewPostgresSnapshotRepository(pg.PoolHandle())
	case rdb != nil:
		snapshots = repository.NewRedisSnapshotRepository(rdb.Client)
	default:
		logger.Info("running without snapshot persistence")
	}

	metrics := observability.NewMetrics()

	notifier := notify.NewNotifier(cfg.Notify.Timeout(), logger, metrics)
	for _, endpoint := range cfg.Notify.Endpoints {
		notifier.Register(endpoint.URL, endpoint.Events)
	}

	store := service.NewTicketStore(cfg.SLA, cfg.Assignment, service.TicketStoreDependencies{
		Notifier:  notifier,
		Snapshots: snapshots,
		Logger:    logger,
		Metrics:   metrics,
	})
	engine := service.NewRuleEngine(service.RuleEngineDependencies{
		Store:     store,
		Notifier:  notifier,
		Snapshots: snapshots,
		Logger:    logger,
	})
	restoreState(ctx, snapshots, store, engine, logger)

	metricsService := service.NewMetricsService(store)

	authService, err := service.NewAuthService(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to init auth", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	monitor := service.NewSLAMonitor(store, cfg.Monitor.Interval(), logger)
	monitor.Start(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Auth:           handlers.NewAuthHandler(authService),
		Signals:        handlers.NewSignalsHandler(engine),
		Tickets:        handlers.NewTicketsHandler(store),
		Agents:         handlers.NewAgentsHandler(store),
		Rules:          handlers.NewRulesHandler(engine),
		Metrics:        handlers.NewMetricsHandler(metricsService, store, metrics),
		Webhooks:       handlers.NewWebhooksHandler(notifier),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	monitor.Stop()
	notifier.Close(cfg.Notify.ShutdownGrace())
	saveState(snapshots, store, engine, logger)
}

// restoreState loads persisted tickets, agents and rules. A fresh install
// gets the default rule set.
func restoreState(ctx context.Context, snapshots repository.SnapshotRepository, store *service.TicketStore, engine *service.RuleEngine, logger *zap.Logger) {
	if snapshots == nil {
		engine.ReplaceRules(service.DefaultRules())
		return
	}

	loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	tickets, err := snapshots.LoadTickets(loadCtx)
	if err != nil {
		logger.Error("load ticket snapshot", zap.Error(err))
	}
	agents, err := snapshots.LoadAgents(loadCtx)
	if err != nil {
		logger.Error("load agent snapshot", zap.Error(err))
	}
	store.Restore(tickets, agents)

	rules, err := snapshots.LoadRules(loadCtx)
	if err != nil {
		logger.Error("load rule snapshot", zap.Error(err))
	}
	if len(rules) == 0 {
		rules = service.DefaultRules()
	}
	engine.ReplaceRules(rules)

	logger.Info("state restored",
		zap.Int("tickets", len(tickets)),
		zap.Int("agents", len(agents)),
		zap.Int("rules", len(rules)))
}

// saveState writes a final snapshot before exit.
func saveState(snapshots repository.SnapshotRepository, store *service.TicketStore, engine *service.RuleEngine, logger *zap.Logger) {
	if snapshots == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	tickets, agents := store.Snapshot()
	if err := snapshots.SaveTickets(ctx, tickets); err != nil {
		logger.Error("save ticket snapshot", zap.Error(err))
	}
	if err := snapshots.SaveAgents(ctx, agents); err != nil {
		logger.Error("save agent snapshot", zap.Error(err))
	}
	if err := snapshots.SaveRules(ctx, engine.ListRules()); err != nil {
		logger.Error("save rule snapshot", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
