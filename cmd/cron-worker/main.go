package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/travelmarket/tourism-backend/internal/cron"
	"github.com/travelmarket/tourism-backend/internal/engine"
	"github.com/travelmarket/tourism-backend/pkg/config"
	"github.com/travelmarket/tourism-backend/pkg/db"
	"github.com/travelmarket/tourism-backend/pkg/instance"
	"github.com/travelmarket/tourism-backend/pkg/logger"
	"github.com/travelmarket/tourism-backend/pkg/metrics"
	"github.com/travelmarket/tourism-backend/pkg/migrate"
	"github.com/travelmarket/tourism-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	eng, err := engine.New(dbClient, cfg.Stock, logg, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to wire stock engine", err)
		os.Exit(1)
	}

	service, err := buildService(cfg, logg, dbClient, redisClient, eng)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"once":     *once,
	})
	logg.Info(ctx, "starting cron worker")

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, eng *engine.Engine) (*cron.Service, error) {
	reconcile, err := cron.NewStockReconcileJob(cron.StockReconcileJobParams{
		Logger:    logg,
		DB:        dbClient,
		Stock:     eng.Stock,
		Metrics:   eng.StockMetrics,
		BatchSize: cfg.Cron.ReconcileBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("stock reconcile job: %w", err)
	}

	expiry, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:  logg,
		Pending: eng.OrdersRepo,
		Orders:  eng.Orders,
		TTL:     cfg.Cron.OrderTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("order expiry job: %w", err)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg)), cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reconcile, expiry),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
}

func lockName(cfg *config.Config) string {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", cfg.Cron.LockKey, env)
}
