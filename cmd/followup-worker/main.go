package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/careloop/clinic-scheduling/internal/config"
	"github.com/careloop/clinic-scheduling/internal/db"
	"github.com/careloop/clinic-scheduling/internal/logging"
	"github.com/careloop/clinic-scheduling/internal/metrics"
	"github.com/careloop/clinic-scheduling/internal/redisclient"
	"github.com/careloop/clinic-scheduling/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("followup-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("followup-worker configured",
		"env", cfg.Env,
		"interval", cfg.WorkerInterval.String(),
		"no_show_grace", cfg.NoShowGrace.String(),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	logger.Info("connected to postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", "err", err)
		}
	}()
	logger.Info("connected to redis")

	registry := prometheus.NewRegistry()
	schedMetrics := metrics.NewSchedulingMetrics(registry)

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	svc := scheduling.NewService(repo, locker, scheduling.ServiceOptions{
		CancelWindow: cfg.CancelWindow,
		MinReasonLen: cfg.MinReasonLen,
		Notifier:     scheduling.LogNotifier{Logger: logger},
		Logger:       logger,
		Metrics:      schedMetrics,
	})

	// Run once at startup
	runOnce(rootCtx, svc, cfg.NoShowGrace, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping followup worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.NoShowGrace, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.Service, grace time.Duration, logger *logging.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	marked, err := svc.SweepNoShows(runCtx, grace)
	if err != nil {
		logger.Error("no-show sweep error", "err", err)
		return
	}
	logger.Info("no-show sweep complete", "marked", marked, "duration", time.Since(start).String())
}
