package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/careloop/clinic-scheduling/internal/api"
	"github.com/careloop/clinic-scheduling/internal/config"
	"github.com/careloop/clinic-scheduling/internal/db"
	"github.com/careloop/clinic-scheduling/internal/logging"
	"github.com/careloop/clinic-scheduling/internal/metrics"
	"github.com/careloop/clinic-scheduling/internal/redisclient"
	"github.com/careloop/clinic-scheduling/internal/scheduling"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("api-server configured", "env", cfg.Env, "http_port", cfg.HTTPPort)

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

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		PgPool:    pgPool,
		Redis:     rdb,
		Logger:    logger,
		Registry:  registry,
		Env:       cfg.Env,
		Version:   version,
		RateLimit: cfg.RateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
