package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.StoreBackend != config.BackendPostgres {
		log.Fatalf("notification-relay needs STORE_BACKEND=%s", config.BackendPostgres)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("notification-relay starting up",
		zap.String("env", cfg.Env),
		zap.String("schedule", cfg.RelaySchedule),
		zap.Int("batch_size", cfg.RelayBatchSize),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	// Connect the broker
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		zlog.Fatal("amqp connection error", zap.Error(err))
	}
	defer func() {
		if err := conn.Close(); err != nil {
			zlog.Warn("error closing amqp connection", zap.Error(err))
		}
	}()

	publisher, err := notification.NewAMQPPublisher(conn, cfg.NotificationQueue, zlog)
	if err != nil {
		zlog.Fatal("amqp publisher error", zap.Error(err))
	}
	defer func() { _ = publisher.Close() }()
	zlog.Info("connected to broker", zap.String("queue", cfg.NotificationQueue))

	m := metrics.NewCollector("clinic_relay")
	relay := notification.NewRelay(notification.NewPgOutbox(pgPool), publisher, cfg.RelayBatchSize, zlog)

	run := func() { runOnce(rootCtx, relay, m, zlog) }

	// Run once at startup
	run()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.RelaySchedule, run); err != nil {
		zlog.Fatal("invalid RELAY_SCHEDULE", zap.String("schedule", cfg.RelaySchedule), zap.Error(err))
	}
	c.Start()

	var srv *http.Server
	if cfg.RelayMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv = &http.Server{Addr: ":" + cfg.RelayMetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zlog.Error("metrics listener error", zap.Error(err))
			}
		}()
	}

	<-rootCtx.Done()
	zlog.Info("shutdown signal received, stopping notification relay")

	<-c.Stop().Done()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func runOnce(ctx context.Context, relay *notification.Relay, m *metrics.Collector, zlog *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := relay.RunOnce(runCtx)
	m.RelayPublishedTotal.Add(float64(n))
	if err != nil {
		zlog.Error("relay run error", zap.Int("published", n), zap.Error(err))
		return
	}
	if n > 0 {
		zlog.Info("relay run complete", zap.Int("published", n), zap.Duration("took", time.Since(start)))
	}
}
