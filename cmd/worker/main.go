// Worker runs housekeeping for pending registrations: an asynq server processing the purge task and a
// scheduler enqueueing it on PURGE_SCHEDULE. Pass -purge-now to enqueue one purge and exit.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"storefront/backend/internal/config"
	"storefront/backend/internal/db"
	"storefront/backend/internal/housekeeping"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/metrics"
	pendingrepo "storefront/backend/internal/pending/repository"
)

func main() {
	purgeNow := flag.Bool("purge-now", false, "enqueue a single purge task and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(logger.Options{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: cfg.ServiceName + "-worker"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	if *purgeNow {
		if err := enqueuePurge(redisOpt); err != nil {
			zl.Fatal("enqueue purge", zap.Error(err))
		}
		zl.Info("purge task enqueued")
		return
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	defer database.Close()

	m := metrics.New(cfg.ServiceName + "-worker")
	purge := housekeeping.NewPurgeHandler(pendingrepo.NewPostgresRepository(database), cfg.PendingTTL(), m, zl)

	srv := housekeeping.NewServer(redisOpt, zl)
	if err := srv.Start(housekeeping.NewMux(purge)); err != nil {
		zl.Fatal("asynq server", zap.Error(err))
	}

	scheduler, entryID, err := housekeeping.NewScheduler(redisOpt, cfg.PurgeSchedule, zl)
	if err != nil {
		zl.Fatal("scheduler", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		zl.Fatal("scheduler start", zap.Error(err))
	}
	zl.Info("purge scheduled", zap.String("entry_id", entryID), zap.String("schedule", cfg.PurgeSchedule))

	var metricsSrv *http.Server
	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error("metrics server", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zl.Info("shutting down worker")
	scheduler.Shutdown()
	srv.Shutdown()
	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}
}

func enqueuePurge(redisOpt asynq.RedisConnOpt) error {
	task, err := housekeeping.NewPurgeTask(0)
	if err != nil {
		return err
	}
	client := asynq.NewClient(redisOpt)
	defer client.Close()
	_, err = client.Enqueue(task, asynq.Queue(housekeeping.QueueName))
	return err
}
