// Copyright 2025 James Ross
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/flyingrobots/go-redis-job-engine/internal/config"
	"github.com/flyingrobots/go-redis-job-engine/internal/engine"
	"github.com/flyingrobots/go-redis-job-engine/internal/obs"
	"github.com/flyingrobots/go-redis-job-engine/internal/redisclient"
)

var version = "dev"

func main() {
	var configPath string
	var showVersion bool
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewRotatingLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	instanceID := uuid.NewString()
	logger = logger.With(obs.String("instance", instanceID))

	tp, err := obs.MaybeInitTracing(cfg)
	if err != nil {
		logger.Warn("tracing init failed", obs.Err(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	rdb := redisclient.New(cfg)
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// HTTP server: metrics, healthz, readyz
	readyCheck := func(c context.Context) error {
		return rdb.Ping(c).Err()
	}
	srv := obs.StartHTTPServer(cfg, readyCheck)
	defer func() {
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = srv.Shutdown(shutdownCtx)
	}()

	eng := engine.New(rdb, cfg.Engine.Namespace, logger)

	obs.StartQueueGaugeUpdater(ctx, cfg, rdb, logger)

	// Retention GC runs inline on complete, and on a schedule here so the
	// completed set stays bounded when completions stop arriving.
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Engine.GCSweepSchedule, func() {
		now := float64(time.Now().Unix())
		if n, err := eng.SweepCompleted(ctx, now); err != nil {
			logger.Warn("completed sweep failed", obs.Err(err))
		} else if n > 0 {
			logger.Info("completed sweep", obs.Int("evicted", n))
		}
	}); err != nil {
		logger.Error("invalid gc sweep schedule", obs.Err(err))
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Engine.TailEvents {
		go func() {
			if err := eng.TailEvents(ctx, func(payload string) {
				logger.Info("engine event", obs.String("event", payload))
			}); err != nil && ctx.Err() == nil {
				logger.Warn("event tail ended", obs.Err(err))
			}
		}()
	}

	logger.Info("job engine started",
		obs.String("version", version),
		obs.String("namespace", cfg.Engine.Namespace),
		obs.String("redis", cfg.Redis.Addr),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	cancel()
}
