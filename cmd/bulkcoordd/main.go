// Command bulkcoordd is a reference binary demonstrating the coordinator
// package against a Redis/Valkey-backed bulk Requester: it wires
// configuration loading and hot-reload, structured logging, Prometheus
// metrics, and a debug HTTP surface around a single running Coordinator.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tduva/bulkcoord/coordinator"
	"github.com/tduva/bulkcoord/internal/config"
	"github.com/tduva/bulkcoord/internal/httpdebug"
	"github.com/tduva/bulkcoord/internal/logging"
	"github.com/tduva/bulkcoord/internal/metrics"
	"github.com/tduva/bulkcoord/requester/redis"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to configuration file")
		envPrefix  = flag.String("env-prefix", "BULKCOORD", "environment variable prefix")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var files []string
	if *configFile != "" {
		files = []string{*configFile}
	}
	loader := config.NewLoader(*envPrefix, files...)
	cfg, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to configure logger: %v", err)
	}

	promRegistry := prometheus.NewRegistry()
	metricsRecorder := metrics.NewRecorder(promRegistry)

	redisRequester, err := redis.New(redis.Config{
		Address:    cfg.Redis.Address,
		Username:   cfg.Redis.Username,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		TLS:        redis.TLSConfig{Enabled: cfg.Redis.TLS.Enabled, CAFile: cfg.Redis.TLS.CAFile},
		BatchLimit: cfg.Redis.BatchLimit,
	})
	if err != nil {
		logger.Error("redis requester setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisRequester.Close()

	defaultPolicy, err := coordinator.ParsePolicy(cfg.Coordinator.DefaultPolicy)
	if err != nil {
		logger.Error("invalid default policy", slog.Any("error", err))
		os.Exit(1)
	}

	settings := defaultPolicy
	if cfg.Coordinator.Daemon {
		settings |= coordinator.DAEMON
	}

	opts := []coordinator.Option[string, []byte]{
		coordinator.WithTickInterval[string, []byte](time.Duration(cfg.Coordinator.TickIntervalMS) * time.Millisecond),
		coordinator.WithLogger[string, []byte](logger),
		coordinator.WithObserver[string, []byte](metricsObserver{recorder: metricsRecorder}),
	}
	if cfg.Coordinator.BackoffExpr != "" {
		backoff, err := coordinator.NewCELBackoffStrategy(cfg.Coordinator.BackoffExpr)
		if err != nil {
			logger.Error("invalid backoff expression", slog.Any("error", err))
			os.Exit(1)
		}
		opts = append(opts, coordinator.WithBackoffStrategy[string, []byte](backoff))
	}

	coord := coordinator.New[string, []byte](instrument[string, []byte](redisRequester, metricsRecorder), settings, opts...)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := coord.Close(shutdownCtx); err != nil {
			logger.Error("coordinator shutdown failed", slog.Any("error", err))
		}
	}()

	watcher, err := loader.Watch(ctx, func(updated config.Config) {
		var backoff coordinator.BackoffStrategy
		if updated.Coordinator.BackoffExpr != "" {
			strategy, err := coordinator.NewCELBackoffStrategy(updated.Coordinator.BackoffExpr)
			if err != nil {
				logger.Error("reloaded backoff expression invalid, keeping previous strategy", slog.Any("error", err))
			} else {
				backoff = strategy
			}
		}
		coord.Reconfigure(time.Duration(updated.Coordinator.TickIntervalMS)*time.Millisecond, backoff)
		logger.Info("configuration reloaded", slog.Int("tickIntervalMs", updated.Coordinator.TickIntervalMS))
	}, func(err error) {
		if err != nil {
			logger.Error("config watcher error", slog.Any("error", err))
		}
	})
	if err != nil {
		logger.Info("config hot-reload disabled", slog.Any("reason", err))
	} else {
		defer watcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Debug.Enabled {
		debugSrv, err := httpdebug.New(cfg.Debug.Listen, coord, metricsRecorder, logger)
		if err != nil {
			logger.Error("debug server setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		g.Go(func() error { return debugSrv.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bulkcoordd terminated unexpectedly", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("bulkcoordd shutdown complete")
}
