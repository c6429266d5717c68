package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldsurvey/internal/scheduler"
	"fieldsurvey/platform/config"
	"fieldsurvey/platform/docstore"
	"fieldsurvey/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting mirror worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *docstore.Store
	if err := withRetry(ctx, log, "document store connection", 5, 2*time.Second, func() error {
		s, err := docstore.Open(ctx, cfg)
		if err != nil {
			return err
		}
		store = s
		return nil
	}); err != nil {
		log.Error("failed to connect to document store", "error", err)
		panic("failed to connect to document store: " + err.Error())
	}
	defer func() { _ = store.Close() }()

	worker, err := scheduler.NewWorker(cfg, store, log)
	if err != nil {
		log.Error("failed to initialize mirror worker", "error", err)
		panic("failed to initialize mirror worker: " + err.Error())
	}

	if err := worker.Run(ctx); err != nil {
		panic("mirror worker: " + err.Error())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
