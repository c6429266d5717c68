package scheduler

import (
	"context"
	"fmt"

	"fieldsurvey/platform/config"
	"fieldsurvey/platform/docstore"
	"fieldsurvey/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, store *docstore.Store, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		Logger: asynqLogger{log},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskMirrorDataPoint, NewMirror(store, log).HandleTask)

	return &Worker{server: server, mux: mux, log: log}, nil
}

// Run processes tasks until ctx ends, then drains in-flight tasks.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("mirror worker failed to start", "error", err)
		return err
	}
	w.log.Info("mirror worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("mirror worker stopped")
	return nil
}

// asynqLogger routes asynq's own logging through the application logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Error(fmt.Sprint(args...), "fatal", true) }
