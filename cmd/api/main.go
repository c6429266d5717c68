package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldsurvey/internal/adapters"
	"fieldsurvey/internal/adapters/storage"
	"fieldsurvey/internal/auth"
	"fieldsurvey/internal/datapoints"
	"fieldsurvey/internal/email"
	"fieldsurvey/internal/events"
	"fieldsurvey/internal/exports"
	apphttp "fieldsurvey/internal/http"
	"fieldsurvey/internal/http/router"
	"fieldsurvey/internal/notification"
	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/scheduler"
	"fieldsurvey/internal/studies"
	studiesrepo "fieldsurvey/internal/studies/repository"
	"fieldsurvey/platform/config"
	"fieldsurvey/platform/db"
	"fieldsurvey/platform/docstore"
	"fieldsurvey/platform/logger"
	"fieldsurvey/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	health := map[string]apphttp.HealthChecker{"postgres": pool}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	if closeMirror := initMirrorPublisher(ctx, cfg, eventBus, health, log); closeMirror != nil {
		defer closeMirror()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage for CSV exports. A nil interface disables the export route.
	var store storage.ObjectStore
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIO(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure exports bucket", 5, 2*time.Second, func() error {
			return minioSvc.EnsureBucket(ctx, cfg.GetMinioBucketExports())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketExports())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		store = minioSvc
		log.Info("storage service initialized", "exportsBucket", cfg.GetMinioBucketExports())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; survey exports disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to auth events (not HTTP-facing)
	notificationModule := notification.New(email.NewSender(cfg), log)
	notificationModule.RegisterHandlers(eventBus)

	authModule := auth.NewModule(pool, cfg, eventBus, log, val)
	questionsModule := questions.NewModule(questions.DefaultSchema(val))

	studiesRepo, err := newStudiesRepository(cfg, pool)
	if err != nil {
		log.Error("failed to initialize studies repository", "error", err)
		panic("failed to initialize studies repository: " + err.Error())
	}
	studiesModule := studies.NewModule(studiesRepo, questionsModule.Schema(), log)

	// Wire survey reader: datapoints → studies (field lists for answer validation)
	surveyReader := adapters.NewDataPointSurveyReader(studiesModule.Service())
	datapointsModule := datapoints.NewModule(pool, surveyReader, questionsModule.Schema(), eventBus, log, val)

	// Wire sheet source: exports → datapoints
	sheetSource := adapters.NewExportSheetSource(datapointsModule.Service())
	exportsModule := exports.NewModule(sheetSource, store, cfg.GetMinioBucketExports(), log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   health,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			questionsModule,
			studiesModule,
			datapointsModule,
			exportsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func newStudiesRepository(cfg config.StudiesConfig, pool *pgxpool.Pool) (studiesrepo.Repository, error) {
	if cfg.UseDemoStudies() {
		return studiesrepo.NewDemoFixtures()
	}
	return studiesrepo.NewPostgres(pool), nil
}

// initMirrorPublisher connects the data point events to the mirror queue.
// Without Redis the document store simply is not kept in sync.
func initMirrorPublisher(ctx context.Context, cfg config.SchedulerConfig, bus events.Bus, health map[string]apphttp.HealthChecker, log *logger.Logger) func() {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; document store mirroring disabled")
		return nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize mirror queue client", "error", err)
		return nil
	}
	scheduler.NewMirrorPublisher(client, log).RegisterHandlers(bus)

	closers := []func() error{client.Close}
	if store, err := docstore.Open(ctx, cfg); err != nil {
		log.Warn("document store unreachable; health check omitted", "error", err)
	} else {
		health["docstore"] = store
		closers = append(closers, store.Close)
	}

	return func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
