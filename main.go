package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"store-monitor/internal/auth"
	"store-monitor/internal/observability/metrics"
	"store-monitor/internal/tasks"
	"store-monitor/internal/uptime/application"
	"store-monitor/internal/uptime/infrastructure/artifact"
	"store-monitor/internal/uptime/infrastructure/csvsource"
	"store-monitor/internal/uptime/infrastructure/memory"
	"store-monitor/internal/uptime/infrastructure/postgres"
	"store-monitor/internal/uptime/infrastructure/redisjobs"
	reporthttp "store-monitor/internal/uptime/interfaces/http"
	"store-monitor/internal/uptime/notify"
)

// eventStore is read by the generator and written by startup ingestion.
type eventStore interface {
	application.EventSource
	application.EventSink
}

// jobStore is a job repository that can also back the Running gauge.
type jobStore interface {
	application.JobRepository
	metrics.RunningCounter
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := application.LoadConfig()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db open error", zap.Error(err))
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("db ping error", zap.Error(err))
		}
	}

	events, err := buildEventStore(db)
	if err != nil {
		logger.Fatal("event store error", zap.Error(err))
	}
	if !cfg.SkipIngest {
		data, err := csvsource.LoadDataset(csvsource.Paths{
			Status:    cfg.DataPath(cfg.StatusFile),
			Hours:     cfg.DataPath(cfg.HoursFile),
			Timezones: cfg.DataPath(cfg.TimezonesFile),
		})
		if err != nil {
			logger.Fatal("read input files error", zap.Error(err))
		}
		if err := application.Ingest(ctx, events, data, logger); err != nil {
			logger.Fatal("ingest error", zap.Error(err))
		}
	}

	jobs, closeJobs, err := buildJobStore(ctx, cfg, db)
	if err != nil {
		logger.Fatal("job store error", zap.Error(err))
	}
	defer closeJobs()

	artifacts, err := buildArtifactStore(ctx, cfg.Artifacts)
	if err != nil {
		logger.Fatal("artifact store error", zap.Error(err))
	}

	metrics.Init(jobs, logger)

	generator, err := application.NewGenerator(cfg.Policy, application.SystemClock{}, cfg.StoreParallelism, logger)
	if err != nil {
		logger.Fatal("generator error", zap.Error(err))
	}

	queue := tasks.NewQueue(cfg.Workers, cfg.QueueSize, logger)

	var notifier notify.Notifier
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL)
	}

	runner, err := application.NewRunner(application.RunnerDeps{
		Jobs:          jobs,
		Source:        events,
		Artifacts:     artifacts,
		Generator:     generator,
		Queue:         queue,
		Notifier:      notifier,
		Logger:        logger,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal("runner error", zap.Error(err))
	}

	if cfg.DailyAt != "" {
		scheduler := application.NewScheduler(runner, cfg.DailyAt, logger)
		go scheduler.Start(ctx)
	}

	reportHandler, err := reporthttp.NewHandler(runner, logger)
	if err != nil {
		logger.Fatal("report handler error", zap.Error(err))
	}
	mux := http.NewServeMux()
	reportHandler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware([]byte(cfg.AuthSecret), auth.NewDefaultPolicy([]string{"/", "/healthz", "/metrics"}, nil), logger)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
	if err := queue.Close(shutdownCtx); err != nil {
		logger.Warn("task queue drain incomplete", zap.Error(err))
	}
}

func buildEventStore(db *sql.DB) (eventStore, error) {
	if db == nil {
		return memory.NewEventStore(), nil
	}
	return postgres.NewEventStore(db)
}

func buildJobStore(ctx context.Context, cfg application.Config, db *sql.DB) (jobStore, func(), error) {
	noop := func() {}
	switch cfg.JobStore {
	case application.JobStorePostgres:
		if db == nil {
			return nil, noop, errors.New("postgres job store requires DATABASE_URL")
		}
		repo, err := postgres.NewJobRepository(db)
		return repo, noop, err
	case application.JobStoreRedis:
		repo, err := redisjobs.NewJobRepository(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		return memory.NewJobRepository(), noop, nil
	}
}

func buildArtifactStore(ctx context.Context, cfg application.ArtifactConfig) (application.ArtifactStore, error) {
	if cfg.Backend == application.ArtifactS3 {
		return artifact.NewS3Store(ctx, artifact.S3Config{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	}
	return artifact.NewFSStore(cfg.Dir)
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.IncHTTPRequest(r.URL.Path, resp.status)
		logger.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
