package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/course-intake-bot/internal/bot"
	"github.com/Proton-105/course-intake-bot/internal/catalog"
	"github.com/Proton-105/course-intake-bot/internal/database"
	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
	"github.com/Proton-105/course-intake-bot/internal/form"
	"github.com/Proton-105/course-intake-bot/internal/health"
	"github.com/Proton-105/course-intake-bot/internal/i18n"
	"github.com/Proton-105/course-intake-bot/internal/idempotency"
	"github.com/Proton-105/course-intake-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/course-intake-bot/internal/jobs/handlers"
	"github.com/Proton-105/course-intake-bot/internal/lead"
	"github.com/Proton-105/course-intake-bot/internal/lifecycle"
	"github.com/Proton-105/course-intake-bot/internal/middleware"
	"github.com/Proton-105/course-intake-bot/internal/ratelimit"
	"github.com/Proton-105/course-intake-bot/internal/state"
	"github.com/Proton-105/course-intake-bot/migrations"
	"github.com/Proton-105/course-intake-bot/pkg/config"
	"github.com/Proton-105/course-intake-bot/pkg/graceful"
	"github.com/Proton-105/course-intake-bot/pkg/logger"
	"github.com/Proton-105/course-intake-bot/pkg/metrics"
	redisclient "github.com/Proton-105/course-intake-bot/pkg/redis"
)

const (
	sessionMetricsInterval = 15 * time.Second
	memorySweepInterval    = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	log, level := logger.Build(*cfg, nil)
	slog.SetDefault(log)

	config.Watch(v, func(next *config.Config) {
		level.Set(logger.ParseLevel(next.Logger.Level))
		log.Info("configuration reloaded", slog.String("log_level", next.Logger.Level))
	})

	flushSentry, err := logger.InitSentry(cfg.Sentry, cfg.AppEnv)
	if err != nil {
		return err
	}
	defer flushSentry(2 * time.Second)

	log.Info("starting course intake bot",
		slog.String("bot_mode", cfg.Bot.Mode),
		slog.String("catalog_source", cfg.Catalog.Source),
		slog.String("lead_sink", cfg.Leads.Sink),
		slog.String("lead_policy", cfg.Leads.Policy),
	)

	translations, err := i18n.Load(cfg.Form.Language)
	if err != nil {
		return err
	}
	tr := translations.Translator(cfg.Form.Language)

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled, apperrors.WithTranslator(tr))
	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)

	labels := catalog.Labels{Free: cfg.Catalog.Labels.Free, Paid: cfg.Catalog.Labels.Paid}
	columns := catalog.Columns{
		Direction:  cfg.Catalog.Columns.Direction,
		CourseType: cfg.Catalog.Columns.CourseType,
		CourseName: cfg.Catalog.Columns.CourseName,
		CourseLink: cfg.Catalog.Columns.CourseLink,
	}

	sheet := connectSheets(ctx, cfg, columns, errHandler, checker, log)
	source := catalogSource(cfg, columns, sheet)

	cat, err := catalog.Load(ctx, source, labels, log)
	if err != nil {
		errHandler.Handle(ctx, err)
	}
	metrics.SetCatalogSize(len(cat.Directions()), cat.Len())
	checker.AddOptionalCheck("catalog", health.NewCatalogCheck(cat))

	var rdb *redisclient.Client
	if cfg.Redis.Enabled {
		rdb, err = redisclient.New(ctx, redisclient.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			PoolTimeout:  cfg.Redis.PoolTimeout,
			IdleTimeout:  cfg.Redis.IdleTimeout,
			MaxRetries:   cfg.Redis.MaxRetries,
		})
		if err != nil {
			return err
		}
		checker.AddCheck("redis", rdb)
		shutdown.Register(lifecycle.PhaseStorage, "redis", func(context.Context) error {
			return rdb.Close()
		})
	}

	sink, err := leadSink(ctx, cfg, sheet, checker, shutdown, log)
	if err != nil {
		return err
	}

	recorder, err := leadRecorder(cfg, sink, shutdown, log)
	if err != nil {
		return err
	}

	sessions := state.NewMemoryStorage()
	flow := form.New(cat, sessions, recorder, tr, form.Options{
		Labels:           labels,
		MaxCourseOptions: cfg.Form.MaxCourseOptions,
		Errors:           errHandler,
	}, log)

	var idemStore idempotency.Store
	if rdb != nil {
		idemStore = idempotency.NewRedisStore(rdb, log)
	} else {
		memStore := idempotency.NewMemoryStore()
		go memStore.Run(ctx, memorySweepInterval)
		idemStore = memStore
	}

	var rateLimit *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		rules, err := ratelimit.NewRules(cfg.RateLimit)
		if err != nil {
			return err
		}

		var primary ratelimit.Limiter
		if rdb != nil {
			primary = ratelimit.NewRedisLimiter(rdb, log)
		}
		fallback := ratelimit.NewMemoryLimiter()
		go fallback.Run(ctx, memorySweepInterval, rules.Window)

		limiter := ratelimit.NewAdaptiveLimiter(primary, fallback, log)
		rateLimit = middleware.NewRateLimitMiddleware(limiter, rules, tr.T("errors.rate_limited"), log)
	}

	b, err := bot.New(cfg.Bot, bot.Deps{
		Conversation: flow,
		Translator:   tr,
		Errors:       errHandler,
		Idempotency:  idempotency.NewManager(idemStore, idempotency.DefaultTTL, idempotency.DefaultLockTTL, log),
		RateLimit:    rateLimit,
	}, log)
	if err != nil {
		return err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))

	cleaner := state.NewCleaner(sessions, log, cfg.Session.IdleTTL, cfg.Session.SweepInterval)
	if cleaner.Enabled() {
		go cleaner.Run(ctx)
	}
	go metrics.NewSessionCollector(sessions, sessionMetricsInterval).Run(ctx)

	if cfg.Server.Enabled {
		startHTTPServer(cfg.Server, lifecycle.NewProbes(checker, shutdown, log), shutdown, log)
	}

	go b.Start()
	shutdown.Register(lifecycle.PhaseIngress, "telegram", func(context.Context) error {
		b.Stop()
		return nil
	})

	log.Info("course intake bot started",
		slog.Int("directions", len(cat.Directions())),
		slog.Int("courses", cat.Len()),
	)

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}

func leadSink(
	ctx context.Context,
	cfg *config.Config,
	sheet spreadsheet,
	checker *health.Checker,
	shutdown *lifecycle.Shutdown,
	log *slog.Logger,
) (lead.Sink, error) {
	if cfg.Leads.Sink != "postgres" {
		if sheet.client == nil {
			return lead.Unavailable("sheets", sheet.err), nil
		}
		return sheet.client, nil
	}

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	shutdown.Register(lifecycle.PhaseStorage, "postgres", func(context.Context) error {
		return db.Close()
	})
	checker.AddCheck("postgres", health.NewDBChecker(db))

	migrator := database.NewMigrator(db, log)
	if dir := cfg.Database.MigrationsDir; dir != "" {
		err = migrator.ApplyDir(ctx, dir)
	} else {
		err = migrator.Apply(ctx, migrations.FS, ".")
	}
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return lead.NewPostgresSink(db), nil
}

func leadRecorder(cfg *config.Config, sink lead.Sink, shutdown *lifecycle.Shutdown, log *slog.Logger) (*lead.Recorder, error) {
	policy, err := lead.ParsePolicy(cfg.Leads.Policy)
	if err != nil {
		return nil, err
	}

	opts := lead.Options{
		Policy:  policy,
		Timeout: cfg.Leads.Timeout,
		Retry: apperrors.RetryConfig{
			MaxRetries:     cfg.Leads.Retry.MaxRetries,
			InitialBackoff: cfg.Leads.Retry.InitialBackoff,
			MaxBackoff:     cfg.Leads.Retry.MaxBackoff,
		},
		Queue:    cfg.Leads.Queue.Name,
		MaxRetry: cfg.Leads.Queue.MaxRetry,
	}

	if policy != lead.PolicyQueue {
		return lead.NewRecorder(sink, nil, opts, log)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	queue := jobs.NewManager(redisOpt, log)
	shutdown.Register(lifecycle.PhaseStorage, "lead queue", func(context.Context) error {
		return queue.Close()
	})

	worker := jobs.NewWorker(redisOpt, jobs.WorkerConfig{
		Queues:      map[string]int{cfg.Leads.Queue.Name: 1},
		Concurrency: cfg.Leads.Queue.Concurrency,
	}, log)
	worker.RegisterHandler(jobs.TaskTypeLeadAppend, jobhandlers.NewLeadAppendHandler(sink, log))
	if err := worker.Start(); err != nil {
		return nil, fmt.Errorf("start lead worker: %w", err)
	}
	shutdown.Register(lifecycle.PhaseWorkers, "lead worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})

	return lead.NewRecorder(sink, queue, opts, log)
}

func startHTTPServer(cfg config.ServerConfig, probes *lifecycle.Probes, shutdown *lifecycle.Shutdown, log *slog.Logger) {
	srv := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Addr,
		Handler:           lifecycle.NewHTTPHandler(probes, log),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.ShutdownTimeout)

	serverCtx, stopServer := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := srv.ListenAndServe(serverCtx); err != nil {
			log.Error("http server stopped", slog.Any("error", err))
		}
	}()

	shutdown.Register(lifecycle.PhaseIngress, "http", func(ctx context.Context) error {
		stopServer()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
