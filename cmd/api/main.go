package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-invoice/internal/audit"
	"github.com/noah-isme/backend-invoice/internal/auth"
	"github.com/noah-isme/backend-invoice/internal/billing"
	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/events"
	"github.com/noah-isme/backend-invoice/internal/health"
	"github.com/noah-isme/backend-invoice/internal/lock"
	"github.com/noah-isme/backend-invoice/internal/notify"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/queue"
	"github.com/noah-isme/backend-invoice/internal/ratelimit"
	"github.com/noah-isme/backend-invoice/internal/reports"
	"github.com/noah-isme/backend-invoice/internal/resilience"
	"github.com/noah-isme/backend-invoice/internal/settings"
	"github.com/noah-isme/backend-invoice/internal/trip"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()

	obs.MustRegisterDomainMetrics("invoice", nil)
	if err := resilience.RegisterMetrics(nil); err != nil {
		logger.Fatal().Err(err).Msg("register resilience metrics")
	}
	if err := queue.RegisterMetrics(nil); err != nil {
		logger.Fatal().Err(err).Msg("register queue metrics")
	}

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   cfg.ServiceName,
		Version:       cfg.ServiceVersion,
		Endpoint:      cfg.OTelEndpoint,
		SamplingRatio: cfg.OTelSampleRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.ServiceName
	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdle
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	queries := db.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	queueOpt, err := queue.RedisOpt(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse queue redis url")
	}
	enqueuer := queue.NewEnqueuer(queueOpt)
	defer func() {
		if err := enqueuer.Close(); err != nil {
			logger.Error().Err(err).Msg("close queue client")
		}
	}()
	inspector := asynq.NewInspector(queueOpt)
	defer inspector.Close()

	authService, err := auth.NewService(auth.Config{
		Queries:        queries,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Issuer:         cfg.JWTIssuer,
		Audience:       cfg.JWTAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}

	settingsService, err := settings.NewService(queries, cache.New(redisClient, cfg.SettingsCacheTTL))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise settings service")
	}
	tripService, err := trip.NewService(queries)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise trip service")
	}

	var mailer common.Mailer = common.LogMailer{Logger: logger}
	dispatcher := &notify.Dispatcher{
		Store:       queries,
		Queue:       enqueuer,
		MaxAttempts: cfg.WebhookMaxAttempts,
		Enabled:     true,
	}
	bus := &events.Bus{
		Store:     queries,
		Scheduler: dispatcher,
		Notifiers: []events.Notifier{notify.EmailNotifier{
			Mail:    mailer,
			Enabled: cfg.EmailEnabled,
			From:    cfg.EmailFrom,
		}},
	}

	numberer := settings.Numberer{
		Locker: lock.Locker{R: redisClient, RetryBackoff: 25 * time.Millisecond, MaxWait: cfg.NumberLockTTL},
		TTL:    cfg.NumberLockTTL,
	}
	reportCache := cache.New(redisClient, cfg.ReportsCacheTTL)
	billingService := billing.NewService(pool, queries, settingsService, numberer, bus, enqueuer, reportCache)

	apiLimiter, err := ratelimit.NewFixedWindow(redisClient, cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	onLimiterError := func(err error) { logger.Warn().Err(err).Msg("rate_limiter_unavailable") }

	deps := routerDeps{
		cfg:    cfg,
		logger: logger,
		health: health.Handler{Probes: []health.Probe{
			{Name: "db", Check: pool.Ping},
			{Name: "redis", Timeout: 300 * time.Millisecond, Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		}},
		auth:     &auth.Handler{Service: authService},
		authMW:   auth.Middleware{Service: authService},
		settings: &settings.Handler{Service: settingsService},
		trips:    &trip.Handler{Service: tripService},
		invoices: &billing.Handler{Service: billingService},
		webhooks: &notify.Handler{Store: queries},
		reports:  &reports.Handler{Svc: &reports.Service{Q: queries, Cache: reportCache, DefaultRange: 30}},
		audit:    audit.Handler{Store: queries},
		recorder: audit.HTTPRecorder{
			Service: &audit.Service{Store: queries, Enabled: cfg.AuditEnabled, SamplingRate: cfg.AuditSampling},
			OnError: func(err error) { logger.Warn().Err(err).Msg("audit_record_failed") },
		},
		jobs: &queue.AdminHandler{Inspector: inspector, Logger: logger},
		idem: common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL, Scope: tenantScope},
		apiLimit: ratelimit.Handler{
			Checker: apiLimiter,
			Key:     ratelimit.ByClient,
			OnError: onLimiterError,
		},
		tokenLimit: ratelimit.Handler{
			Checker: ratelimit.SlidingWindow{Client: redisClient, Prefix: "rl:token", Window: cfg.TokenRateWindow, Max: cfg.TokenRateLimitMax},
			Key:     ratelimit.ByIP,
			OnError: onLimiterError,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-sigCtx.Done()
	health.SetReady(false)
	logger.Info().Msg("shutdown requested, draining")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
