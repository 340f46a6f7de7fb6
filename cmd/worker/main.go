package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/billing"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/notify"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/queue"
	"github.com/noah-isme/backend-invoice/internal/resilience"
	"github.com/noah-isme/backend-invoice/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics("invoice", nil)
	if err := resilience.RegisterMetrics(nil); err != nil {
		logger.Fatal().Err(err).Msg("register resilience metrics")
	}

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   cfg.ServiceName + "-worker",
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, queries := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	queueOpt, err := queue.RedisOpt(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse queue redis url")
	}

	settingsService, err := settings.NewService(queries, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise settings service")
	}
	billingService := billing.NewService(pool, queries, settingsService, nil, nil, nil, nil)

	dispatcher := &notify.Dispatcher{
		Store:  queries,
		Client: notify.HTTPClient(cfg.WebhookTimeout, false),
		Breakers: &resilience.Breakers{
			Prefix: "webhook",
			Config: resilience.BreakerConfig{
				MinRequests:  cfg.BreakerMinRequests,
				FailureRatio: cfg.BreakerFailureRatio,
				OpenFor:      cfg.BreakerOpenFor,
			},
		},
		MaxAttempts: cfg.WebhookMaxAttempts,
		Enabled:     true,
		Replay:      notify.RedisReplayProtector{Client: redisClient},
		ReplayTTL:   24 * time.Hour,
	}

	srv := &queue.Server{
		Redis:       queueOpt,
		Concurrency: cfg.WorkerConcurrency,
		RetryBase:   cfg.JobRetryBase,
		RetryJitter: 0.2,
		Logger:      logger,
	}
	srv.Handle(billing.TaskRenderInvoice, billingService.HandleRenderTask)
	srv.Handle(notify.TaskWebhookDeliver, dispatcher.HandleTask)

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, *db.Queries) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool, db.New(pool)
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}
