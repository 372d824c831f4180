// The worker keeps the counter dashboard warm and tidies up after the
// customer display. It schedules a summary refresh every minute and
// consumes the queue kinds the API or operators enqueue.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/glossydesign/pos-api/internal/cache"
	"github.com/glossydesign/pos-api/internal/config"
	"github.com/glossydesign/pos-api/internal/display"
	"github.com/glossydesign/pos-api/internal/lock"
	"github.com/glossydesign/pos-api/internal/obs"
	"github.com/glossydesign/pos-api/internal/order"
	"github.com/glossydesign/pos-api/internal/queue"
	"github.com/glossydesign/pos-api/internal/store"
)

const queuePrefix = "pos"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	db := store.New(pool)
	summaries := &order.SummaryService{Store: db, Redis: redisClient, TTL: cfg.SummaryCacheTTL}
	screens := &display.Service{Redis: redisClient, TTL: cfg.DisplayTTL, PromptPayID: cfg.PromptPayID}
	locker := lock.Locker{R: redisClient, RetryBackoff: 100 * time.Millisecond}
	dlqStore := queue.NewStore(pool)
	enqueuer := queue.Enqueuer{R: redisClient, Prefix: queuePrefix, DedupTTL: 2 * time.Minute, MaxAttempts: 5}

	summaryWorker := queue.Worker{
		R:                 redisClient,
		Prefix:            queuePrefix,
		Kind:              queue.KindSummaryRefresh,
		Concurrency:       1,
		VisibilityTimeout: 30 * time.Second,
		SoftDeadline:      20 * time.Second,
		RetryBase:         time.Second,
		RetryJitter:       0.2,
		Store:             dlqStore,
		Logger:            &logger,
		Handler: func(jobCtx context.Context, task queue.Task) error {
			key := cache.KeySummaryLock(time.Now())
			return locker.WithLock(jobCtx, key, 25*time.Second, func(lockCtx context.Context) error {
				summary, err := summaries.Refresh(lockCtx)
				if err != nil {
					return err
				}
				logger.Debug().Str("date", summary.Date).Int64("sales", summary.SalesToday).Msg("summary refreshed")
				return nil
			})
		},
	}

	displayWorker := queue.Worker{
		R:                 redisClient,
		Prefix:            queuePrefix,
		Kind:              queue.KindDisplayClear,
		Concurrency:       1,
		VisibilityTimeout: 15 * time.Second,
		RetryBase:         time.Second,
		RetryJitter:       0.2,
		Store:             dlqStore,
		Logger:            &logger,
		Handler: func(jobCtx context.Context, task queue.Task) error {
			session := strings.TrimSpace(string(task.Payload))
			if session == "" {
				session = display.DefaultSession
			}
			return screens.Clear(jobCtx, session)
		},
	}

	// Self-scheduling: one refresh task per minute, deduplicated so a
	// second worker instance does not double-enqueue.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				task := queue.Task{
					Kind:           queue.KindSummaryRefresh,
					Payload:        []byte(now.Format("2006-01-02")),
					IdempotencyKey: now.Format("200601021504"),
					MaxAttempts:    3,
				}
				if err := enqueuer.Enqueue(ctx, task); err != nil {
					logger.Error().Err(err).Msg("enqueue summary refresh")
				}
			}
		}
	}()

	logger.Info().Msg("worker starting")
	var wg sync.WaitGroup
	for _, w := range []queue.Worker{summaryWorker, displayWorker} {
		wg.Add(1)
		go func(w queue.Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Str("kind", w.Kind).Msg("worker stopped with error")
			}
		}(w)
	}
	wg.Wait()
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pos-worker"
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
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

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
