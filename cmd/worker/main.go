package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lessonhub/lessonhub/internal/api/ops"
	"github.com/lessonhub/lessonhub/internal/application/sweeper"
	"github.com/lessonhub/lessonhub/internal/config"
	"github.com/lessonhub/lessonhub/internal/infrastructure/kafka"
	"github.com/lessonhub/lessonhub/internal/infrastructure/postgres"
	"github.com/lessonhub/lessonhub/internal/infrastructure/redislock"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer redisClient.Close()

	// infrastructure
	bookingRepo := postgres.NewBookingRepository(pool)
	locks := redislock.NewService(redislock.NewRedisBackend(redisClient), cfg.InstanceID, cfg.LockTTL, cfg.LockFailOpen, logger)
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.BookingEventsTopic, logger)
	defer producer.Close()

	// services
	sweepSvc := sweeper.NewService(bookingRepo, producer, locks, sweeper.Config{
		RequestTTL:      cfg.RequestTTL,
		CompletionGrace: cfg.CompletionGrace,
		LockTTL:         cfg.LockTTL,
		BatchSize:       cfg.SweepBatchSize,
	}, nil, logger)

	// ops server
	ready := func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	}
	opsServer := ops.NewServer(locks, ready)

	httpServer := &http.Server{
		Addr:         cfg.OpsAddr,
		Handler:      opsServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			sweepSvc.RunOnce(context.Background())
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.OpsAddr).Msg("ops server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("ops server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
