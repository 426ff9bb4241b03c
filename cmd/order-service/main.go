package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/catalog"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/repository"
	"github.com/saraiyakush/scalableshop-monorepo/internal/order/service"
	orderHttp "github.com/saraiyakush/scalableshop-monorepo/internal/order/transport/http"
	orderKafka "github.com/saraiyakush/scalableshop-monorepo/internal/order/transport/kafka"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/config"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/db"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/events"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/kafka"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/logging"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/observability"
	outboxRepository "github.com/saraiyakush/scalableshop-monorepo/pkg/outbox/repository"
	"github.com/saraiyakush/scalableshop-monorepo/pkg/outbox/worker"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.MustLoad("config/order.yaml")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracer(ctx, "order-service", cfg.Jaeger.Endpoint, cfg.Env)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresPool(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	catalogClient := catalog.NewCachedClient(
		catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, logger),
		redisClient,
		cfg.Redis.CacheTTL,
	)

	orderRepo := repository.NewOrderRepository(pool, logger)
	processedRepo := repository.NewProcessedEventRepository()
	outboxRepo := outboxRepository.NewOutboxRepository(pool, logger)
	orderService := service.NewOrderService(pool, logger, orderRepo, processedRepo, outboxRepo, catalogClient)

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}

	relayer := worker.NewRelayer(
		outboxRepo,
		kafkaProducer,
		events.NewRegistry(),
		logger,
		cfg.Outbox.Interval,
		cfg.Outbox.BatchSize,
	)
	go relayer.Start(ctx)

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})
	orderHttp.RegisterRoutes(app, orderHttp.NewOrderHandler(orderService, logger))

	go func() {
		logging.Info(ctx, logger, "HTTP server listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	consumer := orderKafka.NewConsumer(orderService, logger)
	consumer.Start(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID)

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.WithoutCancel(ctx), time.Second*5)
	defer exit()

	logging.Info(shutdownCtx, logger, "Shutting down order service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to shut down http server", zap.Error(err))
	}

	if err := kafkaProducer.Close(); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to close kafka producer", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		logging.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	pool.Close()
}
