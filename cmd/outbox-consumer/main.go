package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/infra"
	"github.com/peerpush/platform/internal/repository"
)

const notificationGroupID = "peerpush-notifications"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("outbox-consumer connected to postgres")

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()

	poller := infra.NewOutboxPoller(pool, repository.NewOutboxRepository(), producer, logger)
	poller.Start(ctx)

	// Notification delivery: read back the wallet topics this process
	// publishes and hand each event to the notifier. Delivery is a log line
	// until the notification channel lands.
	if cfg.KafkaEnabled {
		notificationTopics := []domain.EventType{
			domain.EventDepositConfirmed,
			domain.EventWithdrawalDone,
		}
		for _, topic := range notificationTopics {
			consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, string(topic), notificationGroupID, cfg.KafkaEnabled, logger)
			defer consumer.Close()
			go consumeNotifications(ctx, consumer, string(topic), logger)
		}
	}

	<-ctx.Done()
	logger.Info("outbox-consumer shutting down")
	return nil
}

func consumeNotifications(ctx context.Context, consumer *infra.KafkaConsumer, topic string, logger *slog.Logger) {
	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("read notification message", "topic", topic, "error", err)
			continue
		}
		logger.Info("notification delivered",
			"topic", topic, "key", string(msg.Key), "payload", string(msg.Value))
	}
}
