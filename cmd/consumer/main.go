package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/internal/app"
	"github.com/thep200/github-top100/internal/crawler"
	"github.com/thep200/github-top100/internal/model"
	"github.com/thep200/github-top100/pkg/kafka"
	"github.com/thep200/github-top100/pkg/log"
)

// Consumes sync triggers and runs one pass per message.
func main() {
	// Load configuration
	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewLogger(config)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// Setup context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Critical(ctx, "Failed to start: %v", err)
		os.Exit(1)
	}
	defer a.Close()

	consumer, err := kafka.NewConsumer(config, logger, config.Kafka.TopicTrigger, config.Kafka.GroupID, triggerHandler(logger, a.Runner))
	if err != nil {
		logger.Critical(ctx, "Failed to create consumer: %v", err)
		os.Exit(1)
	}
	defer consumer.Close()

	logger.Info(ctx, "Trigger consumer started on %s", config.Kafka.TopicTrigger)
	if err := consumer.Start(ctx); err != nil {
		logger.Error(ctx, "Trigger consumer error: %v", err)
	}
	logger.Info(context.Background(), "Received shutdown signal, consumer stopped")
}

func triggerHandler(logger log.Logger, runner *crawler.Runner) kafka.Handler {
	return func(ctx context.Context, msg kafkago.Message) error {
		var trigger model.TriggerMessage
		if err := json.Unmarshal(msg.Value, &trigger); err != nil {
			return fmt.Errorf("failed to unmarshal trigger message: %w", err)
		}

		logger.Info(ctx, "Sync requested by %q", trigger.RequestedBy)
		_, err := runner.RunOnce(ctx)
		if errors.Is(err, crawler.ErrPassInProgress) {
			logger.Notice(ctx, "Trigger from %q dropped: a pass is already running", trigger.RequestedBy)
			return nil
		}
		return err
	}
}
