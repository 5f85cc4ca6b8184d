package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/pkg/log"
)

// Handler processes one message. The offset is committed whatever it returns,
// a failing message is logged and not redelivered.
type Handler func(ctx context.Context, msg kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer handles Kafka message consumption
type Consumer struct {
	Config  *cfg.Config
	Logger  log.Logger
	topic   string
	reader  messageReader
	handler Handler
}

// NewConsumer creates a group consumer for topic
func NewConsumer(config *cfg.Config, logger log.Logger, topic, groupID string, handler Handler) (*Consumer, error) {
	if len(config.Kafka.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:       config.Kafka.Brokers,
		Topic:         topic,
		GroupID:       groupID,
		MinBytes:      1,
		MaxBytes:      10e6,        // 10MB
		MaxWait:       time.Second, // Maximum amount of time to wait for new data
		StartOffset:   kafka.LastOffset,
		RetentionTime: 7 * 24 * time.Hour, // 1 week
	})

	return &Consumer{
		Config:  config,
		Logger:  logger,
		topic:   topic,
		reader:  reader,
		handler: handler,
	}, nil
}

// Start consumes messages until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	c.Logger.Info(ctx, "Starting Kafka consumer for topic: %s", c.topic)

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.Logger.Error(ctx, "Error reading message: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		key := string(message.Key)
		if err := c.handler(ctx, message); err != nil {
			c.Logger.Error(ctx, "Error handling message with key %s: %v", key, err)
		} else {
			c.Logger.Info(ctx, "Successfully processed message with key: %s", key)
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			c.Logger.Warn(ctx, "Failed to commit offset %d: %v", message.Offset, err)
		}
	}
}

// Close closes the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
