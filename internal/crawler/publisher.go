package crawler

import (
	"context"

	"github.com/thep200/github-top100/internal/model"
)

type producer interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// KafkaPublisher sends pass summaries keyed by pass id.
type KafkaPublisher struct {
	producer producer
}

func NewKafkaPublisher(p producer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (k *KafkaPublisher) PublishPass(ctx context.Context, msg model.PassMessage) error {
	return k.producer.Publish(ctx, msg.PassID, msg)
}

// NopPublisher drops pass summaries, used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishPass(context.Context, model.PassMessage) error { return nil }
