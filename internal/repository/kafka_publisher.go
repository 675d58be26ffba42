package repository

import (
	"context"
	"fmt"

	"SentiDash/internal/domain/models"
	"SentiDash/pkg/kafka"
	"SentiDash/pkg/util"
)

// KafkaPublisher emits prediction events keyed by run date.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(p *kafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event *models.PredictionEvent) error {
	key := []byte(util.FormatDate(event.Prediction.AsOf))
	if err := k.producer.Publish(ctx, k.topic, key, event); err != nil {
		return fmt.Errorf("publish prediction %s: %w", event.RunID, err)
	}
	return nil
}

// Notify lets the publisher sit in the pipeline's notifier list.
func (k *KafkaPublisher) Notify(ctx context.Context, event *models.PredictionEvent) error {
	return k.Publish(ctx, event)
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
