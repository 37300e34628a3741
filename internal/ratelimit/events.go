package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/subaru9/riot-ratelimit/pkg/config"
	kafkaevents "github.com/subaru9/riot-ratelimit/pkg/kafka"
	"github.com/subaru9/riot-ratelimit/pkg/logger"
)

// EventPublisher fire-and-forget publishes analytics events off Refresh's
// side-effect path. A publish failure is logged, never surfaced: losing an
// analytics event is never a reason to fail an upstream call's bookkeeping.
type EventPublisher interface {
	Publish(ctx context.Context, kind string, routing Routing, endpoint string) error
}

// NoopEventPublisher is used when no Kafka brokers are configured.
type NoopEventPublisher struct{}

// Publish does nothing and never errors.
func (NoopEventPublisher) Publish(context.Context, string, Routing, string) error { return nil }

type policyEvent struct {
	Kind      string    `json:"kind"`
	Routing   string    `json:"routing"`
	Endpoint  string    `json:"endpoint"`
	Timestamp time.Time `json:"timestamp"`
}

type kafkaEventPublisher struct {
	producer kafkaevents.Producer
	topic    string
	log      *logger.Logger
}

// NewEventPublisher builds a Kafka-backed EventPublisher from configuration.
// An empty broker list yields a NoopEventPublisher instead of a producer
// that would fail on every publish.
func NewEventPublisher(cfg config.KafkaConfig, log *logger.Logger) (EventPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return NoopEventPublisher{}, nil
	}
	producer, err := kafkaevents.NewProducer(kafkaevents.Config{
		Brokers:      cfg.Brokers,
		Timeout:      cfg.Timeout,
		Compression:  cfg.Compression,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "riotlimit.events"
	}
	return &kafkaEventPublisher{producer: producer, topic: topic, log: log}, nil
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, kind string, routing Routing, endpoint string) error {
	event := policyEvent{Kind: kind, Routing: string(routing), Endpoint: endpoint, Timestamp: time.Now()}
	if err := p.producer.ProduceJSON(p.topic, string(routing), event); err != nil {
		if p.log != nil {
			p.log.Warn("dropping rate-limit analytics event", zap.Error(err), zap.String("kind", kind))
		}
		return err
	}
	return nil
}
