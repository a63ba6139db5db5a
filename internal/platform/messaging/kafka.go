package messaging

import (
	"context"
	"log/slog"
	"sync"

	"govote/contexts/governance/agenda-ledger/ports"
)

const subscriberBuffer = 128

// Kafka is the event bus behind the outbox relay. The current implementation
// is an in-process topic fanout; the broker list is accepted so external
// runtime wiring can replace it without touching callers.
type Kafka struct {
	mu          sync.RWMutex
	subscribers map[string][]chan ports.EventEnvelope
	logger      *slog.Logger
}

func NewKafka(_ []string, logger *slog.Logger) (*Kafka, error) {
	return &Kafka{
		subscribers: make(map[string][]chan ports.EventEnvelope),
		logger:      logger,
	}, nil
}

// Publish fans the event out to every subscriber on the topic. A subscriber
// with a full buffer is skipped rather than blocking the relay loop.
func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	k.mu.RLock()
	targets := append([]chan ports.EventEnvelope(nil), k.subscribers[topic]...)
	k.mu.RUnlock()

	for _, target := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case target <- event:
		default:
			k.log(slog.LevelWarn, "dropping event for slow subscriber",
				"kafka_publish_drop", topic, event)
		}
	}

	k.log(slog.LevelInfo, "event published", "kafka_publish", topic, event)
	return nil
}

// Subscribe registers a handler for the topic and consumes until ctx is
// cancelled. Handler errors are logged; delivery continues.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	ch := make(chan ports.EventEnvelope, subscriberBuffer)

	k.mu.Lock()
	k.subscribers[topic] = append(k.subscribers[topic], ch)
	k.mu.Unlock()

	go func() {
		defer k.removeSubscriber(topic, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					k.log(slog.LevelError, "consumer handler failed",
						"kafka_consume_failed", topic, event,
						"consumer_group", consumerGroup,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (k *Kafka) removeSubscriber(topic string, target chan ports.EventEnvelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	remaining := k.subscribers[topic][:0]
	for _, ch := range k.subscribers[topic] {
		if ch != target {
			remaining = append(remaining, ch)
		}
	}
	k.subscribers[topic] = remaining
}

func (k *Kafka) log(level slog.Level, msg string, event string, topic string, envelope ports.EventEnvelope, attrs ...any) {
	if k.logger == nil {
		return
	}
	fields := append([]any{
		"event", event,
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
	}, attrs...)
	k.logger.Log(context.Background(), level, msg, fields...)
}
