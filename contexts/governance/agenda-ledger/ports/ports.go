package ports

import (
	"context"
	"time"

	contractsv1 "govote/contracts/gen/events/v1"
	"govote/contexts/governance/agenda-ledger/domain/entities"
)

// AgendaRepository persists the single agenda aggregate. Get and Save move
// whole snapshots so a failed operation never leaves partial state behind.
type AgendaRepository interface {
	CreateAgenda(ctx context.Context, agenda entities.Agenda) error
	GetAgenda(ctx context.Context) (entities.Agenda, error)
	SaveAgenda(ctx context.Context, agenda entities.Agenda) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
