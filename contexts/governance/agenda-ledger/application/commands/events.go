package commands

import (
	"context"
	"encoding/json"
	"time"

	"govote/contexts/governance/agenda-ledger/ports"
)

// appendAgendaEvent writes a canonical envelope to the transactional outbox.
// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
// Events are partitioned by sender so per-voter ordering is stable.
func (uc EngineUseCase) appendAgendaEvent(
	ctx context.Context,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "agenda-ledger",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "sender",
		PartitionKey:     partitionKey,
		Data:             payload,
	})
}
