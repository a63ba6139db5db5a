package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "govote/contexts/governance/agenda-ledger/application"
	"govote/contexts/governance/agenda-ledger/ports"
)

// OutboxRelay publishes persisted outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows and marks each row
// published only after broker publish succeeds. It stops on the first failure
// so the retry loop can reprocess remaining rows safely.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("agenda outbox list failed",
			"event", "agenda_outbox_list_failed",
			"module", "governance/agenda-ledger",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		logger.Debug("agenda outbox relay found no pending rows",
			"event", "agenda_outbox_relay_noop",
			"module", "governance/agenda-ledger",
			"layer", "worker",
			"batch_size", limit,
		)
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.EventEnvelope
		if err := unmarshalEnvelope(row.Payload, &event); err != nil {
			logger.Error("agenda outbox decode failed",
				"event", "agenda_outbox_decode_failed",
				"module", "governance/agenda-ledger",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := r.Topic
		if topic == "" {
			topic = event.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("agenda outbox publish failed",
				"event", "agenda_outbox_publish_failed",
				"module", "governance/agenda-ledger",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("agenda outbox mark published failed",
				"event", "agenda_outbox_mark_published_failed",
				"module", "governance/agenda-ledger",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("agenda outbox relay cycle completed",
		"event", "agenda_outbox_relay_completed",
		"module", "governance/agenda-ledger",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}

func unmarshalEnvelope(payload []byte, event *ports.EventEnvelope) error {
	if err := json.Unmarshal(payload, event); err != nil {
		return err
	}
	return event.Validate()
}
