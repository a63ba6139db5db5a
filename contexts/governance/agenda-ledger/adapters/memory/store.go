package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"govote/contexts/governance/agenda-ledger/domain/entities"
	domainerrors "govote/contexts/governance/agenda-ledger/domain/errors"
	"govote/contexts/governance/agenda-ledger/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store holds the agenda aggregate and outbox in process memory. Snapshots
// cross the boundary as deep copies, so callers never alias store state.
type Store struct {
	mu sync.RWMutex

	agenda *entities.Agenda
	outbox map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		outbox: make(map[string]outboxRecord),
	}
}

func (s *Store) CreateAgenda(_ context.Context, agenda entities.Agenda) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agenda != nil {
		return domainerrors.ErrAgendaExists
	}
	clone := agenda.Clone()
	s.agenda = &clone
	return nil
}

func (s *Store) GetAgenda(_ context.Context) (entities.Agenda, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.agenda == nil {
		return entities.Agenda{}, domainerrors.ErrAgendaNotFound
	}
	return s.agenda.Clone(), nil
}

func (s *Store) SaveAgenda(_ context.Context, agenda entities.Agenda) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agenda == nil {
		return domainerrors.ErrAgendaNotFound
	}
	clone := agenda.Clone()
	s.agenda = &clone
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrInvalidParams
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].OutboxID < items[j].OutboxID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrInvalidParams
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
