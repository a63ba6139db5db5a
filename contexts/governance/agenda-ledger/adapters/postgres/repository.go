package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"govote/contexts/governance/agenda-ledger/domain/entities"
	domainerrors "govote/contexts/governance/agenda-ledger/domain/errors"
	"govote/contexts/governance/agenda-ledger/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// A single agenda instance per deployment keeps the aggregate root at a
// fixed primary key.
const agendaRowID = "agenda"

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateAgenda(ctx context.Context, agenda entities.Agenda) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(agendaModelFromEntity(agenda)).Error; err != nil {
			return err
		}
		return writeAgendaChildren(tx, agenda)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAgendaExists
		}
		return r.logError("agenda_repo_create_failed", err, "title", agenda.Title)
	}
	return nil
}

func (r *Repository) GetAgenda(ctx context.Context) (entities.Agenda, error) {
	var agendaRow agendaModel
	err := r.db.WithContext(ctx).
		Where("id = ?", agendaRowID).
		First(&agendaRow).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Agenda{}, domainerrors.ErrAgendaNotFound
		}
		return entities.Agenda{}, r.logError("agenda_repo_get_failed", err)
	}

	var proposalRows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("agenda_id = ?", agendaRowID).
		Order("proposal_id ASC").
		Find(&proposalRows).
		Error; err != nil {
		return entities.Agenda{}, r.logError("agenda_repo_list_proposals_failed", err)
	}

	var voterRows []voterModel
	if err := r.db.WithContext(ctx).
		Where("agenda_id = ?", agendaRowID).
		Find(&voterRows).
		Error; err != nil {
		return entities.Agenda{}, r.logError("agenda_repo_list_voters_failed", err)
	}

	var winnerRows []winnerModel
	if err := r.db.WithContext(ctx).
		Where("agenda_id = ?", agendaRowID).
		Order("proposal_id ASC").
		Find(&winnerRows).
		Error; err != nil {
		return entities.Agenda{}, r.logError("agenda_repo_list_winners_failed", err)
	}

	return assembleAgenda(agendaRow, proposalRows, voterRows, winnerRows), nil
}

// SaveAgenda replaces the whole aggregate inside one transaction. Proposal
// cardinality is fixed at initialization, so rows are upserted in place.
func (r *Repository) SaveAgenda(ctx context.Context, agenda entities.Agenda) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := agendaModelFromEntity(agenda)
		update := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"status":     row.Status,
				"updated_at": row.UpdatedAt,
			}),
		}).Create(&row)
		if update.Error != nil {
			return update.Error
		}
		return writeAgendaChildren(tx, agenda)
	})
	if err != nil {
		return r.logError("agenda_repo_save_failed", err, "title", agenda.Title)
	}
	return nil
}

func writeAgendaChildren(tx *gorm.DB, agenda entities.Agenda) error {
	for _, proposal := range agenda.Proposals {
		row := proposalModel{
			AgendaID:   agendaRowID,
			ProposalID: uint8(proposal.ID),
			Name:       proposal.Name,
			VoteCount:  proposal.VoteCount,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "agenda_id"}, {Name: "proposal_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"vote_count": row.VoteCount,
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}

	for address, record := range agenda.Voters {
		row := voterModel{
			AgendaID: agendaRowID,
			Address:  address,
			Weight:   record.Weight,
			Voted:    record.Voted,
			Vote:     uint8(record.Vote),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "agenda_id"}, {Name: "address"}},
			DoUpdates: clause.Assignments(map[string]any{
				"weight": row.Weight,
				"voted":  row.Voted,
				"vote":   row.Vote,
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}

	if err := tx.Where("agenda_id = ?", agendaRowID).Delete(&winnerModel{}).Error; err != nil {
		return err
	}
	for _, id := range agenda.WinningIDs {
		row := winnerModel{
			AgendaID:   agendaRowID,
			ProposalID: uint8(id),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := marshalEnvelope(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := outboxModel{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    createdAt,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("agenda_repo_append_outbox_failed", create.Error,
			"outbox_id", outboxID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("agenda_repo_list_pending_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	at := publishedAt.UTC()
	update := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &at,
		})
	if update.Error != nil {
		return r.logError("agenda_repo_mark_outbox_published_failed", update.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	return nil
}

// SystemClock satisfies ports.Clock with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator satisfies ports.IDGenerator with random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/agenda-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("agenda repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
