package postgresadapter

import (
	"encoding/json"
	"time"

	"govote/contexts/governance/agenda-ledger/domain/entities"
	"govote/contexts/governance/agenda-ledger/ports"
)

type agendaModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Title       string    `gorm:"column:title"`
	Description string    `gorm:"column:description"`
	Expiry      time.Time `gorm:"column:expiry"`
	Status      string    `gorm:"column:status"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (agendaModel) TableName() string {
	return "agenda"
}

type proposalModel struct {
	AgendaID   string `gorm:"column:agenda_id;primaryKey"`
	ProposalID uint8  `gorm:"column:proposal_id;primaryKey"`
	Name       string `gorm:"column:name"`
	VoteCount  uint32 `gorm:"column:vote_count"`
}

func (proposalModel) TableName() string {
	return "agenda_proposals"
}

type voterModel struct {
	AgendaID string `gorm:"column:agenda_id;primaryKey"`
	Address  string `gorm:"column:address;primaryKey"`
	Weight   uint32 `gorm:"column:weight"`
	Voted    bool   `gorm:"column:voted"`
	Vote     uint8  `gorm:"column:vote"`
}

func (voterModel) TableName() string {
	return "agenda_voters"
}

type winnerModel struct {
	AgendaID   string `gorm:"column:agenda_id;primaryKey"`
	ProposalID uint8  `gorm:"column:proposal_id;primaryKey"`
}

func (winnerModel) TableName() string {
	return "agenda_winners"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "agenda_outbox"
}

func agendaModelFromEntity(agenda entities.Agenda) agendaModel {
	now := time.Now().UTC()
	return agendaModel{
		ID:          agendaRowID,
		Title:       agenda.Title,
		Description: agenda.Description,
		Expiry:      agenda.Expiry.UTC(),
		Status:      string(agenda.Status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func assembleAgenda(
	row agendaModel,
	proposalRows []proposalModel,
	voterRows []voterModel,
	winnerRows []winnerModel,
) entities.Agenda {
	proposals := make([]entities.Proposal, 0, len(proposalRows))
	for _, p := range proposalRows {
		proposals = append(proposals, entities.Proposal{
			ID:        entities.ProposalID(p.ProposalID),
			Name:      p.Name,
			VoteCount: p.VoteCount,
		})
	}

	voters := make(map[string]entities.VoterRecord, len(voterRows))
	for _, v := range voterRows {
		voters[v.Address] = entities.VoterRecord{
			Weight: v.Weight,
			Voted:  v.Voted,
			Vote:   entities.ProposalID(v.Vote),
		}
	}

	var winning []entities.ProposalID
	for _, w := range winnerRows {
		winning = append(winning, entities.ProposalID(w.ProposalID))
	}

	return entities.Agenda{
		Title:       row.Title,
		Description: row.Description,
		Expiry:      row.Expiry.UTC(),
		Proposals:   proposals,
		Voters:      voters,
		Status:      entities.Status(row.Status),
		WinningIDs:  winning,
	}
}

func marshalEnvelope(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}
