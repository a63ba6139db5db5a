package queries

import (
	"context"
	"sort"
	"time"

	"govote/contexts/governance/agenda-ledger/domain/entities"
	"govote/contexts/governance/agenda-ledger/ports"
)

// VoterView is one ledger entry flattened for display.
type VoterView struct {
	Address string
	Record  entities.VoterRecord
}

// AgendaView is the read-only snapshot of the whole agenda: voters,
// proposals with current counts, tally state, and metadata.
type AgendaView struct {
	Title       string
	Description string
	Expiry      time.Time
	Status      entities.Status
	Proposals   []entities.Proposal
	Voters      []VoterView
	WinningIDs  []entities.ProposalID
}

// ViewUseCase assembles display snapshots. It never mutates state.
type ViewUseCase struct {
	Agendas ports.AgendaRepository
}

// Snapshot flattens the agenda into a displayable view. Voters are sorted by
// address so the projection is deterministic.
func (uc ViewUseCase) Snapshot(ctx context.Context) (AgendaView, error) {
	agenda, err := uc.Agendas.GetAgenda(ctx)
	if err != nil {
		return AgendaView{}, err
	}

	voters := make([]VoterView, 0, len(agenda.Voters))
	for address, record := range agenda.Voters {
		voters = append(voters, VoterView{Address: address, Record: record})
	}
	sort.Slice(voters, func(i, j int) bool {
		return voters[i].Address < voters[j].Address
	})

	return AgendaView{
		Title:       agenda.Title,
		Description: agenda.Description,
		Expiry:      agenda.Expiry,
		Status:      agenda.Status,
		Proposals:   agenda.Proposals,
		Voters:      voters,
		WinningIDs:  agenda.WinningIDs,
	}, nil
}
