package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"govote/contexts/governance/agenda-ledger/application/commands"
	"govote/contexts/governance/agenda-ledger/application/queries"
	"govote/contexts/governance/agenda-ledger/domain/entities"
	httptransport "govote/contexts/governance/agenda-ledger/transport/http"
)

type Handler struct {
	Engine commands.EngineUseCase
	Views  queries.ViewUseCase
	Logger *slog.Logger
}

func (h Handler) InitializeHandler(
	ctx context.Context,
	req httptransport.InitializeAgendaRequest,
) (httptransport.AgendaResponse, error) {
	agenda, err := h.Engine.InitializeAgenda(ctx, commands.InitializeAgendaCommand{
		Title:         req.Title,
		Description:   req.Description,
		ProposalNames: req.ProposalNames,
		Expiry:        req.Expiry,
	})
	if err != nil {
		return httptransport.AgendaResponse{}, err
	}
	return httptransport.AgendaResponse{
		Title:       agenda.Title,
		Description: agenda.Description,
		Expiry:      agenda.Expiry,
		Status:      string(agenda.Status),
		Proposals:   mapProposals(agenda.Proposals),
	}, nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	sender entities.Sender,
	observedAt time.Time,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Engine.CastVote(ctx, commands.CastVoteCommand{
		Sender:     sender,
		ProposalID: entities.ProposalID(req.ProposalID),
		ObservedAt: observedAt,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		ProposalID: uint8(result.Proposal.ID),
		Name:       result.Proposal.Name,
		VoteCount:  result.Proposal.VoteCount,
		Weight:     result.VoterRecord.Weight,
		Changed:    result.Changed,
	}, nil
}

func (h Handler) CancelVoteHandler(
	ctx context.Context,
	sender entities.Sender,
	observedAt time.Time,
) error {
	return h.Engine.CancelVote(ctx, commands.CancelVoteCommand{
		Sender:     sender,
		ObservedAt: observedAt,
	})
}

func (h Handler) TallyHandler(ctx context.Context) (httptransport.TallyResponse, error) {
	result, err := h.Engine.Tally(ctx)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return httptransport.TallyResponse{
		Status:     string(result.Status),
		WinningIDs: mapProposalIDs(result.WinningIDs),
	}, nil
}

func (h Handler) ViewHandler(ctx context.Context) (httptransport.ViewResponse, error) {
	view, err := h.Views.Snapshot(ctx)
	if err != nil {
		return httptransport.ViewResponse{}, err
	}
	voters := make([]httptransport.VoterItem, 0, len(view.Voters))
	for _, voter := range view.Voters {
		voters = append(voters, httptransport.VoterItem{
			Address: voter.Address,
			Weight:  voter.Record.Weight,
			Voted:   voter.Record.Voted,
			Vote:    uint8(voter.Record.Vote),
		})
	}
	return httptransport.ViewResponse{
		Title:       view.Title,
		Description: view.Description,
		Expiry:      view.Expiry,
		Status:      string(view.Status),
		Proposals:   mapProposals(view.Proposals),
		Voters:      voters,
		WinningIDs:  mapProposalIDs(view.WinningIDs),
	}, nil
}

func mapProposals(proposals []entities.Proposal) []httptransport.ProposalItem {
	items := make([]httptransport.ProposalItem, 0, len(proposals))
	for _, proposal := range proposals {
		items = append(items, httptransport.ProposalItem{
			ProposalID: uint8(proposal.ID),
			Name:       proposal.Name,
			VoteCount:  proposal.VoteCount,
		})
	}
	return items
}

func mapProposalIDs(ids []entities.ProposalID) []uint8 {
	out := make([]uint8, 0, len(ids))
	for _, id := range ids {
		out = append(out, uint8(id))
	}
	return out
}
