package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "govote/contexts/governance/agenda-ledger/application"
	"govote/contexts/governance/agenda-ledger/domain/entities"
	domainerrors "govote/contexts/governance/agenda-ledger/domain/errors"
	"govote/contexts/governance/agenda-ledger/ports"
)

// InitializeAgendaCommand creates the single agenda instance.
type InitializeAgendaCommand struct {
	Title         string
	Description   string
	ProposalNames []string
	Expiry        time.Time
}

// CastVoteCommand records or changes the sender's one weighted vote.
// A zero ObservedAt falls back to the engine clock.
type CastVoteCommand struct {
	Sender     entities.Sender
	ProposalID entities.ProposalID
	ObservedAt time.Time
}

// CancelVoteCommand withdraws the sender's active vote.
type CancelVoteCommand struct {
	Sender     entities.Sender
	ObservedAt time.Time
}

// CastVoteResult reports whether the call replaced an earlier vote, so the
// transport layer can surface change-vs-first-vote semantics.
type CastVoteResult struct {
	Proposal    entities.Proposal
	Changed     bool
	PriorVote   entities.ProposalID
	VoterRecord entities.VoterRecord
}

// TallyResult carries the frozen winning set.
type TallyResult struct {
	WinningIDs []entities.ProposalID
	Status     entities.Status
}

// EngineUseCase is the voting engine: the sole writer of agenda state. Each
// method loads the aggregate, applies the state machine, and saves the whole
// snapshot, so every failure aborts with no partial mutation.
type EngineUseCase struct {
	Agendas ports.AgendaRepository
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

// InitializeAgenda builds the proposal table from the supplied names, ids
// assigned densely in list order. It fails if the agenda already exists.
func (uc EngineUseCase) InitializeAgenda(ctx context.Context, cmd InitializeAgendaCommand) (entities.Agenda, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("agenda initialization started",
		"event", "agenda_initialize_started",
		"module", "governance/agenda-ledger",
		"layer", "application",
		"title", strings.TrimSpace(cmd.Title),
		"proposal_count", len(cmd.ProposalNames),
	)

	if strings.TrimSpace(cmd.Title) == "" || len(cmd.ProposalNames) == 0 || cmd.Expiry.IsZero() {
		logger.Warn("agenda initialization validation failed",
			"event", "agenda_initialize_validation_failed",
			"module", "governance/agenda-ledger",
			"layer", "application",
			"title", strings.TrimSpace(cmd.Title),
			"proposal_count", len(cmd.ProposalNames),
		)
		return entities.Agenda{}, domainerrors.ErrInvalidParams
	}
	for _, name := range cmd.ProposalNames {
		if strings.TrimSpace(name) == "" {
			return entities.Agenda{}, domainerrors.ErrInvalidParams
		}
	}

	agenda := entities.NewAgenda(
		strings.TrimSpace(cmd.Title),
		strings.TrimSpace(cmd.Description),
		cmd.ProposalNames,
		cmd.Expiry.UTC(),
	)
	if err := uc.Agendas.CreateAgenda(ctx, agenda); err != nil {
		return entities.Agenda{}, err
	}

	logger.Info("agenda initialized",
		"event", "agenda_initialized",
		"module", "governance/agenda-ledger",
		"layer", "application",
		"title", agenda.Title,
		"proposal_count", len(agenda.Proposals),
		"expiry", agenda.Expiry.Format(time.RFC3339),
	)
	return agenda, nil
}

// CastVote applies the cast/change-vote state transition. A repeat vote for
// the same proposal leaves all counts unchanged; a switched vote moves the
// voter's weight from the old proposal to the new one.
func (uc EngineUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("vote cast processing started",
		"event", "agenda_vote_cast_started",
		"module", "governance/agenda-ledger",
		"layer", "application",
		"sender", strings.TrimSpace(cmd.Sender.Address),
		"sender_kind", string(cmd.Sender.Kind),
		"proposal_id", uint8(cmd.ProposalID),
	)

	agenda, err := uc.Agendas.GetAgenda(ctx)
	if err != nil {
		return CastVoteResult{}, err
	}

	observedAt := uc.resolveObservedAt(cmd.ObservedAt)
	prior, hadVoted := agenda.Voters[cmd.Sender.Address]
	if err := agenda.CastVote(cmd.Sender, cmd.ProposalID, observedAt); err != nil {
		logger.Warn("vote cast rejected",
			"event", "agenda_vote_cast_rejected",
			"module", "governance/agenda-ledger",
			"layer", "application",
			"sender", strings.TrimSpace(cmd.Sender.Address),
			"proposal_id", uint8(cmd.ProposalID),
			"error", err.Error(),
		)
		return CastVoteResult{}, err
	}
	if err := uc.Agendas.SaveAgenda(ctx, agenda); err != nil {
		return CastVoteResult{}, err
	}

	record := agenda.Voters[cmd.Sender.Address]
	changed := hadVoted && prior.Voted
	eventType := "vote.cast"
	data := map[string]any{
		"sender":      cmd.Sender.Address,
		"proposal_id": uint8(cmd.ProposalID),
		"weight":      record.Weight,
		"observed_at": observedAt.Format(time.RFC3339),
	}
	if changed {
		eventType = "vote.changed"
		data["prior_proposal_id"] = uint8(prior.Vote)
	}
	if err := uc.appendAgendaEvent(ctx, eventType, cmd.Sender.Address, observedAt, data); err != nil {
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "agenda_vote_cast",
		"module", "governance/agenda-ledger",
		"layer", "application",
		"sender", strings.TrimSpace(cmd.Sender.Address),
		"proposal_id", uint8(cmd.ProposalID),
		"changed", changed,
		"vote_count", agenda.Proposals[cmd.ProposalID].VoteCount,
	)
	return CastVoteResult{
		Proposal:    agenda.Proposals[cmd.ProposalID],
		Changed:     changed,
		PriorVote:   prior.Vote,
		VoterRecord: record,
	}, nil
}

// CancelVote withdraws the sender's vote, returning the voter's weight to an
// inert state while keeping the ledger entry.
func (uc EngineUseCase) CancelVote(ctx context.Context, cmd CancelVoteCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("vote cancel processing started",
		"event", "agenda_vote_cancel_started",
		"module", "governance/agenda-ledger",
		"layer", "application",
		"sender", strings.TrimSpace(cmd.Sender.Address),
		"sender_kind", string(cmd.Sender.Kind),
	)

	agenda, err := uc.Agendas.GetAgenda(ctx)
	if err != nil {
		return err
	}

	observedAt := uc.resolveObservedAt(cmd.ObservedAt)
	prior := agenda.Voters[cmd.Sender.Address]
	if err := agenda.CancelVote(cmd.Sender, observedAt); err != nil {
		logger.Warn("vote cancel rejected",
			"event", "agenda_vote_cancel_rejected",
			"module", "governance/agenda-ledger",
			"layer", "application",
			"sender", strings.TrimSpace(cmd.Sender.Address),
			"error", err.Error(),
		)
		return err
	}
	if err := uc.Agendas.SaveAgenda(ctx, agenda); err != nil {
		return err
	}

	if err := uc.appendAgendaEvent(ctx, "vote.cancelled", cmd.Sender.Address, observedAt, map[string]any{
		"sender":      cmd.Sender.Address,
		"proposal_id": uint8(prior.Vote),
		"weight":      prior.Weight,
		"observed_at": observedAt.Format(time.RFC3339),
	}); err != nil {
		return err
	}

	logger.Info("vote cancelled",
		"event", "agenda_vote_cancelled",
		"module", "governance/agenda-ledger",
		"layer", "application",
		"sender", strings.TrimSpace(cmd.Sender.Address),
		"proposal_id", uint8(prior.Vote),
	)
	return nil
}

// Tally freezes the agenda and computes the winning proposal set. Any caller
// may run it, before or after expiry; only a finished agenda rejects it.
func (uc EngineUseCase) Tally(ctx context.Context) (TallyResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("tally processing started",
		"event", "agenda_tally_started",
		"module", "governance/agenda-ledger",
		"layer", "application",
	)

	agenda, err := uc.Agendas.GetAgenda(ctx)
	if err != nil {
		return TallyResult{}, err
	}
	if err := agenda.Tally(); err != nil {
		logger.Warn("tally rejected",
			"event", "agenda_tally_rejected",
			"module", "governance/agenda-ledger",
			"layer", "application",
			"error", err.Error(),
		)
		return TallyResult{}, err
	}
	if err := uc.Agendas.SaveAgenda(ctx, agenda); err != nil {
		return TallyResult{}, err
	}

	winningIDs := make([]uint8, 0, len(agenda.WinningIDs))
	for _, id := range agenda.WinningIDs {
		winningIDs = append(winningIDs, uint8(id))
	}
	occurredAt := uc.resolveObservedAt(time.Time{})
	if err := uc.appendAgendaEvent(ctx, "agenda.tallied", agenda.Title, occurredAt, map[string]any{
		"winning_proposal_ids": winningIDs,
		"status":               string(agenda.Status),
	}); err != nil {
		return TallyResult{}, err
	}

	logger.Info("tally finished",
		"event", "agenda_tally_finished",
		"module", "governance/agenda-ledger",
		"layer", "application",
		"winning_count", len(agenda.WinningIDs),
	)
	return TallyResult{
		WinningIDs: agenda.WinningIDs,
		Status:     agenda.Status,
	}, nil
}

func (uc EngineUseCase) resolveObservedAt(observedAt time.Time) time.Time {
	if !observedAt.IsZero() {
		return observedAt.UTC()
	}
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
