package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"govote/contexts/governance/agenda-ledger/adapters/memory"
	"govote/contexts/governance/agenda-ledger/domain/entities"
	domainerrors "govote/contexts/governance/agenda-ledger/domain/errors"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type sequenceIDGenerator struct {
	next int
}

func (g *sequenceIDGenerator) NewID(context.Context) (string, error) {
	g.next++
	return fmt.Sprintf("evt-%04d", g.next), nil
}

var engineExpiry = time.Date(2026, time.April, 10, 18, 0, 0, 0, time.UTC)

func newTestEngine() (EngineUseCase, *memory.Store) {
	store := memory.NewStore()
	engine := EngineUseCase{
		Agendas: store,
		Outbox:  store,
		Clock:   fixedClock{now: engineExpiry.Add(-2 * time.Hour)},
		IDGen:   &sequenceIDGenerator{},
	}
	return engine, store
}

func initializedEngine(t *testing.T) (EngineUseCase, *memory.Store) {
	t.Helper()
	engine, store := newTestEngine()
	_, err := engine.InitializeAgenda(context.Background(), InitializeAgendaCommand{
		Title:         "budget 2026",
		Description:   "annual budget vote",
		ProposalNames: []string{"alpha", "beta", "gamma"},
		Expiry:        engineExpiry,
	})
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	return engine, store
}

func pendingEventTypes(t *testing.T, store *memory.Store) []string {
	t.Helper()
	messages, err := store.ListPendingOutbox(context.Background(), 100)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	types := make([]string, 0, len(messages))
	for _, message := range messages {
		types = append(types, message.EventType)
	}
	return types
}

func TestInitializeAgendaValidatesInput(t *testing.T) {
	engine, _ := newTestEngine()
	cases := []InitializeAgendaCommand{
		{Title: "  ", ProposalNames: []string{"a"}, Expiry: engineExpiry},
		{Title: "t", ProposalNames: nil, Expiry: engineExpiry},
		{Title: "t", ProposalNames: []string{"a"}},
		{Title: "t", ProposalNames: []string{"a", " "}, Expiry: engineExpiry},
	}
	for i, cmd := range cases {
		if _, err := engine.InitializeAgenda(context.Background(), cmd); !errors.Is(err, domainerrors.ErrInvalidParams) {
			t.Fatalf("case %d: expected ErrInvalidParams, got %v", i, err)
		}
	}
}

func TestInitializeAgendaIsOneShot(t *testing.T) {
	engine, _ := initializedEngine(t)
	_, err := engine.InitializeAgenda(context.Background(), InitializeAgendaCommand{
		Title:         "second",
		ProposalNames: []string{"x"},
		Expiry:        engineExpiry,
	})
	if !errors.Is(err, domainerrors.ErrAgendaExists) {
		t.Fatalf("expected ErrAgendaExists, got %v", err)
	}
}

func TestCastVoteBeforeInitializationFails(t *testing.T) {
	engine, _ := newTestEngine()
	_, err := engine.CastVote(context.Background(), CastVoteCommand{
		Sender:     entities.Sender{Address: "acc-1", Kind: entities.SenderKindAccount},
		ProposalID: 0,
	})
	if !errors.Is(err, domainerrors.ErrAgendaNotFound) {
		t.Fatalf("expected ErrAgendaNotFound, got %v", err)
	}
}

func TestCastVotePersistsAndEmitsEvent(t *testing.T) {
	engine, store := initializedEngine(t)

	result, err := engine.CastVote(context.Background(), CastVoteCommand{
		Sender:     entities.Sender{Address: "acc-1", Kind: entities.SenderKindAccount},
		ProposalID: 1,
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if result.Changed {
		t.Fatalf("first vote reported as change")
	}
	if result.Proposal.VoteCount != 1 {
		t.Fatalf("expected count 1, got %d", result.Proposal.VoteCount)
	}

	agenda, err := store.GetAgenda(context.Background())
	if err != nil {
		t.Fatalf("get agenda failed: %v", err)
	}
	if agenda.Proposals[1].VoteCount != 1 {
		t.Fatalf("vote not persisted, count %d", agenda.Proposals[1].VoteCount)
	}

	types := pendingEventTypes(t, store)
	if len(types) != 1 || types[0] != "vote.cast" {
		t.Fatalf("expected single vote.cast event, got %v", types)
	}
}

func TestCastVoteSwitchEmitsChangeEvent(t *testing.T) {
	engine, store := initializedEngine(t)
	sender := entities.Sender{Address: "acc-1", Kind: entities.SenderKindAccount}

	if _, err := engine.CastVote(context.Background(), CastVoteCommand{Sender: sender, ProposalID: 0}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	result, err := engine.CastVote(context.Background(), CastVoteCommand{Sender: sender, ProposalID: 2})
	if err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if !result.Changed || result.PriorVote != 0 {
		t.Fatalf("switch metadata wrong: %+v", result)
	}

	messages, err := store.ListPendingOutbox(context.Background(), 100)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(messages) != 2 || messages[1].EventType != "vote.changed" {
		t.Fatalf("expected vote.changed second, got %v", pendingEventTypes(t, store))
	}
	var envelope struct {
		Data struct {
			PriorProposalID uint8 `json:"prior_proposal_id"`
			ProposalID      uint8 `json:"proposal_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(messages[1].Payload, &envelope); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if envelope.Data.PriorProposalID != 0 || envelope.Data.ProposalID != 2 {
		t.Fatalf("change payload wrong: %+v", envelope.Data)
	}
}

func TestCastVoteRejectionEmitsNoEvent(t *testing.T) {
	engine, store := initializedEngine(t)
	_, err := engine.CastVote(context.Background(), CastVoteCommand{
		Sender:     entities.Sender{Address: "con-1", Kind: entities.SenderKindContract},
		ProposalID: 0,
	})
	if !errors.Is(err, domainerrors.ErrInvalidSender) {
		t.Fatalf("expected ErrInvalidSender, got %v", err)
	}
	if types := pendingEventTypes(t, store); len(types) != 0 {
		t.Fatalf("rejected vote emitted events: %v", types)
	}
}

func TestCastVoteHonorsObservedTimeOverClock(t *testing.T) {
	engine, _ := initializedEngine(t)
	// Clock is well before expiry; the explicit observation is after it.
	_, err := engine.CastVote(context.Background(), CastVoteCommand{
		Sender:     entities.Sender{Address: "acc-1", Kind: entities.SenderKindAccount},
		ProposalID: 0,
		ObservedAt: engineExpiry.Add(time.Minute),
	})
	if !errors.Is(err, domainerrors.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestCancelVotePersistsAndEmitsEvent(t *testing.T) {
	engine, store := initializedEngine(t)
	sender := entities.Sender{Address: "acc-1", Kind: entities.SenderKindAccount}

	if _, err := engine.CastVote(context.Background(), CastVoteCommand{Sender: sender, ProposalID: 1}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if err := engine.CancelVote(context.Background(), CancelVoteCommand{Sender: sender}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	agenda, err := store.GetAgenda(context.Background())
	if err != nil {
		t.Fatalf("get agenda failed: %v", err)
	}
	if agenda.Proposals[1].VoteCount != 0 {
		t.Fatalf("cancel not persisted, count %d", agenda.Proposals[1].VoteCount)
	}
	if agenda.Voters["acc-1"].Voted {
		t.Fatalf("voter still marked voted")
	}

	types := pendingEventTypes(t, store)
	if len(types) != 2 || types[1] != "vote.cancelled" {
		t.Fatalf("expected vote.cancelled, got %v", types)
	}
}

func TestCancelVoteWithoutRecordFails(t *testing.T) {
	engine, _ := initializedEngine(t)
	err := engine.CancelVote(context.Background(), CancelVoteCommand{
		Sender: entities.Sender{Address: "ghost", Kind: entities.SenderKindAccount},
	})
	if !errors.Is(err, domainerrors.ErrVoterNotFound) {
		t.Fatalf("expected ErrVoterNotFound, got %v", err)
	}
}

func TestTallyFreezesAgendaAndEmitsEvent(t *testing.T) {
	engine, store := initializedEngine(t)
	for i, address := range []string{"acc-1", "acc-2", "acc-3"} {
		proposal := entities.ProposalID(0)
		if i == 2 {
			proposal = 1
		}
		if _, err := engine.CastVote(context.Background(), CastVoteCommand{
			Sender:     entities.Sender{Address: address, Kind: entities.SenderKindAccount},
			ProposalID: proposal,
		}); err != nil {
			t.Fatalf("vote %s failed: %v", address, err)
		}
	}

	result, err := engine.Tally(context.Background())
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}
	if result.Status != entities.StatusFinished {
		t.Fatalf("status after tally: %s", result.Status)
	}
	if len(result.WinningIDs) != 1 || result.WinningIDs[0] != 0 {
		t.Fatalf("expected winner [0], got %v", result.WinningIDs)
	}

	agenda, err := store.GetAgenda(context.Background())
	if err != nil {
		t.Fatalf("get agenda failed: %v", err)
	}
	if agenda.Status != entities.StatusFinished {
		t.Fatalf("tally not persisted")
	}

	types := pendingEventTypes(t, store)
	if types[len(types)-1] != "agenda.tallied" {
		t.Fatalf("expected agenda.tallied last, got %v", types)
	}

	if _, err := engine.Tally(context.Background()); !errors.Is(err, domainerrors.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished on second tally, got %v", err)
	}
}

func TestVoteAfterTallyIsRejected(t *testing.T) {
	engine, _ := initializedEngine(t)
	if _, err := engine.Tally(context.Background()); err != nil {
		t.Fatalf("tally failed: %v", err)
	}
	_, err := engine.CastVote(context.Background(), CastVoteCommand{
		Sender:     entities.Sender{Address: "acc-1", Kind: entities.SenderKindAccount},
		ProposalID: 0,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
}
