package entities

import (
	"time"

	domainerrors "govote/contexts/governance/agenda-ledger/domain/errors"
)

// ProposalID is a dense index assigned 0..N-1 in the order proposal names
// were supplied at initialization. Ids are never renumbered.
type ProposalID uint8

type Status string

const (
	StatusInProcess Status = "in_process"
	StatusFinished  Status = "finished"
)

type SenderKind string

const (
	SenderKindAccount  SenderKind = "account"
	SenderKindContract SenderKind = "contract"
)

// Sender is the caller identity supplied by the execution environment.
// Only primary account identities may mutate voting state.
type Sender struct {
	Address string
	Kind    SenderKind
}

type Proposal struct {
	ID        ProposalID
	Name      string
	VoteCount uint32
}

// VoterRecord tracks whether and how one account has voted. The zero value
// is the "never voted" state. Records are created lazily and never deleted;
// cancellation clears Voted, leaving Weight inert.
type VoterRecord struct {
	Weight uint32
	Voted  bool
	Vote   ProposalID
}

// Agenda is the single voting instance: proposal table, voter ledger, tally
// state, and immutable metadata. All mutation goes through CastVote,
// CancelVote, and Tally, which check every precondition before touching
// state so a failed call leaves the agenda unchanged.
type Agenda struct {
	Title       string
	Description string
	Expiry      time.Time
	Proposals   []Proposal
	Voters      map[string]VoterRecord
	Status      Status
	WinningIDs  []ProposalID
}

func NewAgenda(title string, description string, proposalNames []string, expiry time.Time) Agenda {
	proposals := make([]Proposal, 0, len(proposalNames))
	for i, name := range proposalNames {
		proposals = append(proposals, Proposal{
			ID:   ProposalID(i),
			Name: name,
		})
	}
	return Agenda{
		Title:       title,
		Description: description,
		Expiry:      expiry,
		Proposals:   proposals,
		Voters:      make(map[string]VoterRecord),
		Status:      StatusInProcess,
	}
}

// CastVote records or changes the sender's single vote. A prior vote is
// undone (decrement before increment, Weight is unsigned) so exactly one
// proposal's count reflects this voter afterwards. Preconditions are checked
// in order; the first failure wins and aborts with no mutation.
func (a *Agenda) CastVote(sender Sender, proposalID ProposalID, observedAt time.Time) error {
	if int(proposalID) >= len(a.Proposals) {
		return domainerrors.ErrProposalNotFound
	}
	if a.Status == StatusFinished {
		return domainerrors.ErrAlreadyFinished
	}
	if observedAt.After(a.Expiry) {
		return domainerrors.ErrExpired
	}
	if sender.Kind != SenderKindAccount {
		return domainerrors.ErrInvalidSender
	}

	record := a.Voters[sender.Address]
	if record.Voted {
		a.Proposals[record.Vote].VoteCount -= record.Weight
	}
	record.Weight = 1
	record.Voted = true
	record.Vote = proposalID
	a.Proposals[proposalID].VoteCount += record.Weight
	a.Voters[sender.Address] = record
	return nil
}

// CancelVote withdraws the sender's active vote. The record stays in the
// ledger with Voted cleared and Vote reset to the zero sentinel.
func (a *Agenda) CancelVote(sender Sender, observedAt time.Time) error {
	record, ok := a.Voters[sender.Address]
	if !ok {
		return domainerrors.ErrVoterNotFound
	}
	if !record.Voted {
		return domainerrors.ErrNotVoted
	}
	if a.Status == StatusFinished {
		return domainerrors.ErrAlreadyFinished
	}
	if observedAt.After(a.Expiry) {
		return domainerrors.ErrExpired
	}
	if sender.Kind != SenderKindAccount {
		return domainerrors.ErrInvalidSender
	}

	a.Proposals[record.Vote].VoteCount -= record.Weight
	record.Voted = false
	record.Vote = 0
	a.Voters[sender.Address] = record
	return nil
}

// Tally computes the set of proposals tied for the maximum vote count in a
// single pass over the stored proposal order, then freezes the agenda.
// With all counts at zero every proposal ties and all ids are included.
// Expiry is deliberately not checked: tallying may run early or late.
func (a *Agenda) Tally() error {
	if a.Status == StatusFinished {
		return domainerrors.ErrAlreadyFinished
	}

	var winningCount uint32
	winning := make([]ProposalID, 0, len(a.Proposals))
	for i := range a.Proposals {
		switch {
		case a.Proposals[i].VoteCount > winningCount:
			winningCount = a.Proposals[i].VoteCount
			winning = winning[:0]
			winning = append(winning, a.Proposals[i].ID)
		case a.Proposals[i].VoteCount == winningCount:
			winning = append(winning, a.Proposals[i].ID)
		}
	}
	a.WinningIDs = winning
	a.Status = StatusFinished
	return nil
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing their internal maps and slices.
func (a Agenda) Clone() Agenda {
	out := a
	out.Proposals = append([]Proposal(nil), a.Proposals...)
	out.WinningIDs = append([]ProposalID(nil), a.WinningIDs...)
	out.Voters = make(map[string]VoterRecord, len(a.Voters))
	for address, record := range a.Voters {
		out.Voters[address] = record
	}
	return out
}
