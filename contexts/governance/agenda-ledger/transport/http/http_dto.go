package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type InitializeAgendaRequest struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ProposalNames []string  `json:"proposal_names"`
	Expiry        time.Time `json:"expiry"`
}

type ProposalItem struct {
	ProposalID uint8  `json:"proposal_id"`
	Name       string `json:"name"`
	VoteCount  uint32 `json:"vote_count"`
}

type AgendaResponse struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Expiry      time.Time      `json:"expiry"`
	Status      string         `json:"status"`
	Proposals   []ProposalItem `json:"proposals"`
}

type CastVoteRequest struct {
	ProposalID uint8 `json:"proposal_id"`
}

type CastVoteResponse struct {
	ProposalID uint8  `json:"proposal_id"`
	Name       string `json:"name"`
	VoteCount  uint32 `json:"vote_count"`
	Weight     uint32 `json:"weight"`
	Changed    bool   `json:"changed"`
}

type TallyResponse struct {
	Status     string  `json:"status"`
	WinningIDs []uint8 `json:"winning_proposal_ids"`
}

type VoterItem struct {
	Address string `json:"address"`
	Weight  uint32 `json:"weight"`
	Voted   bool   `json:"voted"`
	Vote    uint8  `json:"vote"`
}

type ViewResponse struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Expiry      time.Time      `json:"expiry"`
	Status      string         `json:"status"`
	Proposals   []ProposalItem `json:"proposals"`
	Voters      []VoterItem    `json:"voters"`
	WinningIDs  []uint8        `json:"winning_proposal_ids"`
}
