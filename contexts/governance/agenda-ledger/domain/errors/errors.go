package errors

import "errors"

var (
	ErrInvalidParams    = errors.New("invalid agenda parameters")
	ErrAgendaExists     = errors.New("agenda is already initialized")
	ErrAgendaNotFound   = errors.New("agenda is not initialized")
	ErrProposalNotFound = errors.New("proposal is not found")
	ErrVoterNotFound    = errors.New("voter is not found")
	ErrNotVoted         = errors.New("voter did not vote")
	ErrAlreadyFinished  = errors.New("tally is already finished")
	ErrExpired          = errors.New("voting deadline has passed")
	ErrInvalidSender    = errors.New("sender must be a primary account")
)
