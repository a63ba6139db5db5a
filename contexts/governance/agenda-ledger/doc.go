// Package agendaledger implements the single-agenda voting ledger inside the
// governance context.
//
// The module owns the voting state machine (cast/change vote, cancel vote,
// one-shot tally) for a fixed proposal set, the lazily populated voter
// ledger, and the read-only projection used for display. Any account holds
// at most one vote of weight 1 and may change or withdraw it until the
// tally freezes the agenda. The expiry deadline is advisory: votes are
// rejected after it, but the tally itself may run early or late.
// Business rules live in the domain/application layers; infrastructure stays
// behind ports and adapters.
package agendaledger
