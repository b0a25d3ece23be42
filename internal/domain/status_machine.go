package domain

import "time"

// StatusEffects are the timestamps a transition stamps onto the ticket.
type StatusEffects struct {
	ResolvedAt *time.Time
	ClosedAt   *time.Time
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:        {TicketStatusInProgress},
	TicketStatusInProgress: {TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusClosed},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to TicketStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns its side effects. It performs no I/O.
func Transition(from, to TicketStatus, now time.Time) (StatusEffects, error) {
	if !CanTransition(from, to) {
		return StatusEffects{}, &InvalidStatusTransitionError{From: from, To: to}
	}

	var effects StatusEffects
	switch to {
	case TicketStatusResolved:
		resolvedAt := now
		effects.ResolvedAt = &resolvedAt
	case TicketStatusClosed:
		closedAt := now
		effects.ClosedAt = &closedAt
	}
	return effects, nil
}
