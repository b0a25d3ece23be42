package domain

import "time"

// StatusHistoryEntry is an immutable ledger record of one accepted transition.
type StatusHistoryEntry struct {
	ID             int64
	TicketID       int64
	PreviousStatus TicketStatus
	NewStatus      TicketStatus
	ChangedBy      *int64
	Reason         *string
	CreatedAt      time.Time
}
