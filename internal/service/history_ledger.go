package service

import (
	"context"

	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/repository"
)

// HistoryLedger appends and reads the status history of tickets.
type HistoryLedger struct {
	store repository.StatusHistoryRepository
	now   Clock
}

// NewHistoryLedger constructs the ledger.
func NewHistoryLedger(store repository.StatusHistoryRepository, clock Clock) *HistoryLedger {
	return &HistoryLedger{store: store, now: clock}
}

// Append records one accepted transition. It must run in the same unit of work as the ticket save.
func (l *HistoryLedger) Append(ctx context.Context, ticketID int64, previous, next domain.TicketStatus, changedBy *int64, reason *string) error {
	entry := &domain.StatusHistoryEntry{
		TicketID:       ticketID,
		PreviousStatus: previous,
		NewStatus:      next,
		ChangedBy:      changedBy,
		Reason:         reason,
		CreatedAt:      l.now(),
	}
	return l.store.Append(ctx, entry)
}

// LoadByTicket returns the entries for ticketID, oldest first.
func (l *HistoryLedger) LoadByTicket(ctx context.Context, ticketID int64) ([]domain.StatusHistoryEntry, error) {
	return l.store.ListByTicket(ctx, ticketID)
}
