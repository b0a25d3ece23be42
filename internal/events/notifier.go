package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/voc-service/internal/domain"
)

// Notifier turns lifecycle notifications into dispatched events.
type Notifier struct {
	dispatcher Dispatcher
	now        func() time.Time
}

// NewNotifier builds a notifier on top of dispatcher.
func NewNotifier(dispatcher Dispatcher) *Notifier {
	return &Notifier{dispatcher: dispatcher, now: time.Now}
}

// NotifyCreated publishes EventTicketCreated.
func (n *Notifier) NotifyCreated(ctx context.Context, ticket *domain.Ticket) error {
	return n.publish(ctx, EventTicketCreated, ticket, TicketCreatedPayload{
		Ticket: NewTicketSnapshot(ticket),
	})
}

// NotifyStatusChanged publishes EventTicketStatusChanged.
func (n *Notifier) NotifyStatusChanged(ctx context.Context, ticket *domain.Ticket, previous domain.TicketStatus) error {
	return n.publish(ctx, EventTicketStatusChanged, ticket, TicketStatusChangedPayload{
		Ticket:    NewTicketSnapshot(ticket),
		OldStatus: previous,
		NewStatus: ticket.Status,
	})
}

// NotifyAssigned publishes EventTicketAssigned.
func (n *Notifier) NotifyAssigned(ctx context.Context, ticket *domain.Ticket, assignee *domain.User) error {
	payload := TicketAssignedPayload{Ticket: NewTicketSnapshot(ticket)}
	if assignee != nil {
		payload.AssigneeID = assignee.ID
		payload.AssigneeName = assignee.Name
	}
	return n.publish(ctx, EventTicketAssigned, ticket, payload)
}

func (n *Notifier) publish(ctx context.Context, eventType EventType, ticket *domain.Ticket, payload interface{}) error {
	return n.dispatcher.Publish(ctx, Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TicketID:   ticket.ID,
		Identifier: ticket.Identifier,
		Timestamp:  n.now().UTC(),
		Payload:    payload,
	})
}
