package events

import (
	"time"

	"github.com/spec-kit/voc-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
)

// Event represents a domain event emitted after a ticket change commits.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TicketID   int64       `json:"ticket_id"`
	Identifier string      `json:"ticket_identifier"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// TicketSnapshot is the ticket state carried by every event.
type TicketSnapshot struct {
	ID            int64                 `json:"id"`
	Identifier    string                `json:"ticket_identifier"`
	Title         string                `json:"title"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	CategoryID    int64                 `json:"category_id"`
	CustomerEmail string                `json:"customer_email"`
	CustomerName  string                `json:"customer_name,omitempty"`
	AssigneeID    *int64                `json:"assignee_id,omitempty"`
}

// NewTicketSnapshot copies the fields notifications need.
func NewTicketSnapshot(ticket *domain.Ticket) TicketSnapshot {
	snapshot := TicketSnapshot{
		ID:            ticket.ID,
		Identifier:    ticket.Identifier,
		Title:         ticket.Title,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		CategoryID:    ticket.CategoryID,
		CustomerEmail: ticket.CustomerEmail,
	}
	if ticket.CustomerName != nil {
		snapshot.CustomerName = *ticket.CustomerName
	}
	if ticket.AssigneeID != nil {
		assignee := *ticket.AssigneeID
		snapshot.AssigneeID = &assignee
	}
	return snapshot
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket TicketSnapshot `json:"ticket"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Ticket    TicketSnapshot      `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Ticket       TicketSnapshot `json:"ticket"`
	AssigneeID   int64          `json:"assignee_id"`
	AssigneeName string         `json:"assignee_name"`
}
