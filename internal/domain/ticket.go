package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// ParseTicketStatus converts a raw value to a known status.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return status, nil
	}
	return "", NewValidationError("status", "unknown status "+raw)
}

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ParseTicketPriority converts a raw value to a known priority.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	priority := TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
	switch priority {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return priority, nil
	}
	return "", NewValidationError("priority", "unknown priority "+raw)
}

// Ticket is the aggregate for customer complaints.
type Ticket struct {
	ID            int64
	Identifier    string
	Version       int64
	Title         string
	Content       string
	Status        TicketStatus
	Priority      TicketPriority
	CategoryID    int64
	CustomerEmail string
	CustomerName  *string
	CustomerPhone *string
	AssigneeID    *int64
	ResolvedAt    *time.Time
	ClosedAt      *time.Time
	Attachments   []Attachment
	Memos         []Memo
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Attachment is file metadata owned by a ticket. The blob lives in external storage.
type Attachment struct {
	ID         int64
	TicketID   int64
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}

// Memo is a staff note owned by a ticket.
type Memo struct {
	ID        int64
	TicketID  int64
	AuthorID  int64
	Content   string
	Internal  bool
	CreatedAt time.Time
}

// ChangeStatus moves the ticket through the state machine and returns the previous status.
// On an illegal edge the ticket is left untouched.
func (t *Ticket) ChangeStatus(to TicketStatus, now time.Time) (TicketStatus, error) {
	effects, err := Transition(t.Status, to, now)
	if err != nil {
		return t.Status, err
	}
	previous := t.Status
	t.Status = to
	if effects.ResolvedAt != nil {
		t.ResolvedAt = effects.ResolvedAt
	}
	if effects.ClosedAt != nil {
		t.ClosedAt = effects.ClosedAt
	}
	t.UpdatedAt = now
	return previous, nil
}

// Assign sets the assignee. A NEW ticket is moved to IN_PROGRESS; the returned flag reports that.
func (t *Ticket) Assign(assigneeID int64, now time.Time) (bool, error) {
	if assigneeID <= 0 {
		return false, NewValidationError("assigneeId", "must be positive")
	}
	moved := false
	if t.Status == TicketStatusNew {
		if _, err := t.ChangeStatus(TicketStatusInProgress, now); err != nil {
			return false, err
		}
		moved = true
	}
	t.AssigneeID = &assigneeID
	t.UpdatedAt = now
	return moved, nil
}

// Unassign clears the assignee without touching status.
func (t *Ticket) Unassign(now time.Time) {
	t.AssigneeID = nil
	t.UpdatedAt = now
}

// UpdateInfo overwrites title and content, and priority when provided.
func (t *Ticket) UpdateInfo(title, content string, priority *TicketPriority, now time.Time) {
	t.Title = title
	t.Content = content
	if priority != nil {
		t.Priority = *priority
	}
	t.UpdatedAt = now
}

// ChangeCategory moves the ticket to another category.
func (t *Ticket) ChangeCategory(categoryID int64, now time.Time) error {
	if categoryID <= 0 {
		return NewValidationError("categoryId", "must be positive")
	}
	t.CategoryID = categoryID
	t.UpdatedAt = now
	return nil
}

// ChangePriority sets the priority independent of status.
func (t *Ticket) ChangePriority(priority TicketPriority, now time.Time) error {
	if _, err := ParseTicketPriority(string(priority)); err != nil {
		return err
	}
	t.Priority = priority
	t.UpdatedAt = now
	return nil
}

// IsAssigned reports whether an assignee is set.
func (t *Ticket) IsAssigned() bool {
	return t.AssigneeID != nil
}
