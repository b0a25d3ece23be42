package service

import (
	"context"
	"time"

	"github.com/spec-kit/voc-service/internal/domain"
)

// NotificationPort receives best-effort lifecycle notifications after a change commits.
type NotificationPort interface {
	NotifyCreated(ctx context.Context, ticket *domain.Ticket) error
	NotifyStatusChanged(ctx context.Context, ticket *domain.Ticket, previous domain.TicketStatus) error
	NotifyAssigned(ctx context.Context, ticket *domain.Ticket, assignee *domain.User) error
}

// LearningPort feeds resolved tickets to the progressive learning service.
type LearningPort interface {
	LearnFromResolved(ctx context.Context, ticketID int64, title, content, resolutionNote string) error
}

// Clock returns the current time.
type Clock func() time.Time
