package dto

import (
	"time"

	"github.com/spec-kit/voc-service/internal/domain"
)

// CreateTicketRequest is the public intake payload.
type CreateTicketRequest struct {
	Title         string  `json:"title" validate:"required,min=2,max=200"`
	Content       string  `json:"content" validate:"required,min=10,max=10000"`
	CategoryID    int64   `json:"categoryId" validate:"required,gt=0"`
	CustomerEmail string  `json:"customerEmail" validate:"required,email,max=100"`
	CustomerName  *string `json:"customerName" validate:"omitempty,max=100"`
	CustomerPhone *string `json:"customerPhone" validate:"omitempty,max=20"`
	Priority      *string `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

// UpdateTicketRequest replaces descriptive fields.
type UpdateTicketRequest struct {
	Title      string  `json:"title" validate:"required,min=2,max=200"`
	Content    string  `json:"content" validate:"required,min=10,max=10000"`
	Priority   *string `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	CategoryID *int64  `json:"categoryId" validate:"omitempty,gt=0"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=NEW IN_PROGRESS RESOLVED CLOSED"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID int64 `json:"assigneeId" validate:"required,gt=0"`
}

// CreateMemoRequest payload.
type CreateMemoRequest struct {
	Content  string `json:"content" validate:"required,max=2000"`
	Internal bool   `json:"internal"`
}

// CreateAttachmentRequest carries metadata of a file already stored in the blob store.
type CreateAttachmentRequest struct {
	FileName   string `json:"fileName" validate:"required,max=255"`
	StorageKey string `json:"storageKey" validate:"required,max=512"`
	MimeType   string `json:"mimeType" validate:"omitempty,max=100"`
	SizeBytes  int64  `json:"sizeBytes" validate:"required,gt=0"`
}

// TicketSummary is the list representation.
type TicketSummary struct {
	ID            int64                 `json:"id"`
	Identifier    string                `json:"ticketId"`
	Title         string                `json:"title"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	CategoryID    int64                 `json:"categoryId"`
	CustomerEmail string                `json:"customerEmail"`
	AssigneeID    *int64                `json:"assigneeId"`
	Version       int64                 `json:"version"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// TicketDetailResponse provides full ticket info for staff.
type TicketDetailResponse struct {
	TicketSummary
	Content       string               `json:"content"`
	CustomerName  *string              `json:"customerName"`
	CustomerPhone *string              `json:"customerPhone"`
	ResolvedAt    *time.Time           `json:"resolvedAt"`
	ClosedAt      *time.Time           `json:"closedAt"`
	Attachments   []AttachmentResponse `json:"attachments"`
	Memos         []MemoResponse       `json:"memos"`
}

// TrackingResponse is what a customer sees when tracking a ticket. Internal memos are omitted.
type TrackingResponse struct {
	Identifier string              `json:"ticketId"`
	Title      string              `json:"title"`
	Status     domain.TicketStatus `json:"status"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
	ResolvedAt *time.Time          `json:"resolvedAt"`
	Replies    []MemoResponse      `json:"replies"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"fileName"`
	StorageKey string    `json:"storageKey"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MemoResponse represents a staff note.
type MemoResponse struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"authorId"`
	Content   string    `json:"content"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusHistoryResponse is one ledger entry.
type StatusHistoryResponse struct {
	ID             int64               `json:"id"`
	PreviousStatus domain.TicketStatus `json:"previousStatus"`
	NewStatus      domain.TicketStatus `json:"newStatus"`
	ChangedBy      *int64              `json:"changedBy"`
	Reason         *string             `json:"changeReason"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// NewTicketSummary maps a ticket to its list form.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:            ticket.ID,
		Identifier:    ticket.Identifier,
		Title:         ticket.Title,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		CategoryID:    ticket.CategoryID,
		CustomerEmail: ticket.CustomerEmail,
		AssigneeID:    ticket.AssigneeID,
		Version:       ticket.Version,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

// NewTicketDetail maps a ticket and its children.
func NewTicketDetail(ticket *domain.Ticket) TicketDetailResponse {
	attachments := make([]AttachmentResponse, 0, len(ticket.Attachments))
	for i := range ticket.Attachments {
		attachments = append(attachments, NewAttachmentResponse(&ticket.Attachments[i]))
	}
	memos := make([]MemoResponse, 0, len(ticket.Memos))
	for i := range ticket.Memos {
		memos = append(memos, NewMemoResponse(&ticket.Memos[i]))
	}
	return TicketDetailResponse{
		TicketSummary: NewTicketSummary(ticket),
		Content:       ticket.Content,
		CustomerName:  ticket.CustomerName,
		CustomerPhone: ticket.CustomerPhone,
		ResolvedAt:    ticket.ResolvedAt,
		ClosedAt:      ticket.ClosedAt,
		Attachments:   attachments,
		Memos:         memos,
	}
}

// NewTrackingResponse maps the customer view.
func NewTrackingResponse(ticket *domain.Ticket) TrackingResponse {
	replies := []MemoResponse{}
	for i := range ticket.Memos {
		if !ticket.Memos[i].Internal {
			replies = append(replies, NewMemoResponse(&ticket.Memos[i]))
		}
	}
	return TrackingResponse{
		Identifier: ticket.Identifier,
		Title:      ticket.Title,
		Status:     ticket.Status,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
		ResolvedAt: ticket.ResolvedAt,
		Replies:    replies,
	}
}

func NewAttachmentResponse(att *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:         att.ID,
		FileName:   att.FileName,
		StorageKey: att.StorageKey,
		MimeType:   att.MimeType,
		SizeBytes:  att.SizeBytes,
		CreatedAt:  att.CreatedAt,
	}
}

func NewMemoResponse(memo *domain.Memo) MemoResponse {
	return MemoResponse{
		ID:        memo.ID,
		AuthorID:  memo.AuthorID,
		Content:   memo.Content,
		Internal:  memo.Internal,
		CreatedAt: memo.CreatedAt,
	}
}

// NewStatusHistory maps ledger entries in order.
func NewStatusHistory(entries []domain.StatusHistoryEntry) []StatusHistoryResponse {
	out := make([]StatusHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, StatusHistoryResponse{
			ID:             entry.ID,
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
			ChangedBy:      entry.ChangedBy,
			Reason:         entry.Reason,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return out
}
