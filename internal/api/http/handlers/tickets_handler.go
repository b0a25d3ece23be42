package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voc-service/internal/api/dto"
	"github.com/spec-kit/voc-service/internal/auth"
	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/service"
	"github.com/spec-kit/voc-service/pkg/util"
)

// TicketLifecycle is the ticket service surface the handlers need.
type TicketLifecycle interface {
	CreateTicket(ctx context.Context, cmd service.CreateTicketCommand) (*domain.Ticket, error)
	UpdateInfo(ctx context.Context, cmd service.UpdateTicketCommand) (*domain.Ticket, error)
	ChangeStatus(ctx context.Context, cmd service.ChangeStatusCommand) (*domain.Ticket, error)
	Assign(ctx context.Context, cmd service.AssignCommand) (*domain.Ticket, error)
	Unassign(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	GetStatusHistory(ctx context.Context, ticketID int64) ([]domain.StatusHistoryEntry, error)
	GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	TrackTicket(ctx context.Context, identifier, email string) (*domain.Ticket, error)
	ListTickets(ctx context.Context, filter service.TicketListFilter) ([]domain.Ticket, error)
	AddMemo(ctx context.Context, cmd service.AddMemoCommand) (*domain.Memo, error)
	AddAttachment(ctx context.Context, cmd service.AddAttachmentCommand) (*domain.Attachment, error)
}

// TicketsHandler serves public intake and staff ticket endpoints.
type TicketsHandler struct {
	service TicketLifecycle
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketLifecycle) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), service.CreateTicketCommand{
		Title:         req.Title,
		Content:       req.Content,
		CategoryID:    req.CategoryID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Priority:      priorityPtr(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":        ticket.ID,
		"ticketId":  ticket.Identifier,
		"status":    ticket.Status,
		"createdAt": ticket.CreatedAt,
	}})
}

// TrackTicket GET /tickets/track/:identifier?email=.
func (h *TicketsHandler) TrackTicket(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return util.NewValidationError("email query parameter required", map[string]any{"field": "email"})
	}
	ticket, err := h.service.TrackTicket(c.UserContext(), c.Params("identifier"), email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrackingResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": fiber.Map{"limit": filter.Limit, "offset": filter.Offset}})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.UpdateInfo(c.UserContext(), service.UpdateTicketCommand{
		TicketID:   id,
		Title:      req.Title,
		Content:    req.Content,
		Priority:   priorityPtr(req.Priority),
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// ChangeStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), service.ChangeStatusCommand{
		TicketID:  id,
		Status:    domain.TicketStatus(req.Status),
		Reason:    req.Reason,
		ChangedBy: callerID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Assign PATCH /tickets/:id/assignee.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Assign(c.UserContext(), service.AssignCommand{
		TicketID:   id,
		AssigneeID: req.AssigneeID,
		ChangedBy:  callerID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Unassign DELETE /tickets/:id/assignee.
func (h *TicketsHandler) Unassign(c *fiber.Ctx) error {
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Unassign(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	entries, err := h.service.GetStatusHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatusHistory(entries)})
}

// AddMemo POST /tickets/:id/memos.
func (h *TicketsHandler) AddMemo(c *fiber.Ctx) error {
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("staff required")
	}
	var req dto.CreateMemoRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	memo, err := h.service.AddMemo(c.UserContext(), service.AddMemoCommand{
		TicketID: id,
		AuthorID: principal.UserID(),
		Content:  req.Content,
		Internal: req.Internal,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewMemoResponse(memo)})
}

// AddAttachment POST /tickets/:id/attachments.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.CreateAttachmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	attachment, err := h.service.AddAttachment(c.UserContext(), service.AddAttachmentCommand{
		TicketID:   id,
		FileName:   req.FileName,
		StorageKey: req.StorageKey,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAttachmentResponse(attachment)})
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, err := domain.ParseTicketStatus(strings.TrimSpace(part))
			if err != nil {
				return filter, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			priority, err := domain.ParseTicketPriority(strings.TrimSpace(part))
			if err != nil {
				return filter, err
			}
			filter.Priorities = append(filter.Priorities, priority)
		}
	}
	if v := parseInt64(c.Query("assigneeId")); v != nil {
		filter.AssigneeID = v
	}
	if v := parseInt64(c.Query("categoryId")); v != nil {
		filter.CategoryID = v
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		filter.SearchTerm = &search
	}
	filter.CreatedFrom = parseTime(c.Query("createdFrom"))
	filter.CreatedTo = parseTime(c.Query("createdTo"))

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("pageSize"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func ticketIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.NewValidationError("invalid ticket id", map[string]any{"field": "id"})
	}
	return id, nil
}

func callerID(c *fiber.Ctx) *int64 {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil
	}
	id := principal.UserID()
	return &id
}

func priorityPtr(raw *string) *domain.TicketPriority {
	if raw == nil || *raw == "" {
		return nil
	}
	p := domain.TicketPriority(*raw)
	return &p
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseInt64(val string) *int64 {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil || parsed <= 0 {
		return nil
	}
	return &parsed
}
