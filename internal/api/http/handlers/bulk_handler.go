package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voc-service/internal/api/dto"
	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/service"
)

// BulkOperations is the bulk engine surface the handler needs.
type BulkOperations interface {
	ChangeStatus(ctx context.Context, cmd service.BulkStatusCommand) (*domain.BulkOperationResult, error)
	Assign(ctx context.Context, cmd service.BulkAssignCommand) (*domain.BulkOperationResult, error)
	ChangePriority(ctx context.Context, cmd service.BulkPriorityCommand) (*domain.BulkOperationResult, error)
}

// BulkHandler serves the manager bulk endpoints. A partially failed batch still answers 200.
type BulkHandler struct {
	bulk BulkOperations
}

// NewBulkHandler constructs handler.
func NewBulkHandler(bulk BulkOperations) *BulkHandler {
	return &BulkHandler{bulk: bulk}
}

// ChangeStatus POST /tickets/bulk/status.
func (h *BulkHandler) ChangeStatus(c *fiber.Ctx) error {
	var req dto.BulkStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.bulk.ChangeStatus(c.UserContext(), service.BulkStatusCommand{
		TicketIDs: req.TicketIDs,
		Status:    domain.TicketStatus(req.Status),
		Reason:    req.Reason,
		ChangedBy: callerID(c),
	})
	return respondBulk(c, result, err)
}

// Assign POST /tickets/bulk/assignee.
func (h *BulkHandler) Assign(c *fiber.Ctx) error {
	var req dto.BulkAssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.bulk.Assign(c.UserContext(), service.BulkAssignCommand{
		TicketIDs:  req.TicketIDs,
		AssigneeID: req.AssigneeID,
		ChangedBy:  callerID(c),
	})
	return respondBulk(c, result, err)
}

// ChangePriority POST /tickets/bulk/priority.
func (h *BulkHandler) ChangePriority(c *fiber.Ctx) error {
	var req dto.BulkPriorityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.bulk.ChangePriority(c.UserContext(), service.BulkPriorityCommand{
		TicketIDs: req.TicketIDs,
		Priority:  domain.TicketPriority(req.Priority),
	})
	return respondBulk(c, result, err)
}

func respondBulk(c *fiber.Ctx, result *domain.BulkOperationResult, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBulkOperationResponse(result)})
}
