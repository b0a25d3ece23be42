package dto

import (
	"strconv"

	"github.com/spec-kit/voc-service/internal/domain"
)

// BulkStatusRequest payload.
type BulkStatusRequest struct {
	TicketIDs []int64 `json:"ticketIds" validate:"required,min=1,max=500,dive,gt=0"`
	Status    string  `json:"status" validate:"required,oneof=NEW IN_PROGRESS RESOLVED CLOSED"`
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
}

// BulkAssignRequest payload.
type BulkAssignRequest struct {
	TicketIDs  []int64 `json:"ticketIds" validate:"required,min=1,max=500,dive,gt=0"`
	AssigneeID int64   `json:"assigneeId" validate:"required,gt=0"`
}

// BulkPriorityRequest payload.
type BulkPriorityRequest struct {
	TicketIDs []int64 `json:"ticketIds" validate:"required,min=1,max=500,dive,gt=0"`
	Priority  string  `json:"priority" validate:"required,oneof=LOW NORMAL HIGH URGENT"`
}

// BulkOperationResponse reports the outcome of every requested id.
type BulkOperationResponse struct {
	SuccessCount int               `json:"successCount"`
	FailedCount  int               `json:"failedCount"`
	FailedIDs    []int64           `json:"failedIds"`
	Errors       map[string]string `json:"errors"`
}

// NewBulkOperationResponse maps a bulk result. JSON object keys must be strings.
func NewBulkOperationResponse(result *domain.BulkOperationResult) BulkOperationResponse {
	errs := make(map[string]string, len(result.Errors))
	for id, reason := range result.Errors {
		errs[strconv.FormatInt(id, 10)] = reason
	}
	return BulkOperationResponse{
		SuccessCount: result.SuccessCount,
		FailedCount:  result.FailureCount(),
		FailedIDs:    result.FailedIDs,
		Errors:       errs,
	}
}
