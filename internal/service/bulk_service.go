package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/observability"
	"github.com/spec-kit/voc-service/internal/repository"
)

// BulkService applies one kind of change to many tickets, isolating per-ticket failures.
type BulkService struct {
	lifecycle *TicketService
	tickets   repository.TicketRepository
	tx        repository.Transactor
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// BulkDependencies bundles collaborators for the bulk service.
type BulkDependencies struct {
	Lifecycle  *TicketService
	TicketRepo repository.TicketRepository
	Transactor repository.Transactor
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// BulkStatusCommand requests the same transition for every id.
type BulkStatusCommand struct {
	TicketIDs []int64
	Status    domain.TicketStatus
	Reason    *string
	ChangedBy *int64
}

// BulkAssignCommand assigns every id to one user.
type BulkAssignCommand struct {
	TicketIDs  []int64
	AssigneeID int64
	ChangedBy  *int64
}

// BulkPriorityCommand sets the same priority on every id.
type BulkPriorityCommand struct {
	TicketIDs []int64
	Priority  domain.TicketPriority
}

type bulkApply func(ctx context.Context, ticket *domain.Ticket) error

type statusChange struct {
	ticket   domain.Ticket
	previous domain.TicketStatus
}

// NewBulkService constructs the service.
func NewBulkService(deps BulkDependencies) *BulkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{
		lifecycle: deps.Lifecycle,
		tickets:   deps.TicketRepo,
		tx:        deps.Transactor,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

// ChangeStatus runs the state machine for every requested id in order.
func (b *BulkService) ChangeStatus(ctx context.Context, cmd BulkStatusCommand) (*domain.BulkOperationResult, error) {
	reason, err := cleanReason(cmd.Reason)
	if err != nil {
		return nil, err
	}

	var changes []statusChange
	result, err := b.run(ctx, domain.BulkStatusChange, cmd.TicketIDs, func(ctx context.Context, ticket *domain.Ticket) error {
		previous, err := b.lifecycle.applyStatusChange(ctx, ticket, cmd.Status, reason, cmd.ChangedBy)
		if err != nil {
			return err
		}
		changes = append(changes, statusChange{ticket: *ticket, previous: previous})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range changes {
		b.lifecycle.afterStatusChange(ctx, &changes[i].ticket, changes[i].previous, reason)
	}
	return result, nil
}

// Assign assigns every requested id to the same user.
func (b *BulkService) Assign(ctx context.Context, cmd BulkAssignCommand) (*domain.BulkOperationResult, error) {
	assignee, err := b.lifecycle.loadAssignee(ctx, cmd.AssigneeID)
	if err != nil {
		return nil, err
	}

	var assigned []domain.Ticket
	result, err := b.run(ctx, domain.BulkAssign, cmd.TicketIDs, func(ctx context.Context, ticket *domain.Ticket) error {
		if err := b.lifecycle.applyAssign(ctx, ticket, assignee.ID, cmd.ChangedBy); err != nil {
			return err
		}
		assigned = append(assigned, *ticket)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range assigned {
		b.lifecycle.afterAssign(ctx, &assigned[i], assignee)
	}
	return result, nil
}

// ChangePriority sets the priority on every requested id.
func (b *BulkService) ChangePriority(ctx context.Context, cmd BulkPriorityCommand) (*domain.BulkOperationResult, error) {
	priority, err := domain.ParseTicketPriority(string(cmd.Priority))
	if err != nil {
		return nil, err
	}

	return b.run(ctx, domain.BulkPriorityChange, cmd.TicketIDs, func(ctx context.Context, ticket *domain.Ticket) error {
		if err := ticket.ChangePriority(priority, b.lifecycle.now()); err != nil {
			return err
		}
		return b.lifecycle.save(ctx, ticket)
	})
}

// run loads every ticket in one query, then applies fn in request order inside one transaction.
// Per-ticket domain errors become result entries and the ticket is restored in memory;
// any other error aborts and rolls back the whole batch.
func (b *BulkService) run(ctx context.Context, kind domain.BulkOperationKind, ids []int64, fn bulkApply) (*domain.BulkOperationResult, error) {
	if len(ids) == 0 {
		return nil, domain.NewValidationError("ticketIds", "must not be empty")
	}

	var result *domain.BulkOperationResult
	err := b.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		result = domain.NewBulkOperationResult()

		loaded, err := b.tickets.ListByIDs(ctx, distinct(ids))
		if err != nil {
			return fmt.Errorf("load tickets for bulk %s: %w", kind, err)
		}
		lookup := make(map[int64]*domain.Ticket, len(loaded))
		for i := range loaded {
			lookup[loaded[i].ID] = &loaded[i]
		}

		for _, id := range ids {
			ticket, ok := lookup[id]
			if !ok {
				result.RecordFailure(id, domain.NewNotFoundError("ticket", id).Error())
				continue
			}
			snapshot := *ticket
			if err := fn(ctx, ticket); err != nil {
				if !domain.IsItemError(err) {
					return err
				}
				*ticket = snapshot
				result.RecordFailure(id, err.Error())
				continue
			}
			result.RecordSuccess()
		}
		return nil
	})
	if err != nil {
		b.logger.Error("bulk operation aborted",
			zap.String("kind", string(kind)),
			zap.Int("requested", len(ids)),
			zap.Error(err))
		return nil, err
	}

	b.metrics.RecordBulk(string(kind), result.SuccessCount, result.FailureCount())
	b.logger.Info("bulk operation completed",
		zap.String("kind", string(kind)),
		zap.Int("requested", len(ids)),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailureCount()))
	return result, nil
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
