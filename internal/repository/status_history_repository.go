package repository

import (
	"context"

	"github.com/spec-kit/voc-service/internal/domain"
)

// StatusHistoryRepository stores the append-only status ledger.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *domain.StatusHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusHistoryEntry, error)
}

type statusHistoryRepository struct {
	pool DB
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool DB) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func (r *statusHistoryRepository) Append(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	const query = `
        INSERT INTO voc_status_history (voc_id, previous_status, new_status, changed_by, change_reason, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		entry.TicketID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ChangedBy,
		entry.Reason,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

// ListByTicket returns entries oldest first.
func (r *statusHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusHistoryEntry, error) {
	const query = `
        SELECT id, voc_id, previous_status, new_status, changed_by, change_reason, created_at
        FROM voc_status_history WHERE voc_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StatusHistoryEntry{}
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
