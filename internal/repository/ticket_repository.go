package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/voc-service/internal/domain"
)

const ticketColumns = `id, ticket_identifier, version, title, content, status, priority, category_id,
               customer_email, customer_name, customer_phone, assignee_id, resolved_at, closed_at,
               created_at, updated_at`

// TicketFilter captures staff search parameters.
type TicketFilter struct {
	AssigneeID  *int64
	CategoryID  *int64
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Save(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Ticket, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ExistsByIdentifier(ctx context.Context, identifier string) (bool, error)
	MaxSequenceWithPrefix(ctx context.Context, prefix string) (int64, error)
	AppendMemo(ctx context.Context, memo *domain.Memo) error
	AppendAttachment(ctx context.Context, attachment *domain.Attachment) error
}

type ticketRepository struct {
	pool DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool DB) TicketRepository {
	return &ticketRepository{pool: pool}
}

// Create inserts a new ticket and assigns id and version. A clash on the identifier
// returns domain.ErrDuplicateIdentifier; inside a transaction the insert runs under a
// savepoint so the caller can retry with another identifier.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	tx, inTx := txFrom(ctx)
	if !inTx {
		return r.insert(ctx, r.pool, ticket)
	}

	savepoint, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := r.insert(ctx, savepoint, ticket); err != nil {
		_ = savepoint.Rollback(ctx)
		return err
	}
	return savepoint.Commit(ctx)
}

func (r *ticketRepository) insert(ctx context.Context, db querier, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_identifier, title, content, status, priority, category_id,
                             customer_email, customer_name, customer_phone, assignee_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, version`
	err := db.QueryRow(ctx, query,
		ticket.Identifier,
		ticket.Title,
		ticket.Content,
		ticket.Status,
		ticket.Priority,
		ticket.CategoryID,
		ticket.CustomerEmail,
		ticket.CustomerName,
		ticket.CustomerPhone,
		ticket.AssigneeID,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID, &ticket.Version)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateIdentifier
	}
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// Save writes the mutable columns when the stored version still equals ticket.Version,
// then advances ticket.Version.
func (r *ticketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, content=$2, status=$3, priority=$4, category_id=$5,
            customer_name=$6, customer_phone=$7, assignee_id=$8, resolved_at=$9, closed_at=$10,
            updated_at=$11, version=version+1
        WHERE id=$12 AND version=$13
        RETURNING version`
	db := conn(ctx, r.pool)
	var version int64
	err := db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Content,
		ticket.Status,
		ticket.Priority,
		ticket.CategoryID,
		ticket.CustomerName,
		ticket.CustomerPhone,
		ticket.AssigneeID,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.ID,
		ticket.Version,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missOrConflict(ctx, db, ticket)
	}
	if err != nil {
		return fmt.Errorf("update ticket %d: %w", ticket.ID, err)
	}
	ticket.Version = version
	return nil
}

func (r *ticketRepository) missOrConflict(ctx context.Context, db querier, ticket *domain.Ticket) error {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check ticket %d: %w", ticket.ID, err)
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return &domain.ConcurrencyConflictError{TicketID: ticket.ID, Version: ticket.Version}
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_identifier=$1`
	return r.fetchSingle(ctx, query, identifier)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	db := conn(ctx, r.pool)
	ticket, err := scanTicket(db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, db, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) loadChildren(ctx context.Context, db querier, ticket *domain.Ticket) error {
	const attachmentsQuery = `
        SELECT id, ticket_id, file_name, storage_key, mime_type, size_bytes, created_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY id`
	rows, err := db.Query(ctx, attachmentsQuery, ticket.ID)
	if err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.FileName,
			&attachment.StorageKey,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return err
		}
		ticket.Attachments = append(ticket.Attachments, attachment)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	const memosQuery = `
        SELECT id, ticket_id, author_id, content, internal, created_at
        FROM ticket_memos WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	memoRows, err := db.Query(ctx, memosQuery, ticket.ID)
	if err != nil {
		return fmt.Errorf("load memos: %w", err)
	}
	defer memoRows.Close()
	for memoRows.Next() {
		var memo domain.Memo
		if err := memoRows.Scan(
			&memo.ID,
			&memo.TicketID,
			&memo.AuthorID,
			&memo.Content,
			&memo.Internal,
			&memo.CreatedAt,
		); err != nil {
			return err
		}
		ticket.Memos = append(ticket.Memos, memo)
	}
	return memoRows.Err()
}

// ListByIDs loads the requested tickets in one round trip. Children are not loaded.
func (r *ticketRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Ticket, error) {
	if len(ids) == 0 {
		return []domain.Ticket{}, nil
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ANY($1) ORDER BY id`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list tickets by ids: %w", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ExistsByIdentifier(ctx context.Context, identifier string) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_identifier=$1)`, identifier,
	).Scan(&exists)
	return exists, err
}

// MaxSequenceWithPrefix returns the highest numeric suffix among identifiers starting with
// prefix, or 0. Suffixes are compared as numbers so a sixth digit sorts after 99999.
func (r *ticketRepository) MaxSequenceWithPrefix(ctx context.Context, prefix string) (int64, error) {
	const query = `
        SELECT COALESCE(MAX(CAST(split_part(ticket_identifier, '-', 3) AS BIGINT)), 0)
        FROM tickets
        WHERE ticket_identifier LIKE $1 AND split_part(ticket_identifier, '-', 3) ~ '^[0-9]+$'`
	var seq int64
	err := conn(ctx, r.pool).QueryRow(ctx, query, prefix+"%").Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max sequence for %s: %w", prefix, err)
	}
	return seq, nil
}

func (r *ticketRepository) AppendMemo(ctx context.Context, memo *domain.Memo) error {
	const query = `
        INSERT INTO ticket_memos (ticket_id, author_id, content, internal, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		memo.TicketID,
		memo.AuthorID,
		memo.Content,
		memo.Internal,
		memo.CreatedAt,
	).Scan(&memo.ID)
}

func (r *ticketRepository) AppendAttachment(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, file_name, storage_key, mime_type, size_bytes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		attachment.TicketID,
		attachment.FileName,
		attachment.StorageKey,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.CreatedAt,
	).Scan(&attachment.ID)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(content) LIKE %s OR LOWER(ticket_identifier) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Identifier,
		&ticket.Version,
		&ticket.Title,
		&ticket.Content,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CategoryID,
		&ticket.CustomerEmail,
		&ticket.CustomerName,
		&ticket.CustomerPhone,
		&ticket.AssigneeID,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
