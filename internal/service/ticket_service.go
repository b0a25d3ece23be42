package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/repository"
	"github.com/spec-kit/voc-service/pkg/util"
)

const assignedReason = "assigned"

// TicketService orchestrates the ticket lifecycle.
type TicketService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	categories  categoryLookup
	tx          repository.Transactor
	ledger      *HistoryLedger
	identifiers *IdentifierGenerator
	notifier    NotificationPort
	learner     LearningPort
	logger      *zap.Logger
	now         Clock
	phoneRegion string
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	Categories  categoryLookup
	Transactor  repository.Transactor
	Ledger      *HistoryLedger
	Identifiers *IdentifierGenerator
	Notifier    NotificationPort
	Learner     LearningPort
	Logger      *zap.Logger
	Clock       Clock
	PhoneRegion string
}

// CreateTicketCommand describes ticket intake.
type CreateTicketCommand struct {
	Title         string
	Content       string
	CategoryID    int64
	CustomerEmail string
	CustomerName  *string
	CustomerPhone *string
	Priority      *domain.TicketPriority
}

// UpdateTicketCommand replaces the descriptive fields of a ticket. Priority and category
// change only when set.
type UpdateTicketCommand struct {
	TicketID   int64
	Title      string
	Content    string
	Priority   *domain.TicketPriority
	CategoryID *int64
}

// ChangeStatusCommand requests a state machine transition.
type ChangeStatusCommand struct {
	TicketID  int64
	Status    domain.TicketStatus
	Reason    *string
	ChangedBy *int64
}

// AssignCommand assigns a ticket to a staff user.
type AssignCommand struct {
	TicketID   int64
	AssigneeID int64
	ChangedBy  *int64
}

// AddMemoCommand attaches a staff note.
type AddMemoCommand struct {
	TicketID int64
	AuthorID int64
	Content  string
	Internal bool
}

// AddAttachmentCommand records metadata for an uploaded file.
type AddAttachmentCommand struct {
	TicketID   int64
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
}

// TicketListFilter describes staff listing filters.
type TicketListFilter struct {
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

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	region := deps.PhoneRegion
	if region == "" {
		region = "KR"
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		categories:  deps.Categories,
		tx:          deps.Transactor,
		ledger:      deps.Ledger,
		identifiers: deps.Identifiers,
		notifier:    deps.Notifier,
		learner:     deps.Learner,
		logger:      logger,
		now:         clock,
		phoneRegion: region,
	}
}

// CreateTicket validates intake, assigns a unique identifier and stores a NEW ticket.
func (s *TicketService) CreateTicket(ctx context.Context, cmd CreateTicketCommand) (*domain.Ticket, error) {
	title, content, err := cleanTitleAndContent(cmd.Title, cmd.Content)
	if err != nil {
		return nil, err
	}
	if cmd.CategoryID <= 0 {
		return nil, domain.NewValidationError("categoryId", "is required")
	}
	email := strings.ToLower(strings.TrimSpace(cmd.CustomerEmail))
	if email == "" {
		return nil, domain.NewValidationError("customerEmail", "is required")
	}
	if utf8.RuneCountInString(email) > domain.CustomerEmailMaxLength || !util.IsEmail(email) {
		return nil, domain.NewValidationError("customerEmail", "must be a valid email address")
	}
	name := util.SanitizeOptional(cmd.CustomerName)
	if name != nil && utf8.RuneCountInString(*name) > domain.CustomerNameMaxLength {
		return nil, domain.NewValidationError("customerName", fmt.Sprintf("must be at most %d characters", domain.CustomerNameMaxLength))
	}
	phone, err := s.normalizePhone(cmd.CustomerPhone)
	if err != nil {
		return nil, err
	}
	priority := domain.TicketPriorityNormal
	if cmd.Priority != nil {
		if priority, err = domain.ParseTicketPriority(string(*cmd.Priority)); err != nil {
			return nil, err
		}
	}

	if err := s.checkCategory(ctx, cmd.CategoryID); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:         title,
		Content:       content,
		Status:        domain.TicketStatusNew,
		Priority:      priority,
		CategoryID:    cmd.CategoryID,
		CustomerEmail: email,
		CustomerName:  name,
		CustomerPhone: phone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.insertWithIdentifier(ctx, ticket); err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("identifier", ticket.Identifier))
	s.notifySafely(ctx, "ticket created", ticket.Identifier, func(ctx context.Context) error {
		return s.notifier.NotifyCreated(ctx, ticket)
	})
	return ticket, nil
}

// insertWithIdentifier treats a uniqueness violation on insert as one more collision.
// Pre-check and insert collisions draw from the same maxRetries budget.
func (s *TicketService) insertWithIdentifier(ctx context.Context, ticket *domain.Ticket) error {
	maxRetries := s.identifiers.MaxRetries()
	for attempt := 1; attempt <= maxRetries; attempt++ {
		identifier, free, err := s.identifiers.Candidate(ctx, attempt)
		if err != nil {
			return err
		}
		if !free {
			continue
		}
		ticket.Identifier = identifier

		err = s.tickets.Create(ctx, ticket)
		if errors.Is(err, domain.ErrDuplicateIdentifier) {
			s.logger.Warn("ticket identifier taken on insert",
				zap.String("identifier", identifier),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		return nil
	}
	ticket.Identifier = ""
	return &domain.IdentifierGenerationError{MaxRetries: maxRetries}
}

// UpdateInfo overwrites title and content, and priority or category when given. Status is untouched.
func (s *TicketService) UpdateInfo(ctx context.Context, cmd UpdateTicketCommand) (*domain.Ticket, error) {
	title, content, err := cleanTitleAndContent(cmd.Title, cmd.Content)
	if err != nil {
		return nil, err
	}
	var priority *domain.TicketPriority
	if cmd.Priority != nil {
		parsed, err := domain.ParseTicketPriority(string(*cmd.Priority))
		if err != nil {
			return nil, err
		}
		priority = &parsed
	}
	if cmd.CategoryID != nil {
		if *cmd.CategoryID <= 0 {
			return nil, domain.NewValidationError("categoryId", "must be positive")
		}
		if err := s.checkCategory(ctx, *cmd.CategoryID); err != nil {
			return nil, err
		}
	}

	var ticket *domain.Ticket
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		loaded, err := s.loadTicket(ctx, cmd.TicketID)
		if err != nil {
			return err
		}
		now := s.now()
		loaded.UpdateInfo(title, content, priority, now)
		if cmd.CategoryID != nil {
			if err := loaded.ChangeCategory(*cmd.CategoryID, now); err != nil {
				return err
			}
		}
		if err := s.save(ctx, loaded); err != nil {
			return err
		}
		ticket = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// ChangeStatus applies a state machine transition and records it in the ledger atomically.
// Notification and learning calls happen after commit and never fail the operation.
func (s *TicketService) ChangeStatus(ctx context.Context, cmd ChangeStatusCommand) (*domain.Ticket, error) {
	reason, err := cleanReason(cmd.Reason)
	if err != nil {
		return nil, err
	}

	var (
		ticket   *domain.Ticket
		previous domain.TicketStatus
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		loaded, err := s.loadTicket(ctx, cmd.TicketID)
		if err != nil {
			return err
		}
		prev, err := s.applyStatusChange(ctx, loaded, cmd.Status, reason, cmd.ChangedBy)
		if err != nil {
			return err
		}
		ticket, previous = loaded, prev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterStatusChange(ctx, ticket, previous, reason)
	return ticket, nil
}

func (s *TicketService) applyStatusChange(ctx context.Context, ticket *domain.Ticket, to domain.TicketStatus, reason *string, changedBy *int64) (domain.TicketStatus, error) {
	previous, err := ticket.ChangeStatus(to, s.now())
	if err != nil {
		return previous, err
	}
	if err := s.save(ctx, ticket); err != nil {
		return previous, err
	}
	if err := s.ledger.Append(ctx, ticket.ID, previous, ticket.Status, changedBy, reason); err != nil {
		return previous, fmt.Errorf("append status history for ticket %d: %w", ticket.ID, err)
	}
	return previous, nil
}

func (s *TicketService) afterStatusChange(ctx context.Context, ticket *domain.Ticket, previous domain.TicketStatus, reason *string) {
	s.notifySafely(ctx, "status change", ticket.Identifier, func(ctx context.Context) error {
		return s.notifier.NotifyStatusChanged(ctx, ticket, previous)
	})
	if ticket.Status != domain.TicketStatusResolved || s.learner == nil {
		return
	}
	note := ""
	if reason != nil {
		note = *reason
	}
	s.callSafely(ctx, "progressive learning", ticket.Identifier, func(ctx context.Context) error {
		return s.learner.LearnFromResolved(ctx, ticket.ID, ticket.Title, ticket.Content, note)
	})
}

// Assign sets the assignee. A NEW ticket moves to IN_PROGRESS and the move is recorded in the ledger.
func (s *TicketService) Assign(ctx context.Context, cmd AssignCommand) (*domain.Ticket, error) {
	assignee, err := s.loadAssignee(ctx, cmd.AssigneeID)
	if err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		loaded, err := s.loadTicket(ctx, cmd.TicketID)
		if err != nil {
			return err
		}
		if err := s.applyAssign(ctx, loaded, assignee.ID, cmd.ChangedBy); err != nil {
			return err
		}
		ticket = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterAssign(ctx, ticket, assignee)
	return ticket, nil
}

func (s *TicketService) applyAssign(ctx context.Context, ticket *domain.Ticket, assigneeID int64, changedBy *int64) error {
	previous := ticket.Status
	moved, err := ticket.Assign(assigneeID, s.now())
	if err != nil {
		return err
	}
	if err := s.save(ctx, ticket); err != nil {
		return err
	}
	if !moved {
		return nil
	}
	reason := assignedReason
	if err := s.ledger.Append(ctx, ticket.ID, previous, ticket.Status, changedBy, &reason); err != nil {
		return fmt.Errorf("append status history for ticket %d: %w", ticket.ID, err)
	}
	return nil
}

func (s *TicketService) afterAssign(ctx context.Context, ticket *domain.Ticket, assignee *domain.User) {
	s.notifySafely(ctx, "assignment", ticket.Identifier, func(ctx context.Context) error {
		return s.notifier.NotifyAssigned(ctx, ticket, assignee)
	})
}

// Unassign clears the assignee. Status is unchanged.
func (s *TicketService) Unassign(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		loaded, err := s.loadTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		loaded.Unassign(s.now())
		if err := s.save(ctx, loaded); err != nil {
			return err
		}
		ticket = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetStatusHistory returns the ledger for an existing ticket, oldest first.
func (s *TicketService) GetStatusHistory(ctx context.Context, ticketID int64) ([]domain.StatusHistoryEntry, error) {
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.ledger.LoadByTicket(ctx, ticketID)
}

// GetTicket loads a ticket with its attachments and memos.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.loadTicket(ctx, ticketID)
}

// GetTicketByIdentifier loads a ticket by its human readable identifier.
func (s *TicketService) GetTicketByIdentifier(ctx context.Context, identifier string) (*domain.Ticket, error) {
	identifier = strings.ToUpper(strings.TrimSpace(identifier))
	ticket, err := s.tickets.GetByIdentifier(ctx, identifier)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("ticket", identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket %s: %w", identifier, err)
	}
	return ticket, nil
}

// TrackTicket lets a customer look up their ticket. A wrong email reads as not found.
func (s *TicketService) TrackTicket(ctx context.Context, identifier, email string) (*domain.Ticket, error) {
	ticket, err := s.GetTicketByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(ticket.CustomerEmail, strings.TrimSpace(email)) {
		return nil, domain.NewNotFoundError("ticket", ticket.Identifier)
	}
	return ticket, nil
}

// ListTickets returns a page of tickets for staff.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		AssigneeID:  filter.AssigneeID,
		CategoryID:  filter.CategoryID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// AddMemo appends a staff note and bumps the ticket version.
func (s *TicketService) AddMemo(ctx context.Context, cmd AddMemoCommand) (*domain.Memo, error) {
	content := util.SanitizeText(cmd.Content)
	if content == "" {
		return nil, domain.NewValidationError("content", "is required")
	}
	if utf8.RuneCountInString(content) > domain.MemoMaxLength {
		return nil, domain.NewValidationError("content", fmt.Sprintf("must be at most %d characters", domain.MemoMaxLength))
	}
	if cmd.AuthorID <= 0 {
		return nil, domain.NewValidationError("authorId", "is required")
	}

	var memo *domain.Memo
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.loadTicket(ctx, cmd.TicketID)
		if err != nil {
			return err
		}
		now := s.now()
		memo = &domain.Memo{
			TicketID:  ticket.ID,
			AuthorID:  cmd.AuthorID,
			Content:   content,
			Internal:  cmd.Internal,
			CreatedAt: now,
		}
		if err := s.tickets.AppendMemo(ctx, memo); err != nil {
			return fmt.Errorf("append memo: %w", err)
		}
		ticket.Memos = append(ticket.Memos, *memo)
		ticket.UpdatedAt = now
		return s.save(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return memo, nil
}

// AddAttachment records file metadata on a ticket within the per-ticket limits.
func (s *TicketService) AddAttachment(ctx context.Context, cmd AddAttachmentCommand) (*domain.Attachment, error) {
	fileName := util.SanitizeText(cmd.FileName)
	switch {
	case fileName == "":
		return nil, domain.NewValidationError("fileName", "is required")
	case strings.TrimSpace(cmd.StorageKey) == "":
		return nil, domain.NewValidationError("storageKey", "is required")
	case cmd.SizeBytes <= 0:
		return nil, domain.NewValidationError("sizeBytes", "must be positive")
	case cmd.SizeBytes > domain.MaxAttachmentSizeBytes:
		return nil, domain.NewValidationError("sizeBytes", fmt.Sprintf("must be at most %d bytes", domain.MaxAttachmentSizeBytes))
	}
	mimeType := strings.TrimSpace(cmd.MimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var attachment *domain.Attachment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.loadTicket(ctx, cmd.TicketID)
		if err != nil {
			return err
		}
		if len(ticket.Attachments) >= domain.MaxAttachmentsPerTicket {
			return domain.NewValidationError("attachments", fmt.Sprintf("at most %d files per ticket", domain.MaxAttachmentsPerTicket))
		}
		now := s.now()
		attachment = &domain.Attachment{
			TicketID:   ticket.ID,
			FileName:   fileName,
			StorageKey: strings.TrimSpace(cmd.StorageKey),
			MimeType:   mimeType,
			SizeBytes:  cmd.SizeBytes,
			CreatedAt:  now,
		}
		if err := s.tickets.AppendAttachment(ctx, attachment); err != nil {
			return fmt.Errorf("append attachment: %w", err)
		}
		ticket.Attachments = append(ticket.Attachments, *attachment)
		ticket.UpdatedAt = now
		return s.save(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("ticket", ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket %d: %w", ticketID, err)
	}
	return ticket, nil
}

// checkCategory accepts only active categories. Without a lookup every positive id is accepted.
func (s *TicketService) checkCategory(ctx context.Context, categoryID int64) error {
	if s.categories == nil {
		return nil
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewValidationError("categoryId", "unknown category")
	}
	if err != nil {
		return fmt.Errorf("load category %d: %w", categoryID, err)
	}
	if !category.Active {
		return domain.NewValidationError("categoryId", "category is inactive")
	}
	return nil
}

func (s *TicketService) loadAssignee(ctx context.Context, userID int64) (*domain.User, error) {
	if userID <= 0 {
		return nil, domain.NewValidationError("assigneeId", "must be positive")
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if !user.Active {
		return nil, domain.NewNotFoundError("user", userID)
	}
	return user, nil
}

// save persists through the optimistic store; a vanished row reads as not found.
func (s *TicketService) save(ctx context.Context, ticket *domain.Ticket) error {
	err := s.tickets.Save(ctx, ticket)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError("ticket", ticket.ID)
	}
	var conflict *domain.ConcurrencyConflictError
	if errors.As(err, &conflict) {
		return err
	}
	if err != nil {
		return fmt.Errorf("save ticket %d: %w", ticket.ID, err)
	}
	return nil
}

func (s *TicketService) notifySafely(ctx context.Context, kind, identifier string, call func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	s.callSafely(ctx, kind, identifier, call)
}

// callSafely runs a best-effort collaborator call; errors and panics are logged and dropped.
func (s *TicketService) callSafely(ctx context.Context, kind, identifier string, call func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("collaborator call panicked",
				zap.String("kind", kind),
				zap.String("identifier", identifier),
				zap.Any("panic", r))
		}
	}()
	if err := call(ctx); err != nil {
		s.logger.Warn("collaborator call failed",
			zap.String("kind", kind),
			zap.String("identifier", identifier),
			zap.Error(err))
	}
}

func (s *TicketService) normalizePhone(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(strings.TrimSpace(*raw)) > domain.CustomerPhoneMaxLength {
		return nil, domain.NewValidationError("customerPhone", fmt.Sprintf("must be at most %d characters", domain.CustomerPhoneMaxLength))
	}
	normalized, err := util.NormalizePhone(*raw, s.phoneRegion)
	if err != nil {
		return nil, domain.NewValidationError("customerPhone", "must be a valid phone number")
	}
	return &normalized, nil
}

func cleanTitleAndContent(rawTitle, rawContent string) (string, string, error) {
	title := util.SanitizeText(rawTitle)
	content := util.SanitizeText(rawContent)
	if title == "" {
		return "", "", domain.NewValidationError("title", "is required")
	}
	if n := utf8.RuneCountInString(title); n < domain.TitleMinLength || n > domain.TitleMaxLength {
		return "", "", domain.NewValidationError("title",
			fmt.Sprintf("must be between %d and %d characters", domain.TitleMinLength, domain.TitleMaxLength))
	}
	if content == "" {
		return "", "", domain.NewValidationError("content", "is required")
	}
	if n := utf8.RuneCountInString(content); n < domain.ContentMinLength || n > domain.ContentMaxLength {
		return "", "", domain.NewValidationError("content",
			fmt.Sprintf("must be between %d and %d characters", domain.ContentMinLength, domain.ContentMaxLength))
	}
	return title, content, nil
}

func cleanReason(raw *string) (*string, error) {
	reason := util.SanitizeOptional(raw)
	if reason != nil && utf8.RuneCountInString(*reason) > domain.ChangeReasonMaxLength {
		return nil, domain.NewValidationError("reason",
			fmt.Sprintf("must be at most %d characters", domain.ChangeReasonMaxLength))
	}
	return reason, nil
}
