package http

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/service"
)

var errNotStubbed = errors.New("not stubbed")

type fakeTickets struct {
	CreateFn       func(ctx context.Context, cmd service.CreateTicketCommand) (*domain.Ticket, error)
	ChangeStatusFn func(ctx context.Context, cmd service.ChangeStatusCommand) (*domain.Ticket, error)
	GetFn          func(ctx context.Context, id int64) (*domain.Ticket, error)
	TrackFn        func(ctx context.Context, identifier, email string) (*domain.Ticket, error)
	ListFn         func(ctx context.Context, filter service.TicketListFilter) ([]domain.Ticket, error)
	AddMemoFn      func(ctx context.Context, cmd service.AddMemoCommand) (*domain.Memo, error)
}

func (f *fakeTickets) CreateTicket(ctx context.Context, cmd service.CreateTicketCommand) (*domain.Ticket, error) {
	if f.CreateFn == nil {
		return nil, errNotStubbed
	}
	return f.CreateFn(ctx, cmd)
}

func (f *fakeTickets) UpdateInfo(context.Context, service.UpdateTicketCommand) (*domain.Ticket, error) {
	return nil, errNotStubbed
}

func (f *fakeTickets) ChangeStatus(ctx context.Context, cmd service.ChangeStatusCommand) (*domain.Ticket, error) {
	if f.ChangeStatusFn == nil {
		return nil, errNotStubbed
	}
	return f.ChangeStatusFn(ctx, cmd)
}

func (f *fakeTickets) Assign(context.Context, service.AssignCommand) (*domain.Ticket, error) {
	return nil, errNotStubbed
}

func (f *fakeTickets) Unassign(context.Context, int64) (*domain.Ticket, error) {
	return nil, errNotStubbed
}

func (f *fakeTickets) GetStatusHistory(context.Context, int64) ([]domain.StatusHistoryEntry, error) {
	return nil, errNotStubbed
}

func (f *fakeTickets) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	if f.GetFn == nil {
		return nil, errNotStubbed
	}
	return f.GetFn(ctx, id)
}

func (f *fakeTickets) TrackTicket(ctx context.Context, identifier, email string) (*domain.Ticket, error) {
	if f.TrackFn == nil {
		return nil, errNotStubbed
	}
	return f.TrackFn(ctx, identifier, email)
}

func (f *fakeTickets) ListTickets(ctx context.Context, filter service.TicketListFilter) ([]domain.Ticket, error) {
	if f.ListFn == nil {
		return nil, errNotStubbed
	}
	return f.ListFn(ctx, filter)
}

func (f *fakeTickets) AddMemo(ctx context.Context, cmd service.AddMemoCommand) (*domain.Memo, error) {
	if f.AddMemoFn == nil {
		return nil, errNotStubbed
	}
	return f.AddMemoFn(ctx, cmd)
}

func (f *fakeTickets) AddAttachment(context.Context, service.AddAttachmentCommand) (*domain.Attachment, error) {
	return nil, errNotStubbed
}

type fakeBulk struct {
	ChangeStatusFn func(ctx context.Context, cmd service.BulkStatusCommand) (*domain.BulkOperationResult, error)
}

func (f *fakeBulk) ChangeStatus(ctx context.Context, cmd service.BulkStatusCommand) (*domain.BulkOperationResult, error) {
	if f.ChangeStatusFn == nil {
		return nil, errNotStubbed
	}
	return f.ChangeStatusFn(ctx, cmd)
}

func (f *fakeBulk) Assign(context.Context, service.BulkAssignCommand) (*domain.BulkOperationResult, error) {
	return nil, errNotStubbed
}

func (f *fakeBulk) ChangePriority(context.Context, service.BulkPriorityCommand) (*domain.BulkOperationResult, error) {
	return nil, errNotStubbed
}

type fakeAuth struct {
	LoginFn func(ctx context.Context, email, password string) (*service.LoginResult, error)
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	if f.LoginFn == nil {
		return nil, errNotStubbed
	}
	return f.LoginFn(ctx, email, password)
}

type fakeUsers struct {
	users map[int64]*domain.User
}

func (f *fakeUsers) Create(context.Context, *domain.User) error { return errNotStubbed }

func (f *fakeUsers) Update(context.Context, *domain.User) error { return errNotStubbed }

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeCategories struct{}

func (fakeCategories) ListActive(context.Context) ([]domain.Category, error) {
	parent := int64(1)
	return []domain.Category{
		{ID: 1, Name: "Orders", Type: domain.CategoryTypeMain, Active: true},
		{ID: 5, Name: "Late delivery", Type: domain.CategoryTypeSub, ParentID: &parent, Active: true},
	}, nil
}
