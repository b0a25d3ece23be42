package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/repository"
)

var testNow = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// memoryStore keeps tickets, users and history in maps. Rows are stored by value so callers
// never share memory with the store, like a real database round trip.
type memoryStore struct {
	mu          sync.Mutex
	tickets     map[int64]domain.Ticket
	users       map[int64]domain.User
	history     []domain.StatusHistoryEntry
	nextID      int64
	nextChildID int64

	// hooks let tests inject failures.
	beforeSave   func(ticket *domain.Ticket) error
	beforeCreate func(ticket *domain.Ticket) error
	listErr      error
	appendErr    error
	existing     map[string]bool
	existsCalls  []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tickets:  map[int64]domain.Ticket{},
		users:    map[int64]domain.User{},
		existing: map[string]bool{},
	}
}

type storeState struct {
	tickets map[int64]domain.Ticket
	history []domain.StatusHistoryEntry
}

func (s *memoryStore) snapshot() storeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	tickets := make(map[int64]domain.Ticket, len(s.tickets))
	for id, t := range s.tickets {
		tickets[id] = t
	}
	return storeState{tickets: tickets, history: append([]domain.StatusHistoryEntry(nil), s.history...)}
}

func (s *memoryStore) restore(state storeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = state.tickets
	s.history = state.history
}

func (s *memoryStore) put(ticket domain.Ticket) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == 0 {
		s.nextID++
		ticket.ID = s.nextID
	} else if ticket.ID > s.nextID {
		s.nextID = ticket.ID
	}
	s.tickets[ticket.ID] = ticket
	if ticket.Identifier != "" {
		s.existing[ticket.Identifier] = true
	}
	return ticket.ID
}

func (s *memoryStore) get(id int64) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[id]
}

func (s *memoryStore) historyFor(id int64) []domain.StatusHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StatusHistoryEntry
	for _, entry := range s.history {
		if entry.TicketID == id {
			out = append(out, entry)
		}
	}
	return out
}

func (s *memoryStore) Create(_ context.Context, ticket *domain.Ticket) error {
	if s.beforeCreate != nil {
		if err := s.beforeCreate(ticket); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.Identifier == ticket.Identifier {
			return domain.ErrDuplicateIdentifier
		}
	}
	s.nextID++
	ticket.ID = s.nextID
	ticket.Version = 0
	s.tickets[ticket.ID] = *ticket
	s.existing[ticket.Identifier] = true
	return nil
}

func (s *memoryStore) Save(_ context.Context, ticket *domain.Ticket) error {
	if s.beforeSave != nil {
		if err := s.beforeSave(ticket); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return &domain.ConcurrencyConflictError{TicketID: ticket.ID, Version: ticket.Version}
	}
	ticket.Version++
	s.tickets[ticket.ID] = *ticket
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (s *memoryStore) GetByIdentifier(_ context.Context, identifier string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.Identifier == identifier {
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memoryStore) ListByIDs(_ context.Context, ids []int64) ([]domain.Ticket, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for _, id := range ids {
		if t, ok := s.tickets[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryStore) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range s.tickets {
		if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) ExistsByIdentifier(_ context.Context, identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsCalls = append(s.existsCalls, identifier)
	return s.existing[identifier], nil
}

func (s *memoryStore) MaxSequenceWithPrefix(_ context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest int64
	for identifier := range s.existing {
		if !strings.HasPrefix(identifier, prefix) {
			continue
		}
		seq, err := strconv.ParseInt(strings.TrimPrefix(identifier, prefix), 10, 64)
		if err == nil && seq > latest {
			latest = seq
		}
	}
	return latest, nil
}

func (s *memoryStore) AppendMemo(_ context.Context, memo *domain.Memo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextChildID++
	memo.ID = s.nextChildID
	return nil
}

func (s *memoryStore) AppendAttachment(_ context.Context, attachment *domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextChildID++
	attachment.ID = s.nextChildID
	t := s.tickets[attachment.TicketID]
	t.Attachments = append(t.Attachments, *attachment)
	s.tickets[attachment.TicketID] = t
	return nil
}

// Append and ListByTicket back the history ledger.
func (s *memoryStore) Append(_ context.Context, entry *domain.StatusHistoryEntry) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextChildID++
	entry.ID = s.nextChildID
	s.history = append(s.history, *entry)
	return nil
}

func (s *memoryStore) ListByTicket(_ context.Context, ticketID int64) ([]domain.StatusHistoryEntry, error) {
	return s.historyFor(ticketID), nil
}

// memoryUsers serves the user repository from the store.
type memoryUsers struct{ store *memoryStore }

func (u memoryUsers) Create(_ context.Context, user *domain.User) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	for _, existing := range u.store.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.NewValidationError("email", "already registered")
		}
	}
	user.ID = int64(len(u.store.users) + 1)
	u.store.users[user.ID] = *user
	return nil
}

func (u memoryUsers) Update(_ context.Context, user *domain.User) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.users[user.ID] = *user
	return nil
}

func (u memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	user, ok := u.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (u memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	for _, user := range u.store.users {
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// memoryTx rolls the store back when fn fails.
type memoryTx struct {
	store   *memoryStore
	commits int
}

func (m *memoryTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	state := m.store.snapshot()
	if err := fn(ctx); err != nil {
		m.store.restore(state)
		return err
	}
	m.commits++
	return nil
}

// sequenceFunc adapts a function to repository.SequenceRepository.
type sequenceFunc func(ctx context.Context, day string) (int64, error)

func (f sequenceFunc) Next(ctx context.Context, day string) (int64, error) { return f(ctx, day) }

type notification struct {
	kind     string
	ticketID int64
	status   domain.TicketStatus
	previous domain.TicketStatus
	assignee int64
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
	panic bool
}

func (n *recordingNotifier) record(call notification) error {
	n.mu.Lock()
	n.calls = append(n.calls, call)
	n.mu.Unlock()
	if n.panic {
		panic("notifier exploded")
	}
	return n.err
}

func (n *recordingNotifier) NotifyCreated(_ context.Context, ticket *domain.Ticket) error {
	return n.record(notification{kind: "created", ticketID: ticket.ID, status: ticket.Status})
}

func (n *recordingNotifier) NotifyStatusChanged(_ context.Context, ticket *domain.Ticket, previous domain.TicketStatus) error {
	return n.record(notification{kind: "status", ticketID: ticket.ID, status: ticket.Status, previous: previous})
}

func (n *recordingNotifier) NotifyAssigned(_ context.Context, ticket *domain.Ticket, assignee *domain.User) error {
	return n.record(notification{kind: "assigned", ticketID: ticket.ID, status: ticket.Status, assignee: assignee.ID})
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.calls))
	for _, call := range n.calls {
		out = append(out, call.kind)
	}
	return out
}

type learnCall struct {
	ticketID int64
	note     string
}

type recordingLearner struct {
	calls []learnCall
	err   error
}

func (l *recordingLearner) LearnFromResolved(_ context.Context, ticketID int64, _, _ string, note string) error {
	l.calls = append(l.calls, learnCall{ticketID: ticketID, note: note})
	return l.err
}

type harness struct {
	store    *memoryStore
	tx       *memoryTx
	notifier *recordingNotifier
	learner  *recordingLearner
	service  *TicketService
	bulk     *BulkService
}

func newHarness() *harness {
	store := newMemoryStore()
	tx := &memoryTx{store: store}
	notifier := &recordingNotifier{}
	learner := &recordingLearner{}
	generator := NewIdentifierGenerator(NewMemorySequence(SeedFromStore(store)), store, 5, fixedClock, nil)
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  store,
		UserRepo:    memoryUsers{store: store},
		Transactor:  tx,
		Ledger:      NewHistoryLedger(store, fixedClock),
		Identifiers: generator,
		Notifier:    notifier,
		Learner:     learner,
		Clock:       fixedClock,
	})
	bulk := NewBulkService(BulkDependencies{
		Lifecycle:  svc,
		TicketRepo: store,
		Transactor: tx,
	})
	return &harness{store: store, tx: tx, notifier: notifier, learner: learner, service: svc, bulk: bulk}
}

func (h *harness) seedTicket(status domain.TicketStatus) int64 {
	ticket := domain.Ticket{
		Title:         "Refund not received",
		Content:       "I returned the item two weeks ago.",
		Status:        status,
		Priority:      domain.TicketPriorityNormal,
		CategoryID:    1,
		CustomerEmail: "kim@example.com",
		CreatedAt:     testNow.Add(-time.Hour),
		UpdatedAt:     testNow.Add(-time.Hour),
	}
	if status == domain.TicketStatusResolved || status == domain.TicketStatusClosed {
		resolved := testNow.Add(-30 * time.Minute)
		ticket.ResolvedAt = &resolved
	}
	if status == domain.TicketStatusClosed {
		closed := testNow.Add(-10 * time.Minute)
		ticket.ClosedAt = &closed
	}
	id := h.store.put(ticket)
	t := h.store.get(id)
	t.Identifier = FormatIdentifier("20250114", id)
	h.store.put(t)
	return id
}

func (h *harness) seedUser(id int64, active bool) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.users[id] = domain.User{ID: id, Name: "Agent", Email: "agent@example.com", Role: domain.UserRoleOperator, Active: active}
}
