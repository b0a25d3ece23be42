package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/events"
	"github.com/spec-kit/voc-service/internal/notify"
	"github.com/spec-kit/voc-service/internal/worker"
)

type fakeSlack struct {
	enabled bool
	err     error
	sent    []notify.SlackMessage
}

func (f *fakeSlack) Enabled() bool { return f.enabled }

func (f *fakeSlack) Send(_ context.Context, msg notify.SlackMessage) error {
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeMailer struct {
	enabled bool
	sent    []notify.Email
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) Send(_ context.Context, email notify.Email) error {
	f.sent = append(f.sent, email)
	return nil
}

type fakeRealtime struct {
	published []events.Event
}

func (f *fakeRealtime) Publish(_ context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

// inlinePool runs tasks on the calling goroutine.
type inlinePool struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (p *inlinePool) Submit(name string, task worker.Task) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	p.names = append(p.names, name)
	p.mu.Unlock()
	task(context.Background())
	return nil
}

func notificationTicket() *domain.Ticket {
	name := "Kim"
	return &domain.Ticket{
		ID:            9,
		Identifier:    "VOC-20250115-00009",
		Title:         "Broken zipper",
		Status:        domain.TicketStatusNew,
		Priority:      domain.TicketPriorityHigh,
		CustomerEmail: "kim@example.com",
		CustomerName:  &name,
	}
}

func TestNotificationService_FansOutToChannels(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	slack := &fakeSlack{enabled: true}
	mailer := &fakeMailer{enabled: true}
	realtime := &fakeRealtime{}
	pool := &inlinePool{}

	NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		Pool:       pool,
		Slack:      slack,
		Mailer:     mailer,
		Realtime:   realtime,
	}).RegisterHandlers()

	notifier := events.NewNotifier(dispatcher)
	ticket := notificationTicket()
	require.NoError(t, notifier.NotifyCreated(context.Background(), ticket))

	require.Len(t, slack.sent, 1)
	assert.Contains(t, slack.sent[0].Text, "VOC-20250115-00009")
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "kim@example.com", mailer.sent[0].To)
	require.Len(t, realtime.published, 1)
	assert.Equal(t, events.EventTicketCreated, realtime.published[0].Type)
	assert.Equal(t, []string{"slack:ticket_created", "email:ticket_created", "realtime:ticket_created"}, pool.names)

	assignee := &domain.User{ID: 4, Name: "Lee"}
	require.NoError(t, notifier.NotifyAssigned(context.Background(), ticket, assignee))
	assert.Len(t, slack.sent, 2)
	assert.Len(t, mailer.sent, 1)
	assert.Len(t, realtime.published, 2)
}

func TestNotificationService_SkipsDisabledChannels(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	slack := &fakeSlack{enabled: false}
	mailer := &fakeMailer{enabled: false}
	pool := &inlinePool{}

	NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		Pool:       pool,
		Slack:      slack,
		Mailer:     mailer,
	}).RegisterHandlers()

	require.NoError(t, events.NewNotifier(dispatcher).NotifyCreated(context.Background(), notificationTicket()))
	assert.Empty(t, slack.sent)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, pool.names)
}

func TestNotificationService_DeliveryFailureIsLoggedQueueFailureReturned(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	slack := &fakeSlack{enabled: true, err: errors.New("webhook 500")}
	pool := &inlinePool{}
	NewNotificationService(NotificationDependencies{Dispatcher: dispatcher, Pool: pool, Slack: slack}).RegisterHandlers()

	notifier := events.NewNotifier(dispatcher)
	ticket := notificationTicket()
	require.NoError(t, notifier.NotifyStatusChanged(context.Background(), ticket, domain.TicketStatusNew))
	assert.Len(t, slack.sent, 1)

	pool.err = worker.ErrPoolClosed
	err := notifier.NotifyStatusChanged(context.Background(), ticket, domain.TicketStatusNew)
	assert.ErrorIs(t, err, worker.ErrPoolClosed)
}
