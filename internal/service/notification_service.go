package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/voc-service/internal/events"
	"github.com/spec-kit/voc-service/internal/notify"
	"github.com/spec-kit/voc-service/internal/worker"
)

// SlackSender posts staff channel messages.
type SlackSender interface {
	Enabled() bool
	Send(ctx context.Context, msg notify.SlackMessage) error
}

// EmailSender delivers customer emails.
type EmailSender interface {
	Enabled() bool
	Send(ctx context.Context, email notify.Email) error
}

// RealtimePublisher pushes events to live dashboards.
type RealtimePublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// TaskSubmitter queues background work.
type TaskSubmitter interface {
	Submit(name string, task worker.Task) error
}

// NotificationService delivers dispatched ticket events to the configured channels.
type NotificationService struct {
	dispatcher events.Dispatcher
	pool       TaskSubmitter
	slack      SlackSender
	mailer     EmailSender
	realtime   RealtimePublisher
	logger     *zap.Logger
}

// NotificationDependencies bundles delivery channels. Nil channels are skipped.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Pool       TaskSubmitter
	Slack      SlackSender
	Mailer     EmailSender
	Realtime   RealtimePublisher
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		pool:       deps.Pool,
		slack:      deps.Slack,
		mailer:     deps.Mailer,
		realtime:   deps.Realtime,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleEvent)
}

// handleEvent queues one delivery per enabled channel. Only queueing failures are returned;
// delivery failures are logged by the task.
func (n *NotificationService) handleEvent(_ context.Context, event events.Event) error {
	n.logger.Debug("ticket event",
		zap.String("type", string(event.Type)),
		zap.String("identifier", event.Identifier))

	var errs []error
	if n.slack != nil && n.slack.Enabled() {
		if msg, ok := notify.SlackMessageFor(event); ok {
			errs = append(errs, n.enqueue("slack", event, func(ctx context.Context) error {
				return n.slack.Send(ctx, msg)
			}))
		}
	}
	if n.mailer != nil && n.mailer.Enabled() {
		if email, ok := notify.CustomerEmailFor(event); ok {
			errs = append(errs, n.enqueue("email", event, func(ctx context.Context) error {
				return n.mailer.Send(ctx, email)
			}))
		}
	}
	if n.realtime != nil {
		errs = append(errs, n.enqueue("realtime", event, func(ctx context.Context) error {
			return n.realtime.Publish(ctx, event)
		}))
	}
	return errors.Join(errs...)
}

func (n *NotificationService) enqueue(channel string, event events.Event, deliver func(ctx context.Context) error) error {
	task := func(ctx context.Context) {
		if err := deliver(ctx); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("channel", channel),
				zap.String("type", string(event.Type)),
				zap.String("identifier", event.Identifier),
				zap.Error(err))
		}
	}
	if n.pool == nil {
		task(context.Background())
		return nil
	}
	if err := n.pool.Submit(channel+":"+string(event.Type), task); err != nil {
		return fmt.Errorf("queue %s delivery: %w", channel, err)
	}
	return nil
}
