package notify

import (
	"fmt"
	"strings"

	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/events"
)

var statusLabels = map[domain.TicketStatus]string{
	domain.TicketStatusNew:        "received",
	domain.TicketStatusInProgress: "being reviewed",
	domain.TicketStatusResolved:   "resolved",
	domain.TicketStatusClosed:     "closed",
}

// SlackMessageFor renders the staff channel message for event.
func SlackMessageFor(event events.Event) (SlackMessage, bool) {
	switch payload := event.Payload.(type) {
	case events.TicketCreatedPayload:
		return SlackMessage{Text: fmt.Sprintf(":new: *%s* %s (priority %s)",
			payload.Ticket.Identifier, payload.Ticket.Title, payload.Ticket.Priority)}, true
	case events.TicketStatusChangedPayload:
		return SlackMessage{Text: fmt.Sprintf(":arrows_counterclockwise: *%s* %s → %s",
			payload.Ticket.Identifier, payload.OldStatus, payload.NewStatus)}, true
	case events.TicketAssignedPayload:
		assignee := payload.AssigneeName
		if assignee == "" {
			assignee = fmt.Sprintf("user %d", payload.AssigneeID)
		}
		return SlackMessage{Text: fmt.Sprintf(":bust_in_silhouette: *%s* assigned to %s",
			payload.Ticket.Identifier, assignee)}, true
	}
	return SlackMessage{}, false
}

// CustomerEmailFor renders the customer facing email for event, if the event warrants one.
func CustomerEmailFor(event events.Event) (Email, bool) {
	switch payload := event.Payload.(type) {
	case events.TicketCreatedPayload:
		ticket := payload.Ticket
		var body strings.Builder
		fmt.Fprintf(&body, "%s\n\n", greeting(ticket))
		fmt.Fprintf(&body, "We have received your inquiry **%s**.\n\n", ticket.Title)
		fmt.Fprintf(&body, "Your tracking number is `%s`. Keep it to check progress at any time.\n", ticket.Identifier)
		return Email{
			To:       ticket.CustomerEmail,
			Subject:  fmt.Sprintf("[%s] We received your inquiry", ticket.Identifier),
			Markdown: body.String(),
		}, true
	case events.TicketStatusChangedPayload:
		ticket := payload.Ticket
		label, ok := statusLabels[payload.NewStatus]
		if !ok {
			return Email{}, false
		}
		var body strings.Builder
		fmt.Fprintf(&body, "%s\n\n", greeting(ticket))
		fmt.Fprintf(&body, "Your inquiry **%s** (`%s`) is now %s.\n", ticket.Title, ticket.Identifier, label)
		return Email{
			To:       ticket.CustomerEmail,
			Subject:  fmt.Sprintf("[%s] Your inquiry is %s", ticket.Identifier, label),
			Markdown: body.String(),
		}, true
	}
	return Email{}, false
}

func greeting(ticket events.TicketSnapshot) string {
	if ticket.CustomerName != "" {
		return fmt.Sprintf("Hello %s,", ticket.CustomerName)
	}
	return "Hello,"
}
