package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/events"
)

// EmailNotifier mails the billed-to party when an invoice is issued or changes status.
type EmailNotifier struct {
	Mail         common.Mailer
	Enabled      bool
	From         string
	TopicToggles map[string]bool
}

// Notify implements the events.Notifier interface.
func (n EmailNotifier) Notify(ctx context.Context, event db.DomainEvent) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	if n.TopicToggles != nil {
		if enabled, ok := n.TopicToggles[event.Topic]; ok && !enabled {
			return nil
		}
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to := stringField(payload, "email")
	if to == "" {
		return nil
	}
	return n.Mail.Send(ctx, common.Email{
		To:      to,
		Subject: subjectFor(event.Topic, payload),
		Text:    bodyFor(event.Topic, payload, event.OccurredAt, n.From),
	})
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return strings.TrimSpace(s)
}

func subjectFor(topic string, payload map[string]any) string {
	number := stringField(payload, "number")
	switch topic {
	case events.TopicInvoiceCreated:
		return fmt.Sprintf("Invoice %s issued", number)
	case events.TopicInvoiceStatusChanged:
		return fmt.Sprintf("Invoice %s is now %s", number, stringField(payload, "to"))
	default:
		return fmt.Sprintf("Notification %s", topic)
	}
}

func bodyFor(topic string, payload map[string]any, occurred time.Time, from string) string {
	var b strings.Builder
	switch topic {
	case events.TopicInvoiceCreated:
		fmt.Fprintf(&b, "Invoice %s has been issued.\n", stringField(payload, "number"))
		if total := stringField(payload, "grandTotal"); total != "" {
			fmt.Fprintf(&b, "Amount due: %s\n", total)
		}
	case events.TopicInvoiceStatusChanged:
		fmt.Fprintf(&b, "Invoice %s changed from %s to %s.\n",
			stringField(payload, "number"), stringField(payload, "from"), stringField(payload, "to"))
	default:
		fmt.Fprintf(&b, "Event %s.\n", topic)
	}
	fmt.Fprintf(&b, "Date: %s\n", occurred.UTC().Format(time.RFC3339))
	if from != "" {
		fmt.Fprintf(&b, "Questions: %s\n", from)
	}
	return b.String()
}
