package events

import "slices"

// Topic constants for domain events emitted by the service.
const (
	TopicInvoiceCreated       = "invoice.created"
	TopicInvoiceStatusChanged = "invoice.status_changed"
)

// DefaultTopics returns the topics webhook endpoints may subscribe to.
func DefaultTopics() []string {
	return []string{
		TopicInvoiceCreated,
		TopicInvoiceStatusChanged,
	}
}

// KnownTopic reports whether topic is one of DefaultTopics.
func KnownTopic(topic string) bool {
	return slices.Contains(DefaultTopics(), topic)
}

// InvoiceCreatedPayload is the payload of TopicInvoiceCreated.
type InvoiceCreatedPayload struct {
	InvoiceID  string `json:"invoiceId"`
	Number     string `json:"number"`
	GrandTotal string `json:"grandTotal"`
	TripCount  int    `json:"tripCount"`
	Email      string `json:"email,omitempty"`
}

// InvoiceStatusChangedPayload is the payload of TopicInvoiceStatusChanged.
type InvoiceStatusChangedPayload struct {
	InvoiceID string `json:"invoiceId"`
	Number    string `json:"number"`
	From      string `json:"from"`
	To        string `json:"to"`
	Email     string `json:"email,omitempty"`
}
