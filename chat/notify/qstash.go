package notify

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	qstashx "github.com/romulo94/poc-healthcare-appointment-chatbot/pkg/qstash"
)

// QStashNotifier publishes appointment status changes to a webhook via
// Upstash QStash. Delivery is best-effort; the caller logs failures.
type QStashNotifier struct {
	client      *qstashx.Client
	destination string
}

var _ contractx.Notifier = (*QStashNotifier)(nil)

func NewQStashNotifier(client *qstashx.Client, destination string) (*QStashNotifier, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("notification destination is required")
	}
	return &QStashNotifier{client: client, destination: destination}, nil
}

func (n *QStashNotifier) NotifyStatusChange(ctx context.Context, change contractx.StatusChange) error {
	return n.client.Publish(ctx, n.destination, map[string]any{
		"event":          "appointment.status_changed",
		"appointment_id": change.AppointmentID,
		"new_status":     change.NewStatus,
		"patron_id":      change.PatronID,
	})
}
