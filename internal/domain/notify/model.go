package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitalsignal/vitalsignal/internal/platform/transport"
)

// AttemptStatus is the delivery state of one notification attempt.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSent    AttemptStatus = "sent"
	AttemptFailed  AttemptStatus = "failed"
)

// Attempt maps to the emergency_notifications table: one row per
// delivery try on one channel. An attempt is inserted pending before the
// transport call and updated exactly once afterward. Retries create new
// attempts; rows are never retried in place.
type Attempt struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	EventID          uuid.UUID         `db:"event_id" json:"event_id"`
	Channel          transport.Channel `db:"channel" json:"channel"`
	RecipientAddress string            `db:"recipient_address" json:"recipient_address"`
	Status           AttemptStatus     `db:"status" json:"status"`
	MessageID        *string           `db:"message_id" json:"message_id,omitempty"`
	ErrorMessage     *string           `db:"error_message" json:"error_message,omitempty"`
	SentAt           *time.Time        `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
}

// Result is what a dispatch returns to its caller. Transport failures
// are reported here, never raised.
type Result struct {
	Success     bool              `json:"success"`
	Channel     transport.Channel `json:"channel"`
	Recipient   string            `json:"recipient"`
	MessageID   string            `json:"message_id,omitempty"`
	Error       string            `json:"error,omitempty"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
}
