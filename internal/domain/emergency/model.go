package emergency

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an emergency event.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// RateLimitWindow is the lookback used to reject repeated triggers from
// the same patient.
const RateLimitWindow = 60 * time.Second

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusSent, StatusFailed:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown emergency status %q", s)
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// Event maps to the emergency_events table: one record per trigger
// action. Events are never deleted.
type Event struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	TriggeredBy      uuid.UUID  `db:"triggered_by" json:"triggered_by"`
	TriggeredAt      time.Time  `db:"triggered_at" json:"triggered_at"`
	LocationConsented bool      `db:"location_consented" json:"location_consented"`
	LocationLat      *float64   `db:"location_lat" json:"location_lat,omitempty"`
	LocationLng      *float64   `db:"location_lng" json:"location_lng,omitempty"`
	Status           Status     `db:"status" json:"status"`
	Notes            string     `db:"notes" json:"notes"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// TriggerResult is returned by every trigger call, success or failure.
// Failures carry an error code instead of raising.
type TriggerResult struct {
	Success            bool       `json:"success"`
	EventID            *uuid.UUID `json:"event_id,omitempty"`
	Message            string     `json:"message"`
	NotificationStatus Status     `json:"notification_status,omitempty"`
	ErrorCode          string     `json:"error,omitempty"`
}
