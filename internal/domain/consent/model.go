package consent

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Consent types recorded in the audit trail. Location is the only type
// the emergency flow uses today.
const TypeLocation = "location"

// Record maps to the consent_audit table. Records are append-only; they
// are never updated or deleted.
type Record struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	UserID      uuid.UUID         `db:"user_id" json:"user_id"`
	ConsentType string            `db:"consent_type" json:"consent_type"`
	Granted     bool              `db:"granted" json:"granted"`
	UserAgent   string            `db:"user_agent" json:"user_agent,omitempty"`
	Metadata    map[string]string `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

// Location is a device fix reported by the caller.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Accuracy is the reported accuracy radius in meters, 0 when unknown.
	Accuracy float64 `json:"accuracy,omitempty"`
}

// Outcome is the result of one location-consent request. Exactly one of
// Granted, Denied, or Unavailable is produced per request.
type Outcome interface {
	isOutcome()
}

// Granted means the user consented and a location fix was obtained.
type Granted struct {
	Location Location
}

// Denied means the user explicitly declined to share location. This is a
// normal outcome, not an error.
type Denied struct {
	Reason string
}

// Unavailable means the location could not be read: no capability, a read
// failure, or a timeout.
type Unavailable struct {
	Reason string
}

func (Granted) isOutcome()     {}
func (Denied) isOutcome()      {}
func (Unavailable) isOutcome() {}

// Decision pairs an outcome with the id of the audit record written for it.
type Decision struct {
	ConsentID uuid.UUID
	Outcome   Outcome
}

// ValidateLocation rejects out-of-range coordinates. A poor accuracy
// reading (worse than 1000 meters) is flagged but not rejected.
func ValidateLocation(loc Location) (lowAccuracy bool, err error) {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return false, fmt.Errorf("latitude %v out of range", loc.Latitude)
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return false, fmt.Errorf("longitude %v out of range", loc.Longitude)
	}
	return loc.Accuracy > 1000, nil
}
