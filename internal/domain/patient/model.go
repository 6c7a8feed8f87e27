package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitalsignal/vitalsignal/internal/platform/transport"
)

// Patient maps to the patients table.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Email       *string   `db:"email" json:"email,omitempty"`
	PhoneMobile *string   `db:"phone_mobile" json:"phone_mobile,omitempty"`

	EmergencyContact EmergencyContact `json:"emergency_contact"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EmergencyContact is the person notified when the patient triggers an
// emergency.
type EmergencyContact struct {
	Name             string            `db:"emergency_contact_name" json:"name"`
	Phone            string            `db:"emergency_contact_phone" json:"phone"`
	Email            string            `db:"emergency_contact_email" json:"email"`
	PreferredChannel transport.Channel `db:"emergency_contact_channel" json:"preferred_channel"`
}

// DisplayName returns the patient's full name for notification content.
func (p *Patient) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return "Unknown patient"
	}
	return name
}

// Configured reports whether the contact can actually be reached: a name
// plus at least one of phone or email.
func (c EmergencyContact) Configured() bool {
	return strings.TrimSpace(c.Name) != "" &&
		(strings.TrimSpace(c.Phone) != "" || strings.TrimSpace(c.Email) != "")
}

// AddressFor returns the contact address for the given channel, or ""
// when the contact has none for it.
func (c EmergencyContact) AddressFor(ch transport.Channel) string {
	switch ch {
	case transport.ChannelEmail:
		return strings.TrimSpace(c.Email)
	case transport.ChannelSMS:
		return strings.TrimSpace(c.Phone)
	default:
		return ""
	}
}
