package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalsignal/vitalsignal/internal/platform/transport"
)

// ErrNotFound is returned when no patient exists for the given id.
var ErrNotFound = errors.New("patient not found")

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const patientCols = `id, first_name, last_name, email, phone_mobile,
	emergency_contact_name, emergency_contact_phone, emergency_contact_email, emergency_contact_channel,
	created_at, updated_at`

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	var channel *string
	err := r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PhoneMobile,
		&p.EmergencyContact.Name, &p.EmergencyContact.Phone, &p.EmergencyContact.Email, &channel,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	if channel != nil {
		ch, err := transport.ParseChannel(*channel)
		if err != nil {
			// Keep the raw value so an unsupported stored channel is
			// rejected at dispatch instead of being masked here.
			ch = transport.Channel(*channel)
		}
		p.EmergencyContact.PreferredChannel = ch
	}
	return &p, nil
}
