package emergency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no event exists for the given id.
var ErrNotFound = errors.New("emergency event not found")

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const eventCols = `id, patient_id, triggered_by, triggered_at, location_consented,
	location_lat, location_lng, status, notes, updated_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.PatientID, &e.TriggeredBy, &e.TriggeredAt, &e.LocationConsented,
		&e.LocationLat, &e.LocationLng, &e.Status, &e.Notes, &e.UpdatedAt)
	return &e, err
}

// CreateIfNoRecent performs the rate-limit decision and the insert as a
// single statement, so two near-simultaneous triggers cannot both pass.
func (r *repoPG) CreateIfNoRecent(ctx context.Context, e *Event, cutoff time.Time) (bool, error) {
	e.ID = uuid.New()
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO emergency_events (id, patient_id, triggered_by, location_consented, status, notes)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM emergency_events
			WHERE patient_id = $2 AND triggered_at > $7
		)`,
		e.ID, e.PatientID, e.TriggeredBy, e.LocationConsented, e.Status, e.Notes, cutoff)
	if err != nil {
		return false, fmt.Errorf("insert emergency event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	created, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return false, err
	}
	*e = *created
	return true, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventCols+` FROM emergency_events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get emergency event %s: %w", id, err)
	}
	return e, nil
}

func (r *repoPG) LatestByPatientSince(ctx context.Context, patientID uuid.UUID, cutoff time.Time) (*Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `
		SELECT `+eventCols+` FROM emergency_events
		WHERE patient_id = $1 AND triggered_at > $2
		ORDER BY triggered_at DESC LIMIT 1`, patientID, cutoff))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest emergency event for %s: %w", patientID, err)
	}
	return e, nil
}

func (r *repoPG) UpdateLocation(ctx context.Context, id uuid.UUID, consented bool, lat, lng *float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE emergency_events
		SET location_consented = $2, location_lat = $3, location_lng = $4, updated_at = NOW()
		WHERE id = $1`, id, consented, lat, lng)
	if err != nil {
		return fmt.Errorf("update emergency event location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE emergency_events
		SET status = $2, notes = COALESCE($3, notes), updated_at = NOW()
		WHERE id = $1`, id, status, notes)
	if err != nil {
		return fmt.Errorf("update emergency event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM emergency_events WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventCols+` FROM emergency_events
		WHERE patient_id = $1 ORDER BY triggered_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
