package emergency

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateIfNoRecent inserts the event only when the patient has no
	// event triggered after cutoff. Returns false when the insert was
	// suppressed by a recent event.
	CreateIfNoRecent(ctx context.Context, e *Event, cutoff time.Time) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// LatestByPatientSince returns the newest event triggered after
	// cutoff, or (nil, nil) when there is none.
	LatestByPatientSince(ctx context.Context, patientID uuid.UUID, cutoff time.Time) (*Event, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, consented bool, lat, lng *float64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes *string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error)
}
