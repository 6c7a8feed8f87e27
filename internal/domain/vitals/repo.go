package vitals

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// LatestByPatient returns the most recent snapshot for the patient,
	// or (nil, nil) when the patient has none.
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Snapshot, error)
}
