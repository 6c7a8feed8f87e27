package vitals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const snapshotCols = `id, patient_id, heart_rate, blood_pressure_sys, blood_pressure_dia,
	oxygen_saturation, temperature, respiratory_rate, recorded_at, created_at`

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var s Snapshot
	err := row.Scan(&s.ID, &s.PatientID, &s.HeartRate, &s.BloodPressureSys, &s.BloodPressureDia,
		&s.OxygenSaturation, &s.Temperature, &s.RespiratoryRate, &s.RecordedAt, &s.CreatedAt)
	return &s, err
}

func (r *repoPG) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Snapshot, error) {
	s, err := scanSnapshot(r.pool.QueryRow(ctx, `
		SELECT `+snapshotCols+` FROM vitals_observations
		WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT 1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest vitals for %s: %w", patientID, err)
	}
	return s, nil
}
