package vitals

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot maps to the vitals_observations table. All measurements are
// optional; a snapshot carries whatever the patient's devices reported.
type Snapshot struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	HeartRate        *int       `db:"heart_rate" json:"heart_rate,omitempty"`
	BloodPressureSys *int       `db:"blood_pressure_sys" json:"blood_pressure_sys,omitempty"`
	BloodPressureDia *int       `db:"blood_pressure_dia" json:"blood_pressure_dia,omitempty"`
	OxygenSaturation *int       `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	Temperature      *float64   `db:"temperature" json:"temperature,omitempty"`
	RespiratoryRate  *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	RecordedAt       time.Time  `db:"recorded_at" json:"recorded_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// Empty reports whether the snapshot carries no measurements at all.
func (s *Snapshot) Empty() bool {
	return s.HeartRate == nil && s.BloodPressureSys == nil && s.BloodPressureDia == nil &&
		s.OxygenSaturation == nil && s.Temperature == nil && s.RespiratoryRate == nil
}
