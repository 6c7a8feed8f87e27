package emergency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitalsignal/vitalsignal/internal/domain/consent"
	"github.com/vitalsignal/vitalsignal/internal/domain/patient"
	"github.com/vitalsignal/vitalsignal/internal/platform/apperror"
	"github.com/vitalsignal/vitalsignal/internal/platform/auth"
)

const defaultTriggerNotes = "Emergency triggered by patient"

// Service orchestrates the emergency event lifecycle: authorization,
// rate limiting, contact precondition, and event state. It does not send
// notifications or request consent itself.
type Service struct {
	events   Repository
	patients patient.Repository
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(events Repository, patients patient.Repository, log zerolog.Logger) *Service {
	return &Service{events: events, patients: patients, log: log, now: time.Now}
}

// TriggerEmergency validates the caller, enforces the per-patient rate
// limit, verifies a contact is configured, and creates the event in state
// pending. Every failure path returns a structured result rather than an
// error.
func (s *Service) TriggerEmergency(ctx context.Context, caller auth.Caller, patientID uuid.UUID) *TriggerResult {
	if caller.IsZero() {
		return s.failure(apperror.CodeAuthenticationFailed, "authentication required", patientID)
	}
	if !caller.CanActFor(patientID) {
		return s.failure(apperror.CodeAuthenticationFailed, "not authorized to trigger an emergency for this patient", patientID)
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if errors.Is(err, patient.ErrNotFound) {
		return s.failure(apperror.CodeInvalidPatientID, "patient not found", patientID)
	}
	if err != nil {
		s.log.Error().Err(err).Str("patient_id", patientID.String()).Msg("patient lookup failed")
		return s.failure(apperror.CodeDatabaseError, "failed to load patient record", patientID)
	}

	cutoff := s.now().Add(-RateLimitWindow)

	// Read check first so the caller gets the remaining wait time. The
	// conditional insert below closes the race this read leaves open.
	recent, err := s.events.LatestByPatientSince(ctx, patientID, cutoff)
	if err != nil {
		s.log.Error().Err(err).Str("patient_id", patientID.String()).Msg("rate limit check failed")
		return s.failure(apperror.CodeDatabaseError, "failed to check recent emergencies", patientID)
	}
	if recent != nil {
		return s.rateLimited(patientID, recent.TriggeredAt)
	}

	if !p.EmergencyContact.Configured() {
		return s.failure(apperror.CodeMissingEmergencyContact,
			"no emergency contact is configured for this patient", patientID)
	}

	event := &Event{
		PatientID:   patientID,
		TriggeredBy: caller.UserID,
		Status:      StatusPending,
		Notes:       defaultTriggerNotes,
	}
	created, err := s.events.CreateIfNoRecent(ctx, event, cutoff)
	if err != nil {
		s.log.Error().Err(err).Str("patient_id", patientID.String()).Msg("emergency event insert failed")
		return s.failure(apperror.CodeDatabaseError, "failed to create emergency event", patientID)
	}
	if !created {
		// Lost the race to a concurrent trigger.
		return s.rateLimited(patientID, s.now())
	}

	s.log.Warn().
		Str("event_id", event.ID.String()).
		Str("patient_id", patientID.String()).
		Str("triggered_by", caller.UserID.String()).
		Msg("emergency triggered")

	return &TriggerResult{
		Success:            true,
		EventID:            &event.ID,
		Message:            "Emergency triggered. Your emergency contact is being notified.",
		NotificationStatus: StatusPending,
	}
}

func (s *Service) failure(code apperror.Code, msg string, patientID uuid.UUID) *TriggerResult {
	s.log.Warn().
		Str("patient_id", patientID.String()).
		Str("code", string(code)).
		Msg("emergency trigger rejected")
	return &TriggerResult{Success: false, Message: msg, ErrorCode: string(code)}
}

func (s *Service) rateLimited(patientID uuid.UUID, lastTrigger time.Time) *TriggerResult {
	remaining := RateLimitWindow - s.now().Sub(lastTrigger)
	seconds := int(math.Ceil(remaining.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return s.failure(apperror.CodeRateLimitExceeded,
		fmt.Sprintf("an emergency was already triggered recently, please wait %d seconds", seconds),
		patientID)
}

// UpdateEmergencyWithLocation applies a consent outcome to the event.
// Coordinates are copied only for a granted outcome; denial and
// unavailability clear nothing and fail nothing.
func (s *Service) UpdateEmergencyWithLocation(ctx context.Context, caller auth.Caller, eventID uuid.UUID, outcome consent.Outcome) (*Event, error) {
	event, err := s.authorizedEvent(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}

	var lat, lng *float64
	consented := false
	if granted, ok := outcome.(consent.Granted); ok {
		consented = true
		lat = &granted.Location.Latitude
		lng = &granted.Location.Longitude
	}

	if err := s.events.UpdateLocation(ctx, event.ID, consented, lat, lng); err != nil {
		s.log.Error().Err(err).Str("event_id", eventID.String()).Msg("location update failed")
		return nil, apperror.Wrap(apperror.CodeDatabaseError, "failed to update emergency location", err)
	}

	return s.events.GetByID(ctx, event.ID)
}

// UpdateEmergencyStatus moves the event to a terminal status after a
// notification attempt resolves. Setting the same status twice is a
// no-op; leaving a terminal status is rejected.
func (s *Service) UpdateEmergencyStatus(ctx context.Context, caller auth.Caller, eventID uuid.UUID, status Status, notes *string) (*Event, error) {
	event, err := s.authorizedEvent(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}

	if event.Status == status {
		return event, nil
	}
	if event.Status.Terminal() {
		return nil, apperror.Newf(apperror.CodeValidationError,
			"emergency event is already %s", event.Status)
	}

	if err := s.events.UpdateStatus(ctx, event.ID, status, notes); err != nil {
		s.log.Error().Err(err).Str("event_id", eventID.String()).Msg("status update failed")
		return nil, apperror.Wrap(apperror.CodeDatabaseError, "failed to update emergency status", err)
	}

	s.log.Info().
		Str("event_id", eventID.String()).
		Str("status", string(status)).
		Msg("emergency status updated")

	return s.events.GetByID(ctx, event.ID)
}

// GetEmergencyHistory returns the patient's events, newest first.
func (s *Service) GetEmergencyHistory(ctx context.Context, caller auth.Caller, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	if !caller.CanActFor(patientID) {
		return nil, 0, apperror.New(apperror.CodeAuthenticationFailed, "not authorized to view this patient's emergencies")
	}
	items, total, err := s.events.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.CodeDatabaseError, "failed to load emergency history", err)
	}
	return items, total, nil
}

// GetEmergencyEvent returns one event, applying the same authorization
// rule as triggering.
func (s *Service) GetEmergencyEvent(ctx context.Context, caller auth.Caller, eventID uuid.UUID) (*Event, error) {
	return s.authorizedEvent(ctx, caller, eventID)
}

// EmergencyContact loads the contact configured for the event's patient.
func (s *Service) EmergencyContact(ctx context.Context, event *Event) (patient.EmergencyContact, error) {
	p, err := s.patients.GetByID(ctx, event.PatientID)
	if errors.Is(err, patient.ErrNotFound) {
		return patient.EmergencyContact{}, apperror.New(apperror.CodeInvalidPatientID, "patient not found")
	}
	if err != nil {
		return patient.EmergencyContact{}, apperror.Wrap(apperror.CodeDatabaseError, "failed to load patient record", err)
	}
	return p.EmergencyContact, nil
}

func (s *Service) authorizedEvent(ctx context.Context, caller auth.Caller, eventID uuid.UUID) (*Event, error) {
	if caller.IsZero() {
		return nil, apperror.New(apperror.CodeAuthenticationFailed, "authentication required")
	}
	event, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperror.New(apperror.CodeInvalidPatientID, "emergency event not found")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabaseError, "failed to load emergency event", err)
	}
	if !caller.CanActFor(event.PatientID) {
		return nil, apperror.New(apperror.CodeAuthenticationFailed, "not authorized for this emergency event")
	}
	return event, nil
}
